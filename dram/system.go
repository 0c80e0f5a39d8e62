// Package dram provides the PIM-capable JEDEC memory system and its
// fixed-latency peer. The systems are externally clocked: the host calls
// Tick once per cycle and receives completions through registered
// callbacks.
package dram

import (
	"github.com/sarchlab/pimsim/dram/internal/pim"
	"github.com/sarchlab/pimsim/dram/signal"
	"github.com/sarchlab/pimsim/pimstats"
)

// totalChannels counts the channels of every system built in this process.
var totalChannels int

// TotalChannels returns the number of channels across all built systems.
func TotalChannels() int {
	return totalChannels
}

// A System accepts host transactions and advances one cycle per Tick.
type System interface {
	WillAcceptPIM() bool
	AddPIM(hexAddr uint64) bool
	WillAccept(hexAddr uint64, isWrite bool) bool
	Add(hexAddr uint64, isWrite bool) bool
	RegisterCallbacks(readCB, writeCB func(hexAddr uint64))
	Tick()
}

// Controller is one channel of the memory system. The JEDEC system drains
// its completions, routes ordinary traffic to it, and negotiates PIM
// commands with it; the controller owns all bank timing.
type Controller interface {
	pim.Controller

	WillAcceptTransaction(hexAddr uint64, isWrite bool) bool
	AddTransaction(trans signal.Transaction)
	ReturnDoneTrans(clk uint64) (hexAddr uint64, dir signal.Dir)
	Tick()

	EpochStats(clk uint64) any
	FinalStats(clk uint64) any
}

type baseSystem struct {
	clk        uint64
	lastReqClk uint64

	readCB  func(hexAddr uint64)
	writeCB func(hexAddr uint64)

	tracer pimstats.AddrTracer
}

// RegisterCallbacks sets the completion callbacks. Both receive the hex
// address of the finished transaction.
func (s *baseSystem) RegisterCallbacks(
	readCB, writeCB func(hexAddr uint64),
) {
	s.readCB = readCB
	s.writeCB = writeCB
}
