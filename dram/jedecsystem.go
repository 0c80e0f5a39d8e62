package dram

import (
	"log"

	"github.com/sarchlab/pimsim/dram/internal/addressmapping"
	"github.com/sarchlab/pimsim/dram/internal/pim"
	"github.com/sarchlab/pimsim/dram/signal"
	"github.com/sarchlab/pimsim/pimstats"
)

// JedecSystem is a JEDEC-style multi-channel memory system with the PIM
// scheduler embedded. Ordinary reads and writes route to the channel the
// address maps to; PIM-encoded transactions configure and drive the
// in-bank compute tiles.
type JedecSystem struct {
	baseSystem

	name   string
	mapper addressmapping.Mapper
	ctrls  []Controller
	sched  *pim.Scheduler

	epochPeriod uint64
	epochWriter *pimstats.EpochWriter
	finalWriter *pimstats.FinalWriter
}

// Name returns the name of the system.
func (s *JedecSystem) Name() string {
	return s.name
}

// WillAcceptPIM reports whether the PIM transaction queue has room.
func (s *JedecSystem) WillAcceptPIM() bool {
	return s.sched.WillAccept()
}

// AddPIM enqueues one PIM-encoded transaction. The caller must gate with
// WillAcceptPIM; overflowing the queue panics.
func (s *JedecSystem) AddPIM(hexAddr uint64) bool {
	s.tracer.Trace(hexAddr, "PIM", s.clk)

	s.sched.Push(signal.Transaction{Addr: hexAddr})
	s.lastReqClk = s.clk

	return true
}

// WillAccept asks the addressed channel whether it can take an ordinary
// transaction.
func (s *JedecSystem) WillAccept(hexAddr uint64, isWrite bool) bool {
	channel := s.mapper.Channel(hexAddr)
	return s.ctrls[channel].WillAcceptTransaction(hexAddr, isWrite)
}

// Add routes one ordinary transaction to its channel. The caller must gate
// with WillAccept; a refusing channel panics.
func (s *JedecSystem) Add(hexAddr uint64, isWrite bool) bool {
	kind := "READ"
	if isWrite {
		kind = "WRITE"
	}
	s.tracer.Trace(hexAddr, kind, s.clk)

	channel := s.mapper.Channel(hexAddr)
	if !s.ctrls[channel].WillAcceptTransaction(hexAddr, isWrite) {
		log.Panicf("channel %d refused transaction 0x%x", channel, hexAddr)
	}

	s.ctrls[channel].AddTransaction(signal.Transaction{
		Addr:       hexAddr,
		IsWrite:    isWrite,
		AddedCycle: s.clk,
	})
	s.lastReqClk = s.clk

	return true
}

// Tick advances the system one cycle: drain completions, advance the PIM
// scheduler, tick every controller, then step the clock and the epoch
// cadence.
func (s *JedecSystem) Tick() {
	for _, c := range s.ctrls {
		for {
			hexAddr, dir := c.ReturnDoneTrans(s.clk)
			if dir == signal.DirWrite {
				s.writeCB(hexAddr)
			} else if dir == signal.DirRead {
				s.readCB(hexAddr)
			} else {
				break
			}
		}
	}

	s.sched.Tick(s.clk)

	for _, c := range s.ctrls {
		c.Tick()
	}

	s.clk++

	if s.epochPeriod > 0 && s.clk%s.epochPeriod == 0 {
		s.writeEpochStats()
	}
}

// TurnOff reports whether every PIM tile has drained and the compute mode
// has shut down.
func (s *JedecSystem) TurnOff() bool {
	return s.sched.TurnOff()
}

func (s *JedecSystem) writeEpochStats() {
	if s.epochWriter == nil {
		return
	}

	for _, c := range s.ctrls {
		s.epochWriter.Write(c.EpochStats(s.clk))
	}
}

// WriteFinalStats emits the per-channel final statistics object and closes
// both stat streams.
func (s *JedecSystem) WriteFinalStats() {
	if s.finalWriter == nil {
		return
	}

	for i, c := range s.ctrls {
		s.finalWriter.Write(i, c.FinalStats(s.clk))
	}

	s.finalWriter.Close()
	if s.epochWriter != nil {
		s.epochWriter.Close()
	}
}
