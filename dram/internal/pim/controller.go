// Package pim implements the scheduler that drives matrix-multiply
// computation inside the DRAM banks. Each cycle it decodes at most one
// pending PIM transaction and advances a per-tile state machine that walks
// weight fetching, input feeding, and output writing across a tiled GEMM,
// negotiating every command with the per-channel controllers.
package pim

import "github.com/sarchlab/pimsim/dram/signal"

// Controller is the per-channel command sink the scheduler negotiates
// with. GetReadyCommand returns the command that is actually issuable
// toward the requested target this cycle, which may be an ACTIVATE or
// PRECHARGE prerequisite, or the invalid sentinel. Commands that the
// scheduler commits are handed over through the three typed queues.
type Controller interface {
	GetReadyCommand(cmd signal.Command, clk uint64) signal.Command

	RefreshComing() bool
	RefreshComingSoon() bool
	InRefresh() bool

	SetMultiTenant(enable bool)

	PushWeightCommand(cmd signal.Command)
	PushInputCommand(cmd signal.Command, releaseTime uint64)
	PushOutputCommand(cmd signal.Command)
}

// Unmapper produces the flat hex address for a DRAM location.
type Unmapper interface {
	Unmap(addr signal.Address) uint64
}

// Config carries the geometry and timing parameters the scheduler needs.
type Config struct {
	NumChannel      int
	NumBank         int // bank groups times banks per group
	NumBankPerGroup int
	NumCol          int
	BurstLength     int

	TCCDL  int
	TRCDRD int
	TRCDWR int

	QueueDepth int
}
