package pim

import (
	"github.com/sarchlab/pimsim/dram/internal/addressmapping"
	"github.com/sarchlab/pimsim/dram/signal"
	"github.com/sarchlab/pimsim/idealctrl"
)

// fakeController drives the scheduler in multi-cycle tests. It delegates
// open-row tracking to an always-ready controller, lets the test script
// the refresh signals, and records every committed command.
type fakeController struct {
	inner *idealctrl.Comp

	refreshComing bool
	refreshSoon   bool
	inRefresh     bool

	weightCmds []signal.Command
	inputCmds  []signal.Command
	outputCmds []signal.Command
}

func newFakeController(numBankPerGroup int) *fakeController {
	return &fakeController{
		inner: idealctrl.MakeBuilder().
			WithNumBankPerGroup(numBankPerGroup).
			Build("FakeCtrl"),
	}
}

func (c *fakeController) GetReadyCommand(
	cmd signal.Command,
	clk uint64,
) signal.Command {
	return c.inner.GetReadyCommand(cmd, clk)
}

func (c *fakeController) RefreshComing() bool     { return c.refreshComing }
func (c *fakeController) RefreshComingSoon() bool { return c.refreshSoon }
func (c *fakeController) InRefresh() bool         { return c.inRefresh }

func (c *fakeController) SetMultiTenant(enable bool) {
	c.inner.SetMultiTenant(enable)
}

func (c *fakeController) PushWeightCommand(cmd signal.Command) {
	c.weightCmds = append(c.weightCmds, cmd)
	c.inner.PushWeightCommand(cmd)
}

func (c *fakeController) PushInputCommand(
	cmd signal.Command,
	releaseTime uint64,
) {
	c.inputCmds = append(c.inputCmds, cmd)
	c.inner.PushInputCommand(cmd, releaseTime)
}

func (c *fakeController) PushOutputCommand(cmd signal.Command) {
	c.outputCmds = append(c.outputCmds, cmd)
	c.inner.PushOutputCommand(cmd)
}

func countKind(cmds []signal.Command, kind signal.CommandKind) int {
	n := 0
	for _, cmd := range cmds {
		if cmd.Kind == kind {
			n++
		}
	}

	return n
}

// containsTransition reports whether value a is followed, immediately or
// later, by value b in the recorded sequence.
func containsTransition(seq []int, a, b int) bool {
	seen := false
	for _, v := range seq {
		if v == a {
			seen = true
		}
		if seen && v == b {
			return true
		}
	}

	return false
}

func newTestScheduler(
	numChannel, numBankGroup, numBankPerGroup int,
	ctrls []Controller,
) *Scheduler {
	geo := addressmapping.Geometry{
		NumChannel:   numChannel,
		NumRank:      1,
		NumBankGroup: numBankGroup,
		NumBank:      numBankPerGroup,
		NumRow:       16384,
		NumCol:       64,
		BurstLength:  4,
		BusWidth:     128,
	}

	cfg := Config{
		NumChannel:      numChannel,
		NumBank:         numBankGroup * numBankPerGroup,
		NumBankPerGroup: numBankPerGroup,
		NumCol:          geo.NumCol,
		BurstLength:     geo.BurstLength,
		TCCDL:           1,
		TRCDRD:          127,
		TRCDWR:          18,
		QueueDepth:      8,
	}

	mapper := addressmapping.MakeMapper("RoCoBaBgRaCh", geo)

	return NewScheduler(cfg, mapper, ctrls)
}

// cuttingTrans encodes a partition-layout transaction. The log2 of each
// fan-out is what travels on the wire.
func cuttingTrans(
	vcutsLog, hcutsLog, mcfLog, ucfLog, df, mTileLog uint64,
) signal.Transaction {
	addr := uint64(1<<6 | 1<<5)

	shift := 7
	push := func(v uint64, width int) {
		addr |= v << shift
		shift += width
	}

	push(vcutsLog, bwVcuts)
	push(hcutsLog, bwHcuts)
	push(mcfLog, bwMcf)
	push(ucfLog, bwUcf)
	push(df, bwDf)
	push(mTileLog, bwMTile)
	push(0, bwVcuts)
	push(0, bwHcuts)
	push(0, bwKernelSize)
	push(0, bwStride)

	return signal.Transaction{Addr: addr}
}

// loadTrans encodes an operand-load transaction.
func loadTrans(cutNo, loadType, dim, baseRow uint64) signal.Transaction {
	addr := cutNo<<1 | loadType<<5 | dim<<7 | baseRow<<39

	return signal.Transaction{Addr: addr}
}

// computeTrans encodes a compute transaction selecting the tiles in the
// bitmask.
func computeTrans(sel uint64) signal.Transaction {
	return signal.Transaction{Addr: sel<<1 | 1}
}
