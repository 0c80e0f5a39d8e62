package pim

import (
	"log"

	"github.com/sarchlab/pimsim/dram/signal"
)

// Fixed array dimensions of the in-bank compute units.
const (
	peRow    = 128 // PEs in one PE row
	peBankIO = 16  // PEs fed by one bank's IO
)

// Scheduler drives the PIM computation. It owns the queue of pending
// PIM-encoded transactions, the partition configuration, and the per-tile
// state vectors. The owning system calls Tick once per cycle between
// draining controller completions and ticking the controllers.
type Scheduler struct {
	cfg    Config
	mapper Unmapper
	ctrls  []Controller

	queue []signal.Transaction

	vcuts int
	hcuts int
	mcf   int
	ucf   int
	mc    int
	df    int

	mTileSize int

	// Passed through to downstream consumers; no effect on scheduling.
	vcutsNext  int
	hcutsNext  int
	kernelSize int
	stride     int

	tiles   tileSet
	turnOff bool
}

// NewScheduler creates a scheduler over the given channel controllers.
func NewScheduler(
	cfg Config,
	mapper Unmapper,
	ctrls []Controller,
) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		mapper: mapper,
		ctrls:  ctrls,
		vcuts:  -1,
		hcuts:  -1,
	}
}

// WillAccept reports whether the PIM transaction queue has room.
func (s *Scheduler) WillAccept() bool {
	return len(s.queue) < s.cfg.QueueDepth
}

// Push enqueues a PIM-encoded transaction. The caller is expected to gate
// with WillAccept; pushing into a full queue is a programming bug.
func (s *Scheduler) Push(trans signal.Transaction) {
	if !s.WillAccept() {
		log.Panicf("PIM transaction queue overflow (depth %d)",
			s.cfg.QueueDepth)
	}

	s.queue = append(s.queue, trans)
}

// Configured reports whether a partition layout has been set.
func (s *Scheduler) Configured() bool {
	return s.vcuts != -1 && s.hcuts != -1
}

// TurnOff reports whether the last active tile has drained its output.
func (s *Scheduler) TurnOff() bool {
	return s.turnOff
}

func (s *Scheduler) cuts() int {
	if !s.Configured() {
		return 0
	}

	return s.vcuts * s.hcuts
}

// Tick advances the scheduler by one cycle: snapshot the refresh state,
// decode at most one pending transaction, then advance every active tile
// in index order.
func (s *Scheduler) Tick(clk uint64) {
	waitRefresh := false
	for _, c := range s.ctrls {
		if c.RefreshComing() && s.Configured() {
			waitRefresh = true
			s.tiles.clearActPlaced()
		}
	}

	s.decode()

	isInRef := false
	for _, c := range s.ctrls {
		if c.InRefresh() || c.RefreshComingSoon() {
			isInRef = true
		}
	}

	for i := 0; i < s.cuts(); i++ {
		if !s.tiles.inPIM[i] || isInRef {
			continue
		}

		s.stepTile(i, clk, waitRefresh)
	}
}

// tileCtx is the per-tile geometry derived fresh on every step.
type tileCtx struct {
	id     int
	vcutNo int
	hcutNo int

	cutHeight int
	cutWidth  int

	nTileSize    int
	nTileIt      int
	mTileIt      int
	mCurTileSize int
	kTileSize    int

	weightBanksReduce int
}

func (s *Scheduler) tileCtx(i int) tileCtx {
	t := &s.tiles

	c := tileCtx{
		id:        i,
		vcutNo:    i % s.vcuts,
		hcutNo:    i / s.vcuts,
		cutHeight: s.cfg.NumChannel / s.hcuts,
		cutWidth:  s.cfg.NumBank / s.vcuts,
	}

	c.nTileSize = peRow / s.vcuts
	c.nTileIt = t.nIt[i] / c.nTileSize
	c.mTileIt = t.mIt[i] / s.mTileSize

	c.mCurTileSize = s.mTileSize
	if t.m[i] < s.mTileSize*(c.mTileIt+1) {
		c.mCurTileSize = t.m[i] % s.mTileSize
	}

	c.kTileSize = min(c.cutHeight*peBankIO, t.k[i])

	c.weightBanksReduce = 1
	if s.df == 1 {
		c.weightBanksReduce = peBankIO
	}

	return c
}

// stepTile advances one tile by one cycle. The output-emission gate is
// evaluated after the phase step, so output can run in the same cycle in
// which input feeding brings the tile to input-done.
func (s *Scheduler) stepTile(i int, clk uint64, waitRefresh bool) {
	t := &s.tiles
	c := s.tileCtx(i)

	var wBatch, inBatch signal.Batch
	switch t.phase[i] {
	case phaseFetchWeight:
		wBatch = s.fetchWeight(c, clk, waitRefresh)
	case phaseWeightDone:
		s.finishWeight(i)
	case phaseFeedInput:
		inBatch = s.feedInput(c, clk, waitRefresh)
	case phaseInputDone:
		s.drainInput(i)
	}

	if t.outCnt[i] == 0 {
		t.outputValid[i]++
	}
	if t.outCnt[i] != -1 {
		t.outCnt[i]--
	}

	var outBatch signal.Batch
	outputReady := t.phase[i] == phaseInputDone
	outEnable := c.cutHeight/s.vcuts > 0 || c.vcutNo%2 == 0
	if t.outputValid[i] > 0 && outputReady && outEnable {
		outBatch = s.emitOutput(c, clk, waitRefresh)
	}

	for _, cmd := range wBatch.Cmds {
		s.ctrls[cmd.Channel()].PushWeightCommand(cmd)
	}
	for _, cmd := range inBatch.Cmds {
		s.ctrls[cmd.Channel()].PushInputCommand(cmd, clk)
	}
	for _, cmd := range outBatch.Cmds {
		s.ctrls[cmd.Channel()].PushOutputCommand(cmd)
	}
}
