package pim

import (
	"fmt"
	"log"

	"github.com/sarchlab/pimsim/dram/signal"
)

// feedInput builds and negotiates the input-read batch for one tile. A
// mixed batch keeps only the prerequisites that still have to be placed;
// reads additionally wait for the post-weight delay to expire. A committed
// read advances the M iterator and, at tile boundaries, rolls the K, N and
// M tile cursors, arming the input- and output-drain counters.
func (s *Scheduler) feedInput(
	c tileCtx,
	clk uint64,
	waitRefresh bool,
) signal.Batch {
	t := &s.tiles
	i := c.id
	colPerRow := s.cfg.NumCol / s.cfg.BurstLength

	t.vpuCnt[i] = max(0, t.vpuCnt[i]-1)

	colOffset := c.mTileIt*(s.mTileSize*((t.k[i]-1)/c.kTileSize+1)) +
		t.kTileIt[i]*c.mCurTileSize + t.mIt[i]%s.mTileSize

	var batch signal.Batch
	for j := 0; j < c.cutHeight; j++ {
		for k := 0; k < s.mc; k++ {
			ch := c.hcutNo*c.cutHeight + j
			bank := c.vcutNo*c.cutWidth + k*(c.cutWidth/s.mc)

			addr := signal.Address{
				Channel:   ch,
				BankGroup: bank / s.cfg.NumBankPerGroup,
				Bank:      bank % s.cfg.NumBankPerGroup,
				Row:       t.baseRowsIn[i] + colOffset/colPerRow,
				Column:    colOffset % colPerRow,
			}

			// Close the row only on the very last input row so the
			// row stays open between M tiles.
			closeRow := t.mIt[i]+1 == t.m[i]
			if s.df == 1 {
				closeRow = closeRow &&
					(t.kTileIt[i]+1)*c.kTileSize >= t.k[i]
			}

			kind := signal.KindPIMRead
			if addr.Column == colPerRow-1 || closeRow {
				kind = signal.KindPIMReadPrecharge
			}

			cmd := signal.Command{
				Kind:    kind,
				Addr:    addr,
				HexAddr: s.mapper.Unmap(addr),
			}

			ready := s.ctrls[ch].GetReadyCommand(cmd, clk)
			if !ready.IsValid() {
				batch.Clear()
				break
			}

			batch.Push(ready)
		}
	}

	if s.cuts() > 1 && batch.Len() != c.cutHeight {
		batch.Clear()
		return batch
	}

	if batch.Mixed() {
		batch.DropDataCommands()
	}

	if batch.Empty() {
		return batch
	}

	if batch.Leader() == signal.KindPIMActivate {
		if (!batch.Mixed() && t.inActPlaced[i]) || waitRefresh {
			batch.Clear()
			return batch
		}

		t.inActPlaced[i] = true

		return batch
	}

	if batch.Leader() == signal.KindPIMReadPrecharge {
		t.inActPlaced[i] = false
	}
	if t.vpuCnt[i] != 0 {
		batch.Clear()
		return batch
	}

	if s.mTileSize <= peRow/s.vcuts {
		log.Panicf("M tile size %d must exceed %d",
			s.mTileSize, peRow/s.vcuts)
	}

	if (t.kTileIt[i]+1)*c.kTileSize >= t.k[i] &&
		t.mIt[i]%s.mTileSize == 0 {
		t.outCnt[i] = max(1, s.cfg.TCCDL*19-s.cfg.TRCDWR)
	}

	t.mIt[i]++
	if t.mIt[i]%s.mTileSize == 0 || t.mIt[i] == t.m[i] {
		t.inCnt[i] = max(1,
			s.cfg.TCCDL*max(peRow/(s.vcuts*s.mc), peBankIO)-s.cfg.TRCDRD)
		t.phase[i]++
		t.mIt[i] = s.mTileSize * c.mTileIt
		t.kTileIt[i]++

		if t.kTileIt[i]*c.kTileSize >= t.k[i] {
			t.kTileIt[i] = 0
			t.nIt[i] = c.nTileSize * (c.nTileIt + 1)

			if t.nIt[i] >= t.n[i] {
				t.nIt[i] = 0
				t.mIt[i] = s.mTileSize * (c.mTileIt + 1)

				if t.mIt[i] >= t.m[i] {
					fmt.Printf("%d End of Computation %d\n", clk, i)
					t.inCnt[i] = -1
				}
			}
		}
	}

	return batch
}

// drainInput counts the input drain down. The tile starts its next weight
// fetch once the countdown expires and no output batch is pending; a
// countdown of -1 means the tile has no more input to feed.
func (s *Scheduler) drainInput(i int) {
	t := &s.tiles

	if t.inCnt[i] == -1 {
		return
	}

	t.inCnt[i] = max(0, t.inCnt[i]-1)
	if t.inCnt[i] == 0 && t.outputValid[i] == 0 {
		t.phase[i] = phaseFetchWeight
	}
}
