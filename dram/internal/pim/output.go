package pim

import (
	"fmt"
	"log"

	"github.com/sarchlab/pimsim/dram/signal"
)

// emitOutput builds and negotiates the output-write batch for one tile.
// Writes land on a permuted vertical cut so concurrent tiles spread their
// output channels. When the data format flag is set the output is
// reshaped: the M dimension collapses by the PE-row width and N widens to
// a full PE row. Draining the last output tile turns the tile off, along
// with its paired neighbor on narrow cuts.
func (s *Scheduler) emitOutput(
	c tileCtx,
	clk uint64,
	waitRefresh bool,
) signal.Batch {
	t := &s.tiles
	i := c.id
	colPerRow := s.cfg.NumCol / s.cfg.BurstLength

	vcutOutNo := (c.vcutNo + t.nOutTileIt[i]) % s.vcuts
	if t.m[i] == 1 {
		vcutOutNo = c.vcutNo
	} else if s.vcuts == 16 {
		vcutOutNo = c.vcutNo / 2
	}

	mTileSizeOut := s.mTileSize
	if s.df == 1 {
		mTileSizeOut = (s.mTileSize / peRow) * s.mcf
	}
	mOutTileIt := t.mOutIt[i] / mTileSizeOut

	mOut := t.m[i]
	if s.df == 1 {
		mOut = max(1, t.m[i]*s.mcf/peRow)
	}
	mOutCurTileSize := mTileSizeOut
	if mOut < mTileSizeOut*(mOutTileIt+1) {
		mOutCurTileSize = mOut % mTileSizeOut
	}

	nOut := t.n[i]
	nTileSizeOut := c.nTileSize
	if s.df == 1 {
		nOut = peRow
		nTileSizeOut = peRow
	}

	nTileNum := (t.n[i]-1)/nTileSizeOut + 1
	nTileNumCh := nTileNum / s.vcuts
	if nTileNum%s.vcuts > t.nOutTileIt[i]%s.vcuts {
		nTileNumCh++
	}
	nTileItCh := t.nOutTileIt[i] / s.vcuts

	colOffset := mOutTileIt*(mTileSizeOut*nTileNumCh) +
		nTileItCh*mOutCurTileSize + t.mOutIt[i]%mTileSizeOut

	cutHeightOut := c.cutHeight / s.vcuts
	if c.cutHeight < s.vcuts {
		cutHeightOut = 1
	}

	kBound := s.mc
	if s.df == 1 || t.m[i] == 1 {
		kBound = 1
	}

	var batch signal.Batch

build:
	for j := 0; j < cutHeightOut; j++ {
		ch := c.hcutNo*c.cutHeight + vcutOutNo*cutHeightOut + j

		for k := 0; k < kBound; k++ {
			bank := c.vcutNo*c.cutWidth + k*(c.cutWidth/s.mc)
			if s.df != 1 {
				bank++
			}

			addr := signal.Address{
				Channel:   ch,
				BankGroup: bank / s.cfg.NumBankPerGroup,
				Bank:      bank % s.cfg.NumBankPerGroup,
				Row:       t.baseRowsOut[i] + colOffset/colPerRow,
				Column:    colOffset % colPerRow,
			}

			kind := signal.KindPIMWrite
			if addr.Column == colPerRow-1 || t.mOutIt[i]+1 == mOut {
				kind = signal.KindPIMWritePrecharge
			}

			cmd := signal.Command{
				Kind:    kind,
				Addr:    addr,
				HexAddr: s.mapper.Unmap(addr),
			}

			ready := s.ctrls[ch].GetReadyCommand(cmd, clk)
			if !ready.IsValid() {
				batch.Clear()
				break build
			}

			batch.Push(ready)
			if batch.Mixed() {
				batch.Clear()
				break build
			}
		}
	}

	if batch.Empty() {
		return batch
	}

	if batch.Leader() == signal.KindPIMActivate {
		if t.outActPlaced[i] || waitRefresh {
			batch.Clear()
			return batch
		}

		t.outActPlaced[i] = true

		return batch
	}

	if batch.Leader() == signal.KindPIMWritePrecharge {
		t.outActPlaced[i] = false
	}

	t.mOutIt[i]++
	if t.mOutIt[i]%mTileSizeOut == 0 || t.mOutIt[i] == mOut {
		t.mOutIt[i] = mTileSizeOut * mOutTileIt
		t.nOutTileIt[i]++

		if t.nOutTileIt[i]*nTileSizeOut >= nOut {
			t.nOutTileIt[i] = 0
			t.mOutIt[i] = mTileSizeOut * (mOutTileIt + 1)

			if t.mOutIt[i] >= mOut {
				if t.inCnt[i] != -1 {
					log.Panicf(
						"tile %d drained output with input pending", i)
				}

				fmt.Printf(
					"%d Output Exhausted. Array %d. Turn off PIM mode.\n",
					clk, i)

				t.inPIM[i] = false
				if c.cutHeight < s.vcuts {
					t.inPIM[i+1] = false
				}

				s.turnOff = true
				for j := range t.inPIM {
					if t.inPIM[j] {
						s.turnOff = false
					}
				}
			}
		}

		t.outputValid[i]--
		if c.cutHeight < s.vcuts {
			t.outputValid[i+1]--
		}
	}

	return batch
}
