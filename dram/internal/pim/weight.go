package pim

import "github.com/sarchlab/pimsim/dram/signal"

// fetchWeight builds and negotiates the weight-read batch for one tile.
// One read command is requested per weight bank across the tile's channel
// rows; the batch commits only when every controller agrees on the same
// command kind. A committed read advances the N iterator; crossing the
// per-bank boundary moves the tile to weight-done.
func (s *Scheduler) fetchWeight(
	c tileCtx,
	clk uint64,
	waitRefresh bool,
) signal.Batch {
	t := &s.tiles
	i := c.id
	colPerRow := s.cfg.NumCol / s.cfg.BurstLength

	nTileSizePerBank := min(t.n[i],
		(c.nTileSize-1)/(c.cutWidth/c.weightBanksReduce)+1)
	colOffset := c.nTileIt*(nTileSizePerBank*((t.k[i]-1)/c.kTileSize+1)) +
		t.kTileIt[i]*nTileSizePerBank + t.nIt[i]%c.nTileSize

	var batch signal.Batch

build:
	for j := 0; j < c.cutHeight; j++ {
		for k := 0; k < c.cutWidth/c.weightBanksReduce; k++ {
			ch := c.hcutNo*c.cutHeight + j
			bank := c.vcutNo*c.cutWidth + k*c.weightBanksReduce

			addr := signal.Address{
				Channel:   ch,
				BankGroup: bank / s.cfg.NumBankPerGroup,
				Bank:      bank % s.cfg.NumBankPerGroup,
				Row:       t.baseRowsW[i] + colOffset/colPerRow,
				Column:    colOffset % colPerRow,
			}

			kind := signal.KindPIMRead
			bankBoundary := min(t.n[i],
				(peRow/s.cfg.NumBank)*c.weightBanksReduce)
			if (addr.Column+1)%bankBoundary == 0 ||
				(addr.Column+1)%colPerRow == 0 {
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
		if t.wActPlaced[i] || waitRefresh {
			batch.Clear()
			return batch
		}

		t.wActPlaced[i] = true

		return batch
	}

	if batch.Leader() == signal.KindPIMReadPrecharge {
		t.wActPlaced[i] = false
	}
	if s.df == 1 && batch.Leader() == signal.KindPrecharge {
		return batch
	}

	t.nIt[i]++
	if t.nIt[i]%nTileSizePerBank == 0 &&
		(c.nTileSize == nTileSizePerBank || t.nIt[i]%c.nTileSize != 0) {
		t.nIt[i] = c.nTileSize * c.nTileIt
		t.phase[i]++
	}

	return batch
}

// finishWeight moves the tile to input feeding and arms the post-weight
// delay. A lone tile holds at weight-done while any peer entry is still
// fetching or draining, keeping single-tile runs ordered.
func (s *Scheduler) finishWeight(i int) {
	t := &s.tiles

	t.phase[i]++
	t.vpuCnt[i] = 1

	if s.cuts() == 1 {
		for j := range t.phase {
			if t.phase[j] == phaseFetchWeight ||
				t.phase[j] == phaseInputDone {
				t.phase[i]--
				break
			}
		}
	}
}
