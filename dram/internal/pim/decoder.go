package pim

import "log"

// Bit widths of the fields packed into a PIM-encoded address,
// least-significant first.
const (
	bwCutNo      = 4
	bwVcuts      = 3
	bwHcuts      = 1
	bwMcf        = 3
	bwUcf        = 3
	bwDf         = 1
	bwMTile      = 4
	bwKernelSize = 5
	bwStride     = 5
	bwDimValue   = 32
	bwBaseRow    = 22
	bwLoadType   = 2
)

func mask(width int) uint64 {
	return (uint64(1) << width) - 1
}

// decode consumes at most the front entry of the PIM transaction queue.
// Partition and load transactions always pop; a compute transaction pops
// only when every tile it selects has its three dimensions loaded.
func (s *Scheduler) decode() {
	if len(s.queue) == 0 {
		return
	}

	addr := s.queue[0].Addr

	switch {
	case addr&1 != 0:
		if s.decodeCompute(addr >> 1) {
			s.popFront()
		}
	case addr&(1<<6) != 0 && addr&(1<<5) != 0:
		s.decodeCutting(addr)
		s.popFront()
	default:
		s.decodeLoad(addr >> 1)
		s.popFront()
	}
}

func (s *Scheduler) popFront() {
	s.queue = s.queue[1:]
}

// decodeCompute turns the selected tiles on. The payload is a bitmask over
// the tiles; the transaction is refused (left in the queue) if any selected
// tile still has a zero dimension.
func (s *Scheduler) decodeCompute(sel uint64) bool {
	if !s.Configured() {
		return false
	}

	t := &s.tiles
	for i := 0; i < s.cuts(); i++ {
		if sel&(1<<i) == 0 {
			continue
		}

		if t.m[i] == 0 || t.n[i] == 0 || t.k[i] == 0 {
			return false
		}
	}

	for i := 0; i < s.cuts(); i++ {
		if sel&(1<<i) != 0 {
			t.inPIM[i] = true
		}
	}

	return true
}

// decodeCutting reads the partition layout and resets every per-tile
// vector. Most fields are log2-encoded.
func (s *Scheduler) decodeCutting(addr uint64) {
	// trans_type, cut_no, and loadType occupy the low bits but are
	// reserved on this command.
	addr >>= 1 + bwCutNo + bwLoadType

	s.vcuts = 1 << (addr & mask(bwVcuts))
	addr >>= bwVcuts
	s.hcuts = 1 << (addr & mask(bwHcuts))
	addr >>= bwHcuts
	s.mcf = 1 << (addr & mask(bwMcf))
	addr >>= bwMcf
	s.ucf = 1 << (addr & mask(bwUcf))
	addr >>= bwUcf
	s.df = int(addr & mask(bwDf))
	addr >>= bwDf

	s.mc = s.mcf * s.ucf
	if s.vcuts*s.hcuts > 1 {
		for _, c := range s.ctrls {
			c.SetMultiTenant(true)
		}
	}

	s.mTileSize = 1 << (addr & mask(bwMTile))
	addr >>= bwMTile
	s.vcutsNext = 1 << (addr & mask(bwVcuts))
	addr >>= bwVcuts
	s.hcutsNext = 1 << (addr & mask(bwHcuts))
	addr >>= bwHcuts
	s.kernelSize = int(addr & mask(bwKernelSize))
	addr >>= bwKernelSize
	s.stride = int(addr & mask(bwStride))

	if s.mTileSize > 2048 {
		log.Panicf("M tile size %d exceeds 2048", s.mTileSize)
	}

	s.tiles.reset(s.cuts())
}

// decodeLoad records one operand dimension and its base row for one tile.
func (s *Scheduler) decodeLoad(addr uint64) {
	cutNo := int(addr & mask(bwCutNo))
	addr >>= 4
	loadType := int(addr & mask(bwLoadType))
	addr >>= bwLoadType
	dimValue := int(addr & mask(bwDimValue))
	addr >>= bwDimValue
	baseRow := int(addr & mask(bwBaseRow))

	t := &s.tiles
	switch loadType {
	case 0:
		t.baseRowsW[cutNo] = baseRow
		t.m[cutNo] = dimValue
	case 1:
		t.baseRowsOut[cutNo] = baseRow
		t.k[cutNo] = dimValue
	case 2:
		t.baseRowsIn[cutNo] = baseRow
		t.n[cutNo] = dimValue
	default:
		log.Panicf("invalid load type %d", loadType)
	}
}
