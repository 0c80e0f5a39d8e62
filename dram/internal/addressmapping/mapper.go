// Package addressmapping translates between flat hex addresses and DRAM
// locations, and back.
package addressmapping

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/sarchlab/pimsim/dram/signal"
)

// A Mapper converts a hex address into a channel/rank/bankgroup/bank/row/
// column tuple and back. Unmap is the inverse of Map for every location
// that the geometry can express.
type Mapper interface {
	Map(hexAddr uint64) signal.Address
	Unmap(addr signal.Address) uint64
	Channel(hexAddr uint64) int
}

// Geometry describes the organization that the mapper bit-slices over.
type Geometry struct {
	NumChannel   int
	NumRank      int
	NumBankGroup int
	NumBank      int // banks per bank group
	NumRow       int
	NumCol       int
	BurstLength  int
	BusWidth     int
}

type field struct {
	pos  int
	mask uint64
}

type mapperImpl struct {
	shiftBits int

	ch, ra, bg, ba, ro, co field
}

// MakeMapper builds a mapper for the given address order. The order lists
// the fields from most to least significant, two letters per field, e.g.,
// "RoCoBaBgRaCh". Column bits covered by the burst length are below the
// mapped fields and are shifted away together with the bus offset.
func MakeMapper(order string, geo Geometry) Mapper {
	widths := map[string]int{
		"ch": log2(geo.NumChannel),
		"ra": log2(geo.NumRank),
		"bg": log2(geo.NumBankGroup),
		"ba": log2(geo.NumBank),
		"ro": log2(geo.NumRow),
		"co": log2(geo.NumCol) - log2(geo.BurstLength),
	}

	if len(order)%2 != 0 {
		panic(fmt.Errorf("malformed address order %q", order))
	}

	m := &mapperImpl{
		shiftBits: log2(geo.BusWidth/8) + log2(geo.BurstLength),
	}

	pos := 0
	for i := len(order); i > 0; i -= 2 {
		name := strings.ToLower(order[i-2 : i])
		width, ok := widths[name]
		if !ok {
			panic(fmt.Errorf("unknown address field %q in order %q",
				name, order))
		}

		f := field{pos: pos, mask: (uint64(1) << width) - 1}
		switch name {
		case "ch":
			m.ch = f
		case "ra":
			m.ra = f
		case "bg":
			m.bg = f
		case "ba":
			m.ba = f
		case "ro":
			m.ro = f
		case "co":
			m.co = f
		}

		pos += width
	}

	return m
}

func (m *mapperImpl) Map(hexAddr uint64) signal.Address {
	a := hexAddr >> m.shiftBits

	return signal.Address{
		Channel:   int((a >> m.ch.pos) & m.ch.mask),
		Rank:      int((a >> m.ra.pos) & m.ra.mask),
		BankGroup: int((a >> m.bg.pos) & m.bg.mask),
		Bank:      int((a >> m.ba.pos) & m.ba.mask),
		Row:       int((a >> m.ro.pos) & m.ro.mask),
		Column:    int((a >> m.co.pos) & m.co.mask),
	}
}

func (m *mapperImpl) Unmap(addr signal.Address) uint64 {
	a := (uint64(addr.Channel) & m.ch.mask) << m.ch.pos
	a |= (uint64(addr.Rank) & m.ra.mask) << m.ra.pos
	a |= (uint64(addr.BankGroup) & m.bg.mask) << m.bg.pos
	a |= (uint64(addr.Bank) & m.ba.mask) << m.ba.pos
	a |= (uint64(addr.Row) & m.ro.mask) << m.ro.pos
	a |= (uint64(addr.Column) & m.co.mask) << m.co.pos

	return a << m.shiftBits
}

func (m *mapperImpl) Channel(hexAddr uint64) int {
	return int((hexAddr >> m.shiftBits >> m.ch.pos) & m.ch.mask)
}

func log2(n int) int {
	if n <= 0 || n&(n-1) != 0 {
		panic(fmt.Errorf("%d is not a positive power of two", n))
	}

	return bits.TrailingZeros(uint(n))
}
