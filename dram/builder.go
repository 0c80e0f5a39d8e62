package dram

import (
	"fmt"

	"github.com/sarchlab/pimsim/dram/internal/addressmapping"
	"github.com/sarchlab/pimsim/dram/internal/pim"
	"github.com/sarchlab/pimsim/idealctrl"
	"github.com/sarchlab/pimsim/pimstats"
)

// Protocol defines the category of the memory system.
type Protocol int

// A list of all supported DRAM protocols.
const (
	DDR3 Protocol = iota
	DDR4
	GDDR5
	GDDR6
	LPDDR4
	HBM
	HBM2
	HMC
)

// Builder can build new memory systems.
type Builder struct {
	protocol Protocol

	numChannel   int
	numRank      int
	numBankGroup int
	numBank      int
	numRow       int
	numCol       int
	busWidth     int
	burstLength  int

	addrOrder string

	tCCDL  int
	tCCDS  int
	tRCDRD int
	tRCDWR int

	refreshInterval int
	refreshDuration int
	refreshLead     int

	pimQueueDepth int
	epochPeriod   uint64
	idealLatency  uint64

	ctrlProvider func(channel int) Controller
	tracer       pimstats.AddrTracer
	epochWriter  *pimstats.EpochWriter
	finalWriter  *pimstats.FinalWriter
}

// MakeBuilder creates a builder with default configuration.
func MakeBuilder() Builder {
	b := Builder{
		protocol:        HBM2,
		numChannel:      8,
		numRank:         1,
		numBankGroup:    4,
		numBank:         4,
		numRow:          16384,
		numCol:          64,
		busWidth:        128,
		burstLength:     4,
		addrOrder:       "RoCoBaBgRaCh",
		tCCDL:           4,
		tCCDS:           2,
		tRCDRD:          24,
		tRCDWR:          20,
		refreshInterval: 6240,
		refreshDuration: 208,
		refreshLead:     8,
		pimQueueDepth:   16,
		epochPeriod:     100000,
		idealLatency:    120,
		tracer:          pimstats.NopTracer{},
	}

	return b
}

// WithProtocol sets the protocol of the memory system.
func (b Builder) WithProtocol(protocol Protocol) Builder {
	b.protocol = protocol
	return b
}

// WithNumChannel sets the number of channels, each owned by one
// controller.
func (b Builder) WithNumChannel(n int) Builder {
	b.numChannel = n
	return b
}

// WithNumRank sets the number of ranks per channel.
func (b Builder) WithNumRank(n int) Builder {
	b.numRank = n
	return b
}

// WithNumBankGroup sets the number of bank groups per rank.
func (b Builder) WithNumBankGroup(n int) Builder {
	b.numBankGroup = n
	return b
}

// WithNumBank sets the number of banks per bank group.
func (b Builder) WithNumBank(n int) Builder {
	b.numBank = n
	return b
}

// WithNumRow sets the number of rows per bank.
func (b Builder) WithNumRow(n int) Builder {
	b.numRow = n
	return b
}

// WithNumCol sets the number of columns per row.
func (b Builder) WithNumCol(n int) Builder {
	b.numCol = n
	return b
}

// WithBusWidth sets the number of bits transferred out of the banks at the
// same time.
func (b Builder) WithBusWidth(n int) Builder {
	b.busWidth = n
	return b
}

// WithBurstLength sets the number of accesses that take place as one
// group.
func (b Builder) WithBurstLength(n int) Builder {
	b.burstLength = n
	return b
}

// WithAddrOrder sets the address bit layout, listing the fields from most
// to least significant, e.g., "RoCoBaBgRaCh".
func (b Builder) WithAddrOrder(order string) Builder {
	b.addrOrder = order
	return b
}

// WithTiming sets the column-to-column and row-to-column delays the PIM
// scheduler paces its counters with.
func (b Builder) WithTiming(tCCDL, tCCDS, tRCDRD, tRCDWR int) Builder {
	b.tCCDL = tCCDL
	b.tCCDS = tCCDS
	b.tRCDRD = tRCDRD
	b.tRCDWR = tRCDWR

	return b
}

// WithRefreshWindow sets the refresh interval, the refresh duration, and
// the lead time during which controllers report an imminent refresh.
func (b Builder) WithRefreshWindow(interval, duration, lead int) Builder {
	b.refreshInterval = interval
	b.refreshDuration = duration
	b.refreshLead = lead

	return b
}

// WithPIMQueueDepth bounds the queue of pending PIM transactions.
func (b Builder) WithPIMQueueDepth(n int) Builder {
	b.pimQueueDepth = n
	return b
}

// WithEpochPeriod sets the epoch stats cadence in cycles. Zero disables
// epoch output.
func (b Builder) WithEpochPeriod(n uint64) Builder {
	b.epochPeriod = n
	return b
}

// WithIdealLatency sets the fixed completion latency of the ideal system.
func (b Builder) WithIdealLatency(n uint64) Builder {
	b.idealLatency = n
	return b
}

// WithControllerProvider sets the factory that builds one controller per
// channel.
func (b Builder) WithControllerProvider(
	provider func(channel int) Controller,
) Builder {
	b.ctrlProvider = provider
	return b
}

// WithAddrTracer installs an address-trace sink. Every accepted
// transaction is reported to it.
func (b Builder) WithAddrTracer(tracer pimstats.AddrTracer) Builder {
	b.tracer = tracer
	return b
}

// WithStatWriters installs the epoch and final stat writers.
func (b Builder) WithStatWriters(
	epoch *pimstats.EpochWriter,
	final *pimstats.FinalWriter,
) Builder {
	b.epochWriter = epoch
	b.finalWriter = final

	return b
}

// Build creates a JEDEC memory system with the PIM scheduler embedded.
func (b Builder) Build(name string) *JedecSystem {
	if b.protocol == HMC {
		panic(fmt.Errorf("cannot build system %s with an HMC config", name))
	}
	if b.ctrlProvider == nil {
		b.ctrlProvider = func(channel int) Controller {
			return idealctrl.MakeBuilder().
				WithChannelID(channel).
				WithNumBankPerGroup(b.numBank).
				WithLatency(b.idealLatency).
				WithRefreshWindow(
					uint64(b.refreshInterval),
					uint64(b.refreshDuration),
					uint64(b.refreshLead)).
				Build(fmt.Sprintf("%s.Ctrl%d", name, channel))
		}
	}

	mapper := addressmapping.MakeMapper(b.addrOrder, b.geometry())

	s := &JedecSystem{
		name:        name,
		mapper:      mapper,
		epochPeriod: b.epochPeriod,
		epochWriter: b.epochWriter,
		finalWriter: b.finalWriter,
	}
	s.tracer = b.tracer

	pimCtrls := make([]pim.Controller, b.numChannel)
	for i := 0; i < b.numChannel; i++ {
		c := b.ctrlProvider(i)
		s.ctrls = append(s.ctrls, c)
		pimCtrls[i] = c
	}

	s.sched = pim.NewScheduler(pim.Config{
		NumChannel:      b.numChannel,
		NumBank:         b.numBankGroup * b.numBank,
		NumBankPerGroup: b.numBank,
		NumCol:          b.numCol,
		BurstLength:     b.burstLength,
		TCCDL:           b.tCCDL,
		TRCDRD:          b.tRCDRD,
		TRCDWR:          b.tRCDWR,
		QueueDepth:      b.pimQueueDepth,
	}, mapper, pimCtrls)

	totalChannels += b.numChannel

	return s
}

// BuildIdeal creates the fixed-latency peer system.
func (b Builder) BuildIdeal(name string) *IdealSystem {
	s := &IdealSystem{
		name:    name,
		latency: b.idealLatency,
	}
	s.tracer = b.tracer

	return s
}

func (b Builder) geometry() addressmapping.Geometry {
	return addressmapping.Geometry{
		NumChannel:   b.numChannel,
		NumRank:      b.numRank,
		NumBankGroup: b.numBankGroup,
		NumBank:      b.numBank,
		NumRow:       b.numRow,
		NumCol:       b.numCol,
		BurstLength:  b.burstLength,
		BusWidth:     b.busWidth,
	}
}
