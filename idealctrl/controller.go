// Package idealctrl provides a channel controller with no timing model
// beyond a fixed completion latency. It tracks which row each bank holds
// open, so command negotiation still demands ACTIVATE and PRECHARGE
// prerequisites, and it reports periodic refresh windows. It is the
// default controller for end-to-end runs; detailed bank timing lives in
// external controllers.
package idealctrl

import "github.com/sarchlab/pimsim/dram/signal"

// Comp is a fixed-latency channel controller.
type Comp struct {
	name      string
	channelID int

	numBankPerGroup int
	latency         uint64

	refreshInterval uint64
	refreshDuration uint64
	refreshLead     uint64

	clk      uint64
	openRows map[int]int

	queue []pendingTrans

	multiTenant bool

	weightCmds   []signal.Command
	inputCmds    []signal.Command
	releaseTimes []uint64
	outputCmds   []signal.Command

	stats Stats
}

type pendingTrans struct {
	trans signal.Transaction
	done  uint64
}

// Stats is the per-channel counter snapshot reported at each epoch and at
// the end of the run.
type Stats struct {
	Channel int    `json:"channel"`
	Cycle   uint64 `json:"cycle"`

	NumReads  uint64 `json:"num_reads"`
	NumWrites uint64 `json:"num_writes"`

	NumActivates  uint64 `json:"num_activates"`
	NumPrecharges uint64 `json:"num_precharges"`

	NumWeightCmds uint64 `json:"num_weight_cmds"`
	NumInputCmds  uint64 `json:"num_input_cmds"`
	NumOutputCmds uint64 `json:"num_output_cmds"`
}

// Name returns the name of the controller.
func (c *Comp) Name() string {
	return c.name
}

// GetReadyCommand returns the command that can issue toward the target of
// cmd this cycle: the command itself when the row is open, an ACTIVATE
// when the bank is closed, or a PRECHARGE when another row occupies the
// bank.
func (c *Comp) GetReadyCommand(
	cmd signal.Command,
	clk uint64,
) signal.Command {
	open, ok := c.openRows[c.bankIndex(cmd.Addr)]
	if !ok {
		return signal.Command{
			Kind:    signal.KindPIMActivate,
			Addr:    cmd.Addr,
			HexAddr: cmd.HexAddr,
		}
	}

	if open == cmd.Addr.Row {
		return cmd
	}

	return signal.Command{
		Kind:    signal.KindPrecharge,
		Addr:    cmd.Addr,
		HexAddr: cmd.HexAddr,
	}
}

// WillAcceptTransaction always accepts; the queue is unbounded.
func (c *Comp) WillAcceptTransaction(hexAddr uint64, isWrite bool) bool {
	return true
}

// AddTransaction buffers one ordinary transaction for completion after
// the fixed latency.
func (c *Comp) AddTransaction(trans signal.Transaction) {
	c.queue = append(c.queue, pendingTrans{
		trans: trans,
		done:  c.clk + c.latency,
	})

	if trans.IsWrite {
		c.stats.NumWrites++
	} else {
		c.stats.NumReads++
	}
}

// ReturnDoneTrans pops one completed transaction, or reports DirNone.
func (c *Comp) ReturnDoneTrans(clk uint64) (uint64, signal.Dir) {
	for i, p := range c.queue {
		if p.done > clk {
			continue
		}

		c.queue = append(c.queue[:i], c.queue[i+1:]...)

		if p.trans.IsWrite {
			return p.trans.Addr, signal.DirWrite
		}

		return p.trans.Addr, signal.DirRead
	}

	return 0, signal.DirNone
}

// Tick advances the controller clock. Entering a refresh window closes
// every open row.
func (c *Comp) Tick() {
	c.clk++

	if c.refreshInterval != 0 &&
		c.clk%c.refreshInterval == c.refreshStart() {
		c.openRows = map[int]int{}
	}
}

// refreshStart returns the position within the interval where the refresh
// window begins. The refresh occupies the tail of each interval.
func (c *Comp) refreshStart() uint64 {
	return c.refreshInterval - c.refreshDuration
}

// RefreshComing reports that a refresh starts within the lead window.
func (c *Comp) RefreshComing() bool {
	if c.refreshInterval == 0 {
		return false
	}

	pos := c.clk % c.refreshInterval

	return pos < c.refreshStart() && c.refreshStart()-pos <= c.refreshLead
}

// RefreshComingSoon reports the extended pre-refresh window.
func (c *Comp) RefreshComingSoon() bool {
	if c.refreshInterval == 0 {
		return false
	}

	pos := c.clk % c.refreshInterval

	return pos < c.refreshStart() &&
		c.refreshStart()-pos <= 2*c.refreshLead
}

// InRefresh reports that a refresh is in progress.
func (c *Comp) InRefresh() bool {
	if c.refreshInterval == 0 {
		return false
	}

	return c.clk%c.refreshInterval >= c.refreshStart()
}

// SetMultiTenant marks the channel as shared by concurrent tiles.
func (c *Comp) SetMultiTenant(enable bool) {
	c.multiTenant = enable
}

// PushWeightCommand accepts one committed weight-read command.
func (c *Comp) PushWeightCommand(cmd signal.Command) {
	c.weightCmds = append(c.weightCmds, cmd)
	c.stats.NumWeightCmds++
	c.applyCommand(cmd)
}

// PushInputCommand accepts one committed input-read command together with
// its release time.
func (c *Comp) PushInputCommand(cmd signal.Command, releaseTime uint64) {
	c.inputCmds = append(c.inputCmds, cmd)
	c.releaseTimes = append(c.releaseTimes, releaseTime)
	c.stats.NumInputCmds++
	c.applyCommand(cmd)
}

// PushOutputCommand accepts one committed output-write command.
func (c *Comp) PushOutputCommand(cmd signal.Command) {
	c.outputCmds = append(c.outputCmds, cmd)
	c.stats.NumOutputCmds++
	c.applyCommand(cmd)
}

// applyCommand updates the open-row bookkeeping with a committed command.
func (c *Comp) applyCommand(cmd signal.Command) {
	bank := c.bankIndex(cmd.Addr)

	switch cmd.Kind {
	case signal.KindPIMActivate:
		c.openRows[bank] = cmd.Addr.Row
		c.stats.NumActivates++
	case signal.KindPIMReadPrecharge, signal.KindPIMWritePrecharge,
		signal.KindPrecharge:
		delete(c.openRows, bank)
		c.stats.NumPrecharges++
	}
}

func (c *Comp) bankIndex(addr signal.Address) int {
	return addr.BankGroup*c.numBankPerGroup + addr.Bank
}

// EpochStats returns the counter snapshot for the ending epoch.
func (c *Comp) EpochStats(clk uint64) any {
	s := c.stats
	s.Channel = c.channelID
	s.Cycle = clk

	return s
}

// FinalStats returns the counter snapshot for the whole run.
func (c *Comp) FinalStats(clk uint64) any {
	return c.EpochStats(clk)
}
