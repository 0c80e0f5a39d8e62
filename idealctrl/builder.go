package idealctrl

// Builder can build fixed-latency controllers.
type Builder struct {
	channelID       int
	numBankPerGroup int
	latency         uint64
	refreshInterval uint64
	refreshDuration uint64
	refreshLead     uint64
}

// MakeBuilder creates a builder with default configuration.
func MakeBuilder() Builder {
	return Builder{
		numBankPerGroup: 4,
		latency:         120,
	}
}

// WithChannelID sets the channel the controller serves.
func (b Builder) WithChannelID(id int) Builder {
	b.channelID = id
	return b
}

// WithNumBankPerGroup sets the number of banks per bank group.
func (b Builder) WithNumBankPerGroup(n int) Builder {
	b.numBankPerGroup = n
	return b
}

// WithLatency sets the fixed completion latency for ordinary traffic.
func (b Builder) WithLatency(n uint64) Builder {
	b.latency = n
	return b
}

// WithRefreshWindow sets the refresh interval, duration, and the lead
// time during which the controller reports an imminent refresh. A zero
// interval disables refresh.
func (b Builder) WithRefreshWindow(interval, duration, lead uint64) Builder {
	b.refreshInterval = interval
	b.refreshDuration = duration
	b.refreshLead = lead

	return b
}

// Build creates the controller.
func (b Builder) Build(name string) *Comp {
	return &Comp{
		name:            name,
		channelID:       b.channelID,
		numBankPerGroup: b.numBankPerGroup,
		latency:         b.latency,
		refreshInterval: b.refreshInterval,
		refreshDuration: b.refreshDuration,
		refreshLead:     b.refreshLead,
		openRows:        map[int]int{},
	}
}
