package dram

import "github.com/sarchlab/pimsim/dram/signal"

// IdealSystem completes every transaction a fixed number of cycles after
// it was added. There is no bank or controller modeling; it exists as a
// latency-only stand-in for the JEDEC system.
type IdealSystem struct {
	baseSystem

	name    string
	latency uint64
	buffer  []signal.Transaction
}

// Name returns the name of the system.
func (s *IdealSystem) Name() string {
	return s.name
}

// WillAcceptPIM always accepts.
func (s *IdealSystem) WillAcceptPIM() bool {
	return true
}

// AddPIM buffers the transaction like an ordinary read.
func (s *IdealSystem) AddPIM(hexAddr uint64) bool {
	return s.Add(hexAddr, false)
}

// WillAccept always accepts; the buffer is unbounded.
func (s *IdealSystem) WillAccept(hexAddr uint64, isWrite bool) bool {
	return true
}

// Add buffers one transaction for completion latency cycles later.
func (s *IdealSystem) Add(hexAddr uint64, isWrite bool) bool {
	kind := "READ"
	if isWrite {
		kind = "WRITE"
	}
	s.tracer.Trace(hexAddr, kind, s.clk)

	s.buffer = append(s.buffer, signal.Transaction{
		Addr:       hexAddr,
		IsWrite:    isWrite,
		AddedCycle: s.clk,
	})
	s.lastReqClk = s.clk

	return true
}

// Tick completes every buffered transaction whose latency has elapsed.
func (s *IdealSystem) Tick() {
	kept := s.buffer[:0]
	for _, trans := range s.buffer {
		if s.clk-trans.AddedCycle >= s.latency {
			if trans.IsWrite {
				s.writeCB(trans.Addr)
			} else {
				s.readCB(trans.Addr)
			}

			continue
		}

		kept = append(kept, trans)
	}
	s.buffer = kept

	s.clk++
}
