package signal

// Dir reports the direction of a completed transaction.
type Dir int

// Directions returned by a controller when draining completions. DirNone
// means no completion is ready this cycle.
const (
	DirRead Dir = iota
	DirWrite
	DirNone
)

// A Transaction is one host request. PIM-encoded transactions carry only an
// address; ordinary traffic additionally carries a direction.
type Transaction struct {
	Addr    uint64
	IsWrite bool

	// AddedCycle records when the transaction entered the system. The
	// fixed-latency system completes it latency cycles later, at cycle
	// AddedCycle+latency.
	AddedCycle uint64
}
