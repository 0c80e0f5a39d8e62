package pimstats

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// An AddrTracer records every transaction the memory system accepts. It
// has no effect on scheduling.
type AddrTracer interface {
	Trace(hexAddr uint64, kind string, clk uint64)
}

// NopTracer discards every record.
type NopTracer struct{}

// Trace does nothing.
func (NopTracer) Trace(hexAddr uint64, kind string, clk uint64) {}

// CSVAddrTracer stores the address trace in a CSV file.
type CSVAddrTracer struct {
	path string
	file *os.File

	records    []addrRecord
	bufferSize int
}

type addrRecord struct {
	HexAddr uint64 `json:"addr"`
	Kind    string `json:"kind"`
	Cycle   uint64 `json:"cycle"`
}

// NewCSVAddrTracer creates a CSV-backed address tracer.
func NewCSVAddrTracer(path string) *CSVAddrTracer {
	t := &CSVAddrTracer{
		path:       path,
		bufferSize: 1000,
	}
	t.init()

	return t
}

func (t *CSVAddrTracer) init() {
	if t.path == "" {
		t.path = "pimsim_addr_" + xid.New().String()
	}

	filename := t.path + ".csv"
	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "Addr, Kind, Cycle\n")

	atexit.Register(func() {
		t.Flush()

		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Trace buffers one record.
func (t *CSVAddrTracer) Trace(hexAddr uint64, kind string, clk uint64) {
	t.records = append(t.records, addrRecord{
		HexAddr: hexAddr,
		Kind:    kind,
		Cycle:   clk,
	})

	if len(t.records) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered records to the CSV file.
func (t *CSVAddrTracer) Flush() {
	for _, r := range t.records {
		fmt.Fprintf(t.file, "0x%x, %s, %d\n", r.HexAddr, r.Kind, r.Cycle)
	}

	t.records = nil
}

// DBAddrTracer stores the address trace in a data recorder table.
type DBAddrTracer struct {
	recorder DataRecorder
}

// NewDBAddrTracer creates an address tracer over a data recorder.
func NewDBAddrTracer(recorder DataRecorder) *DBAddrTracer {
	recorder.CreateTable("addr_trace", addrRecord{})

	return &DBAddrTracer{recorder: recorder}
}

// Trace inserts one record.
func (t *DBAddrTracer) Trace(hexAddr uint64, kind string, clk uint64) {
	t.recorder.InsertData("addr_trace", addrRecord{
		HexAddr: hexAddr,
		Kind:    kind,
		Cycle:   clk,
	})
}
