// Package pimstats writes the statistics and address traces a simulation
// run leaves behind: a JSON array of per-epoch, per-channel objects, a
// final JSON object keyed by channel, and optional address-trace sinks
// backed by a CSV file or a SQLite database.
package pimstats

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tebeka/atexit"
)

// EpochWriter streams one JSON array of epoch objects to a file. The
// opening bracket is written up front; every Write appends one object,
// comma-separated; Close emits the closing bracket.
type EpochWriter struct {
	file      *os.File
	lock      sync.Mutex
	firstItem bool
	closeOnce sync.Once
}

// NewEpochWriter creates an epoch writer on the given path.
func NewEpochWriter(path string) *EpochWriter {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}

	_, err = f.Write([]byte("[\n"))
	if err != nil {
		panic(err)
	}

	w := &EpochWriter{
		file:      f,
		firstItem: true,
	}

	atexit.Register(w.Close)

	return w
}

// Write appends one epoch object to the array.
func (w *EpochWriter) Write(v any) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.firstItem {
		w.firstItem = false
	} else {
		_, err := w.file.Write([]byte(",\n"))
		if err != nil {
			panic(err)
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	_, err = w.file.Write(b)
	if err != nil {
		panic(err)
	}
}

// Close terminates the array and closes the file.
func (w *EpochWriter) Close() {
	w.closeOnce.Do(func() {
		_, err := w.file.Write([]byte("\n]\n"))
		if err != nil {
			panic(err)
		}

		err = w.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// FinalWriter collects one stats object per channel and writes them as a
// single JSON object keyed by channel number.
type FinalWriter struct {
	path      string
	lock      sync.Mutex
	byChannel map[string]any
	closeOnce sync.Once
}

// NewFinalWriter creates a final-stats writer on the given path.
func NewFinalWriter(path string) *FinalWriter {
	w := &FinalWriter{
		path:      path,
		byChannel: make(map[string]any),
	}

	atexit.Register(w.Close)

	return w
}

// Write records the stats object for one channel.
func (w *FinalWriter) Write(channel int, v any) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.byChannel[fmt.Sprintf("%d", channel)] = v
}

// Close writes the collected object and releases the file.
func (w *FinalWriter) Close() {
	w.closeOnce.Do(func() {
		b, err := json.MarshalIndent(w.byChannel, "", "  ")
		if err != nil {
			panic(err)
		}

		err = os.WriteFile(w.path, b, 0644)
		if err != nil {
			panic(err)
		}
	})
}
