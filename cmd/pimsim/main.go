// Package main provides the pimsim command that replays a transaction
// trace against the PIM-capable memory system.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pimsim/dram"
	"github.com/sarchlab/pimsim/pimstats"
)

var (
	traceFile    string
	useIdeal     bool
	numChannel   int
	maxCycles    uint64
	epochPeriod  uint64
	outputPrefix string
)

var rootCmd = &cobra.Command{
	Use:   "pimsim",
	Short: "pimsim replays a transaction trace against a PIM-capable DRAM system.",
	Long: `pimsim replays a transaction trace against a PIM-capable DRAM system. ` +
		`Each trace line is "<hex-addr> <PIM|READ|WRITE> <cycle>". PIM lines ` +
		`configure and drive the in-bank compute tiles; READ and WRITE lines ` +
		`route to the channel controllers.`,
	Run: run,
}

func init() {
	rootCmd.Flags().StringVar(&traceFile, "trace", "",
		"trace file to replay")
	rootCmd.Flags().BoolVar(&useIdeal, "ideal", false,
		"use the fixed-latency system instead of the JEDEC system")
	rootCmd.Flags().IntVar(&numChannel, "channels", 8,
		"number of channels")
	rootCmd.Flags().Uint64Var(&maxCycles, "cycles", 1000000,
		"cycle budget for the run")
	rootCmd.Flags().Uint64Var(&epochPeriod, "epoch-period", 100000,
		"cycles per stats epoch")
	rootCmd.Flags().StringVar(&outputPrefix, "output-prefix", "pimsim",
		"prefix for stats and trace output files")

	_ = rootCmd.MarkFlagRequired("trace")
}

type traceEntry struct {
	addr  uint64
	kind  string
	cycle uint64
}

func run(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()
	if prefix := os.Getenv("PIMSIM_OUTPUT_PREFIX"); prefix != "" {
		outputPrefix = prefix
	}

	entries := loadTrace(traceFile)

	builder := dram.MakeBuilder().
		WithNumChannel(numChannel).
		WithEpochPeriod(epochPeriod).
		WithAddrTracer(pimstats.NewCSVAddrTracer(outputPrefix + "_addr")).
		WithStatWriters(
			pimstats.NewEpochWriter(outputPrefix+"_epoch.json"),
			pimstats.NewFinalWriter(outputPrefix+"_final.json"))

	var system dram.System
	var jedec *dram.JedecSystem
	if useIdeal {
		system = builder.BuildIdeal("IdealSys")
	} else {
		jedec = builder.Build("PIMSys")
		system = jedec
	}

	completed := 0
	system.RegisterCallbacks(
		func(addr uint64) { completed++ },
		func(addr uint64) { completed++ })

	issued := replay(system, entries)

	if jedec != nil {
		jedec.WriteFinalStats()
	}

	fmt.Printf("issued %d transactions, %d completed\n", issued, completed)
	atexit.Exit(0)
}

func replay(system dram.System, entries []traceEntry) int {
	issued := 0
	next := 0

	for clk := uint64(0); clk < maxCycles; clk++ {
		for next < len(entries) && entries[next].cycle <= clk {
			e := entries[next]

			if e.kind == "PIM" {
				if !system.WillAcceptPIM() {
					break
				}
				system.AddPIM(e.addr)
			} else {
				isWrite := e.kind == "WRITE"
				if !system.WillAccept(e.addr, isWrite) {
					break
				}
				system.Add(e.addr, isWrite)
			}

			issued++
			next++
		}

		system.Tick()
	}

	return issued
}

func loadTrace(path string) []traceEntry {
	f, err := os.Open(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	var entries []traceEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			panic(fmt.Errorf("malformed trace line: %q", line))
		}

		addr, err := strconv.ParseUint(
			strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			panic(err)
		}

		cycle, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			panic(err)
		}

		entries = append(entries, traceEntry{
			addr:  addr,
			kind:  fields[1],
			cycle: cycle,
		})
	}

	return entries
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
