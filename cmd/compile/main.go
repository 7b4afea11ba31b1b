package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"transit_router/pkg/timetable"
)

func main() {
	input := flag.String("input", "", "Path to the YAML timetable")
	output := flag.String("output", "timetable.bin", "Output binary timetable path")
	verify := flag.Bool("verify", true, "Read the output back and compare sizes")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: compile --input <timetable.yml> [--output timetable.bin] [--verify=false]")
		os.Exit(1)
	}

	start := time.Now()

	// Step 1: Parse and compile the fixture.
	log.Printf("Reading timetable from %s...", *input)
	tt, err := timetable.LoadFixture(*input)
	if err != nil {
		log.Fatalf("Failed to load timetable: %v", err)
	}
	log.Printf("Compiled %d stops, %d patterns, %d trips, %d transfers",
		len(tt.Stops), len(tt.Patterns), len(tt.Trips), len(tt.Transfers))

	// Step 2: Serialize to binary.
	log.Printf("Writing binary to %s...", *output)
	if err := timetable.WriteBinary(*output, tt); err != nil {
		log.Fatalf("Failed to write binary: %v", err)
	}

	// Step 3: Verify.
	if *verify {
		back, err := timetable.ReadBinary(*output)
		if err != nil {
			log.Fatalf("Failed to read back binary: %v", err)
		}
		if len(back.Stops) != len(tt.Stops) || len(back.Trips) != len(tt.Trips) || len(back.Transfers) != len(tt.Transfers) {
			log.Fatalf("Binary mismatch: %d/%d stops, %d/%d trips, %d/%d transfers",
				len(back.Stops), len(tt.Stops), len(back.Trips), len(tt.Trips), len(back.Transfers), len(tt.Transfers))
		}
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f KB)", elapsed.Round(time.Millisecond), *output, float64(info.Size())/1024)
}
