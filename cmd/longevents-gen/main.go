// Command longevents-gen writes a synthetic STARTED/FINISHED record file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tinytelemetry/longevents/internal/generate"
)

func main() {
	var (
		pairs       int
		output      string
		seed        uint64
		maxDuration int64
		base        int64
	)

	flag.IntVar(&pairs, "n", 1000, "number of STARTED/FINISHED pairs")
	flag.StringVar(&output, "o", "events.json", "output file (.zst or .gz compresses)")
	flag.Uint64Var(&seed, "seed", 1, "random seed")
	flag.Int64Var(&maxDuration, "max-duration", generate.DefaultMaxDuration, "maximum pair duration in ms")
	flag.Int64Var(&base, "base", 0, "STARTED timestamp in unix ms (default now)")
	flag.Parse()

	sum, err := generate.WriteFile(output, generate.Config{
		Pairs:       pairs,
		MaxDuration: maxDuration,
		Seed:        seed,
		Base:        base,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d records in %s worth of %s\n", sum.Records, output, generate.ReadableSize(sum.Bytes))
}
