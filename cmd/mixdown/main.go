// mixdown assembles instruction-tuning corpora from heterogeneous sources.
// Single binary — normalize, classify, dedup, mix, and ship one JSONL.
package main

import (
	"os"

	"github.com/corey/mixdown/cmd/mixdown/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
