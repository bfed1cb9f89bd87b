package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/mixdown/internal/app"
)

var (
	recatInput    string
	recatOutput   string
	recatManifest string
)

var recategorizeCmd = &cobra.Command{
	Use:   "recategorize",
	Short: "Rewrite only the _category field with the current classifier",
	Long:  "Re-runs the bucket classifier over a consolidated corpus, touching nothing but _category. Record count and order are preserved exactly.",
	RunE:  runRecategorize,
}

func init() {
	f := recategorizeCmd.Flags()
	f.StringVar(&recatInput, "input", "", "Input JSONL path")
	f.StringVar(&recatOutput, "output", "", "Output JSONL path")
	f.StringVar(&recatManifest, "manifest", "", "Manifest path (default: derived from --output)")
	recategorizeCmd.MarkFlagRequired("input")
	recategorizeCmd.MarkFlagRequired("output")
}

func runRecategorize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	man, err := app.Recategorize(cmd.Context(), cfg, app.RecategorizeOptions{
		Input:        recatInput,
		Output:       recatOutput,
		ManifestPath: recatManifest,
	})
	if err != nil {
		return err
	}
	fmt.Printf("⚡ recategorized %d records → %s\n", man.Written, man.Output)
	return nil
}
