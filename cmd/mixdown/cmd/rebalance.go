package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/mixdown/internal/app"
)

var (
	rebalanceBase     string
	rebalanceOutput   string
	rebalanceManifest string
	rebalanceExclude  []string
	rebalanceInject   []string
	rebalancePersonas []string
)

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Rewrite an existing corpus with exclusions, personas, and injections",
	Long:  "Streams a consolidated corpus through normalize-classify-dedup, drops excluded sources, stamps persona overrides, and mixes in injection corpora under the same dedup pass.",
	RunE:  runRebalance,
}

func init() {
	f := rebalanceCmd.Flags()
	f.StringVar(&rebalanceBase, "base", "", "Existing consolidated JSONL")
	f.StringVar(&rebalanceOutput, "output", "", "Output JSONL path")
	f.StringVar(&rebalanceManifest, "manifest", "", "Manifest path")
	f.StringArrayVar(&rebalanceExclude, "exclude-source", nil, "Source label to drop (repeatable)")
	f.StringArrayVar(&rebalanceInject, "inject", nil, "Corpus file to mix in (repeatable)")
	f.StringArrayVar(&rebalancePersonas, "persona", nil, "Persona override as label=tag (repeatable)")
	rebalanceCmd.MarkFlagRequired("base")
	rebalanceCmd.MarkFlagRequired("output")
	rebalanceCmd.MarkFlagRequired("manifest")
}

func runRebalance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	personas := make(map[string]string, len(rebalancePersonas))
	for _, kv := range rebalancePersonas {
		label, tag, ok := strings.Cut(kv, "=")
		if !ok || label == "" || tag == "" {
			return fmt.Errorf("bad --persona %q, want label=tag", kv)
		}
		personas[label] = tag
	}

	man, err := app.Rebalance(cmd.Context(), cfg, app.RebalanceOptions{
		Base:           rebalanceBase,
		Output:         rebalanceOutput,
		ManifestPath:   rebalanceManifest,
		ExcludeSources: rebalanceExclude,
		Personas:       personas,
		Inject:         rebalanceInject,
	})
	if err != nil {
		return err
	}
	fmt.Printf("⚡ rebalanced %d records → %s (excluded %d)\n",
		man.Written, man.Output, man.Drops.ExcludedSource)
	return nil
}
