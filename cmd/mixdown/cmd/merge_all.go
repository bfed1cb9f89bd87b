package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/mixdown/internal/app"
)

var (
	mergeInputDir string
	mergeOutput   string
	mergeCache    string
	mergeManifest string
	mergeWatch    bool
)

var mergeAllCmd = &cobra.Command{
	Use:   "merge-all",
	Short: "Consolidate a directory tree of JSONL files into one corpus",
	Long:  "Streams every .jsonl/.json file under the input directory through normalize-classify-dedup and writes one consolidated JSONL. With --watch, keeps merging as files change.",
	RunE:  runMergeAll,
}

func init() {
	f := mergeAllCmd.Flags()
	f.StringVar(&mergeInputDir, "input-dir", "", "Directory tree of corpus files")
	f.StringVar(&mergeOutput, "output", "", "Output JSONL path")
	f.StringVar(&mergeCache, "global-cache", "", "Dedup store path (empty: in-memory, this run only)")
	f.StringVar(&mergeManifest, "manifest", "", "Manifest path (default: derived from --output)")
	f.BoolVar(&mergeWatch, "watch", false, "Stay running and merge incrementally as files change")
	mergeAllCmd.MarkFlagRequired("input-dir")
	mergeAllCmd.MarkFlagRequired("output")
}

func runMergeAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := app.MergeOptions{
		InputDir:     mergeInputDir,
		Output:       mergeOutput,
		CachePath:    cachePath(mergeCache, cfg),
		ManifestPath: mergeManifest,
	}

	if mergeWatch {
		fmt.Printf("⚡ watching %s → %s\n", mergeInputDir, mergeOutput)
		return app.MergeAllWatch(cmd.Context(), cfg, opts)
	}

	man, err := app.MergeAll(cmd.Context(), cfg, opts)
	if err != nil {
		return err
	}
	fmt.Printf("⚡ merged %d records → %s (dedup rate %.1f%%)\n",
		man.Written, man.Output, man.DedupRate*100)
	return nil
}
