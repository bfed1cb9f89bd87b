package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/mixdown/internal/app"
	"github.com/corey/mixdown/internal/domain/plan"
	"github.com/corey/mixdown/profiles"
)

var (
	buildProfileName string
	buildOutput      string
	buildMaxTotal    int
	buildSeed        int64
	buildCache       string
	buildResetCache  bool
	buildManifest    string
)

var buildProfileCmd = &cobra.Command{
	Use:   "build-profile",
	Short: "Assemble a corpus from a named profile",
	Long:  "Streams every source in the profile, dedups globally, mixes buckets to the profile's weights, and writes one shuffled JSONL plus its manifest.",
	RunE:  runBuildProfile,
}

func init() {
	f := buildProfileCmd.Flags()
	f.StringVar(&buildProfileName, "profile", "", "Profile name (built-in) or path to a profile YAML")
	f.StringVar(&buildOutput, "output", "", "Output JSONL path")
	f.IntVar(&buildMaxTotal, "max-total", 0, "Total record budget")
	f.Int64Var(&buildSeed, "seed", 42, "Base seed for deterministic sampling")
	f.StringVar(&buildCache, "global-cache", "", "Dedup store path (empty: in-memory, this run only)")
	f.BoolVar(&buildResetCache, "reset-global-cache", false, "Delete the dedup store before starting")
	f.StringVar(&buildManifest, "manifest", "", "Manifest path (default: derived from --output)")
	buildProfileCmd.MarkFlagRequired("profile")
	buildProfileCmd.MarkFlagRequired("output")
	buildProfileCmd.MarkFlagRequired("max-total")
}

func runBuildProfile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	profile, err := resolveProfile(buildProfileName)
	if err != nil {
		return err
	}

	man, err := app.BuildProfile(cmd.Context(), cfg, app.BuildOptions{
		Profile:      profile,
		Output:       buildOutput,
		MaxTotal:     buildMaxTotal,
		Seed:         buildSeed,
		CachePath:    cachePath(buildCache, cfg),
		ResetCache:   buildResetCache,
		ManifestPath: buildManifest,
	})
	if err != nil {
		return err
	}

	fmt.Printf("⚡ %s: %d records → %s (dedup rate %.1f%%)\n",
		profile.Name, man.Written, man.Output, man.DedupRate*100)
	return nil
}

// resolveProfile finds a profile by built-in name first, then as a YAML path.
func resolveProfile(name string) (*plan.Profile, error) {
	builtin, err := plan.LoadFS(profiles.FS)
	if err != nil {
		return nil, fmt.Errorf("load built-in profiles: %w", err)
	}
	if p, ok := builtin[name]; ok {
		return p, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unknown profile %q (not built-in, not a readable file)", name)
	}
	return plan.Parse(data)
}
