package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/mixdown/internal/domain/plan"
	"github.com/corey/mixdown/profiles"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the built-in corpus profiles",
	RunE:  runProfiles,
}

func runProfiles(cmd *cobra.Command, args []string) error {
	builtin, err := plan.LoadFS(profiles.FS)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := builtin[name]
		desc := strings.TrimSpace(p.Description)
		fmt.Printf("%-20s %d sources, %d weighted buckets\n", name, len(p.Sources), len(p.Weights))
		if desc != "" {
			fmt.Printf("    %s\n", desc)
		}
	}
	return nil
}
