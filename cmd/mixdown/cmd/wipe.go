package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	wipeCache string
	wipeForce bool
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete the global dedup store",
	Long:  "Removes the fingerprint cache so the next run starts with an empty seen-set.",
	RunE:  runWipe,
}

func init() {
	wipeCmd.Flags().StringVar(&wipeCache, "global-cache", "", "Dedup store path to delete")
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Skip confirmation prompt")
	wipeCmd.MarkFlagRequired("global-cache")
}

func runWipe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(wipeCache); os.IsNotExist(err) {
		fmt.Println("⚡ no cache to wipe")
		return nil
	}

	if !wipeForce {
		fmt.Printf("⚠ This will delete %s and forget every seen fingerprint. Continue? [y/N] ", wipeCache)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	if err := os.Remove(wipeCache); err != nil {
		return fmt.Errorf("remove cache: %w", err)
	}
	fmt.Println("⚡ dedup store wiped")
	return nil
}
