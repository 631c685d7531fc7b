package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapknit/geocache/pkg/grid"
	"github.com/mapknit/geocache/pkg/store"
)

func newGetCmd() *cobra.Command {
	var (
		storePath     string
		memoCacheSize int
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "get <phrase>",
		Short: "Look up the exact posting list for a phrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if memoCacheSize <= 0 && cfg != nil {
				memoCacheSize = cfg.Store.MemoCacheSize
			}
			disk, err := store.OpenDiskStore(storePath, memoCacheSize)
			if err != nil {
				return fmt.Errorf("opening store %s: %w", storePath, err)
			}
			defer disk.Close()

			values, err := disk.Get(args[0], store.AllLanguages)
			if err != nil {
				return err
			}
			return printCovers(cmd, args[0], values, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "path to the on-disk posting store")
	cmd.Flags().IntVar(&memoCacheSize, "memo-cache-size", 0, "decoded prefix-memo LRU size (0 uses the configured default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

// printCovers decodes and prints every posting in values, in the order
// the store returned them (descending relevance).
func printCovers(cmd *cobra.Command, phrase string, values []uint64, jsonOutput bool) error {
	covers := make([]grid.Cover, len(values))
	for i, v := range values {
		covers[i] = grid.Decode(v)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(covers)
	}

	if len(covers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), styles.Warning.Render(fmt.Sprintf("no postings for %q", phrase)))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), styles.Header.Render(fmt.Sprintf("%d postings for %q", len(covers), phrase)))
	for _, c := range covers {
		fmt.Fprintf(cmd.OutOrStdout(), "  feature=%d relev=%.2f score=%d x=%d y=%d lang=%v\n",
			c.FeatureID, c.Relev, c.Score, c.X, c.Y, c.MatchesLanguage)
	}
	return nil
}
