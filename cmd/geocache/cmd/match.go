package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapknit/geocache/pkg/store"
)

func newMatchCmd() *cobra.Command {
	var (
		storePath     string
		memoCacheSize int
		prefixMode    string
		maxResults    int
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "match <phrase>",
		Short: "Look up every posting whose phrase starts with the given prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parsePrefixMode(prefixMode)
			if err != nil {
				return err
			}

			if memoCacheSize <= 0 && cfg != nil {
				memoCacheSize = cfg.Store.MemoCacheSize
			}
			disk, err := store.OpenDiskStore(storePath, memoCacheSize)
			if err != nil {
				return fmt.Errorf("opening store %s: %w", storePath, err)
			}
			defer disk.Close()

			values, err := disk.GetMatching(args[0], mode, store.AllLanguages, maxResults)
			if err != nil {
				return err
			}
			return printCovers(cmd, args[0], values, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "path to the on-disk posting store")
	cmd.Flags().IntVar(&memoCacheSize, "memo-cache-size", 0, "decoded prefix-memo LRU size (0 uses the configured default)")
	cmd.Flags().StringVar(&prefixMode, "prefix", "enabled", "prefix mode: disabled, enabled, word-boundary")
	cmd.Flags().IntVar(&maxResults, "max-results", store.PrefixMaxGridLength, "cap on returned postings (0 for unbounded)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func parsePrefixMode(s string) (store.PrefixMode, error) {
	switch s {
	case "disabled":
		return store.Disabled, nil
	case "enabled":
		return store.Enabled, nil
	case "word-boundary":
		return store.WordBoundary, nil
	default:
		return 0, fmt.Errorf("unknown prefix mode %q (want disabled, enabled, or word-boundary)", s)
	}
}
