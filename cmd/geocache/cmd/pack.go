package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mapknit/geocache/internal/ui"
	"github.com/mapknit/geocache/pkg/grid"
	"github.com/mapknit/geocache/pkg/store"
)

// packCover is one grid entry in a pack input line's covers array.
type packCover struct {
	Relev           float64 `json:"relev"`
	Score           uint16  `json:"score"`
	X               uint16  `json:"x"`
	Y               uint16  `json:"y"`
	FeatureID       uint32  `json:"feature_id"`
	MatchesLanguage bool    `json:"matches_language"`
}

// packEntry is one line of a pack input file: every grid entry sharing
// a phrase and langfield, in the form an index builder would emit.
type packEntry struct {
	Phrase    string          `json:"phrase"`
	Langfield *store.Langfield `json:"langfield,omitempty"`
	Covers    []packCover     `json:"covers"`
}

func newPackCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "pack <input.jsonl>",
		Short: "Build an on-disk posting store from a newline-delimited JSON input",
		Long: `pack reads a file of JSON lines, each describing every grid entry for
one (phrase, langfield) pair, and writes them into an on-disk posting
store at --out, computing the T1/T2 prefix memos along the way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			return runPack(cmd, args[0], outPath)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "path to write the on-disk store to")
	return cmd
}

func runPack(cmd *cobra.Command, inPath, outPath string) error {
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inPath, err)
	}
	defer f.Close()

	lines, err := countLines(inPath)
	if err != nil {
		return err
	}

	mem := store.NewMemStore()
	progress := ui.NewPackProgress(cmd.OutOrStdout())

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry packEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		langfield := store.AllLanguages
		if entry.Langfield != nil {
			langfield = *entry.Langfield
		}

		values := make([]uint64, len(entry.Covers))
		for i, c := range entry.Covers {
			values[i] = grid.Encode(grid.Cover{
				Relev:           c.Relev,
				Score:           c.Score,
				X:               c.X,
				Y:               c.Y,
				FeatureID:       c.FeatureID,
				MatchesLanguage: c.MatchesLanguage,
			})
		}
		mem.Set(entry.Phrase, langfield, values, true)
		progress.Update(lineNo, lines)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}
	progress.Done()

	if err := mem.Pack(outPath); err != nil {
		return fmt.Errorf("packing to %s: %w", outPath, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render(fmt.Sprintf("packed %d entries into %s", lineNo, outPath)))
	return nil
}

// countLines gives the progress bar a denominator; pack input files are
// expected to be small enough for a cheap upfront scan.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var n int
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			n++
		}
	}
	return n, scanner.Err()
}
