package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mapknit/geocache/internal/coalesce"
	"github.com/mapknit/geocache/internal/dispatch"
	"github.com/mapknit/geocache/pkg/store"
)

func newCoalesceCmd() *cobra.Command {
	var (
		subqueryFlags []string
		proxZ, proxX, proxY uint32
		hasProx             bool
		bboxZ, bboxMinX, bboxMinY, bboxMaxX, bboxMaxY uint32
		hasBBox                                       bool
		radius     float64
		memoCacheSize int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "coalesce",
		Short: "Rank and stack postings across one or more subqueries",
		Long: `coalesce runs the ranking/stacking algorithm over a stack of
subqueries, each naming its own on-disk store, and prints the resulting
contexts ordered by descending relevance.

Each --subquery is a comma-separated key=value list:
  phrase=main st,store=/path/to/store,idx=0,zoom=14,mask=1,weight=1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(subqueryFlags) == 0 {
				return fmt.Errorf("at least one --subquery is required")
			}

			if memoCacheSize <= 0 && cfg != nil {
				memoCacheSize = cfg.Store.MemoCacheSize
			}
			if radius <= 0 && cfg != nil {
				radius = cfg.Proximity.DefaultRadius
			}
			workers := 1
			if cfg != nil && cfg.Dispatch.Workers > 0 {
				workers = cfg.Dispatch.Workers
			}

			inputs, closers, err := parseSubqueryFlags(subqueryFlags, memoCacheSize)
			defer func() {
				for _, c := range closers {
					_ = c.Close()
				}
			}()
			if err != nil {
				return err
			}

			req := dispatch.Request{Subqueries: inputs, Radius: radius}
			if hasProx {
				req.Proximity = &coalesce.Proximity{Z: proxZ, X: proxX, Y: proxY}
			}
			if hasBBox {
				req.BBox = &coalesce.BBox{Z: bboxZ, MinX: bboxMinX, MinY: bboxMinY, MaxX: bboxMaxX, MaxY: bboxMaxY}
			}

			d := dispatch.New(cmd.Context(), workers, logger)
			done := make(chan struct{})
			var (
				contexts []coalesce.Context
				runErr   error
			)
			d.Dispatch(req, func(c []coalesce.Context, err error) {
				contexts, runErr = c, err
				close(done)
			})
			<-done
			if runErr != nil {
				return runErr
			}

			return printContexts(cmd, contexts, jsonOutput)
		},
	}

	cmd.Flags().StringArrayVar(&subqueryFlags, "subquery", nil, "one subquery, comma-separated key=value pairs (repeatable)")
	cmd.Flags().Float64Var(&radius, "radius", 0, "proximity scoring radius (0 uses the configured default)")
	cmd.Flags().IntVar(&memoCacheSize, "memo-cache-size", 0, "decoded prefix-memo LRU size, per opened store (0 uses the configured default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	cmd.Flags().Uint32Var(&proxZ, "prox-z", 0, "proximity center zoom")
	cmd.Flags().Uint32Var(&proxX, "prox-x", 0, "proximity center tile x")
	cmd.Flags().Uint32Var(&proxY, "prox-y", 0, "proximity center tile y")
	cmd.Flags().BoolVar(&hasProx, "prox", false, "enable proximity scoring using --prox-z/-x/-y")

	cmd.Flags().Uint32Var(&bboxZ, "bbox-z", 0, "bounding box zoom")
	cmd.Flags().Uint32Var(&bboxMinX, "bbox-minx", 0, "bounding box min tile x")
	cmd.Flags().Uint32Var(&bboxMinY, "bbox-miny", 0, "bounding box min tile y")
	cmd.Flags().Uint32Var(&bboxMaxX, "bbox-maxx", 0, "bounding box max tile x")
	cmd.Flags().Uint32Var(&bboxMaxY, "bbox-maxy", 0, "bounding box max tile y")
	cmd.Flags().BoolVar(&hasBBox, "bbox", false, "enable bounding box filtering using --bbox-*")

	return cmd
}

// storeCloser lets parseSubqueryFlags return every opened store so the
// caller can close them once, regardless of how many subqueries share
// (or don't share) an underlying store path.
type storeCloser interface {
	Close() error
}

func parseSubqueryFlags(flags []string, memoCacheSize int) ([]dispatch.SubqueryInput, []storeCloser, error) {
	opened := make(map[string]*store.DiskStore)
	var closers []storeCloser
	var inputs []dispatch.SubqueryInput

	for i, raw := range flags {
		fields, err := parseKeyValueList(raw)
		if err != nil {
			return nil, closers, fmt.Errorf("subquery %d: %w", i, err)
		}

		storePath, ok := fields["store"]
		if !ok {
			return nil, closers, fmt.Errorf("subquery %d: missing store=", i)
		}
		disk, ok := opened[storePath]
		if !ok {
			disk, err = store.OpenDiskStore(storePath, memoCacheSize)
			if err != nil {
				return nil, closers, fmt.Errorf("subquery %d: opening store %s: %w", i, storePath, err)
			}
			opened[storePath] = disk
			closers = append(closers, disk)
		}

		input := dispatch.SubqueryInput{
			Phrase: fields["phrase"],
			Cache:  disk,
			Weight: 1,
		}
		if v, ok := fields["weight"]; ok {
			input.Weight, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, closers, fmt.Errorf("subquery %d: weight: %w", i, err)
			}
		}
		if v, ok := fields["idx"]; ok {
			n, err := strconv.ParseUint(v, 10, 16)
			if err != nil {
				return nil, closers, fmt.Errorf("subquery %d: idx: %w", i, err)
			}
			input.Idx = uint16(n)
		}
		if v, ok := fields["zoom"]; ok {
			n, err := strconv.ParseUint(v, 10, 16)
			if err != nil {
				return nil, closers, fmt.Errorf("subquery %d: zoom: %w", i, err)
			}
			input.Zoom = uint16(n)
		}
		if v, ok := fields["mask"]; ok {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, closers, fmt.Errorf("subquery %d: mask: %w", i, err)
			}
			input.Mask = uint32(n)
		}
		if v, ok := fields["prefix"]; ok {
			mode, err := parsePrefixMode(v)
			if err != nil {
				return nil, closers, fmt.Errorf("subquery %d: %w", i, err)
			}
			input.Prefix = int(mode)
		}
		inputs = append(inputs, input)
	}

	return inputs, closers, nil
}

// parseKeyValueList parses a comma-separated key=value list, as used by
// --subquery.
func parseKeyValueList(raw string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed field %q (want key=value)", part)
		}
		fields[kv[0]] = kv[1]
	}
	return fields, nil
}

func printContexts(cmd *cobra.Command, contexts []coalesce.Context, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(contexts)
	}

	if len(contexts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), styles.Warning.Render("no contexts matched"))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), styles.Header.Render(fmt.Sprintf("%d contexts", len(contexts))))
	for i, c := range contexts {
		head := c.CoverList[0]
		fmt.Fprintf(cmd.OutOrStdout(), "  %d. relev=%.3f mask=%b feature=%d covers=%d\n",
			i+1, c.Relev, c.Mask, head.FeatureID, len(c.CoverList))
	}
	return nil
}
