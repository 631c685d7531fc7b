package coalesce

// Coalesce ranks and stacks the postings matched by every subquery in
// stack into a capped, deduplicated list of contexts, sorted
// descending by relevance. prox and bbox are both optional (nil means
// "not supplied").
func Coalesce(stack []Subquery, prox *Proximity, bbox *BBox, radius float64) ([]Context, error) {
	var (
		contexts []Context
		err      error
	)
	if len(stack) == 1 {
		contexts, err = coalesceSingle(stack[0], prox, bbox, radius)
	} else {
		contexts, err = coalesceMulti(stack, prox, bbox, radius)
	}
	if err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		return nil, nil
	}

	relevMax := contexts[0].Relev
	seen := make(map[uint32]bool)
	out := make([]Context, 0, maxContexts)
	for _, context := range contexts {
		if len(out) >= maxContexts {
			break
		}
		if relevMax-context.Relev >= 0.25 {
			break
		}
		id := context.CoverList[0].TmpID
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, context)
	}
	return out, nil
}
