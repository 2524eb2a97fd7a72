package pluginrt

import "sort"

// preparedInjection is a ContextInjection with its effective depth already
// resolved by the Depth Calculator, ready for placement.
type preparedInjection struct {
	ContextInjection
	effectiveDepth int
}

// dedupKey is the (pluginId, injection.id) namespace injections share
// within one build.
func (p preparedInjection) dedupKey() string {
	return p.PluginID + "\x00" + p.ID
}

// Place implements the Injection Placer: it deduplicates,
// computes each injection's insertion index, sorts for a stable tie-break,
// and inserts from the highest index to the lowest so that earlier
// insertions never invalidate a later (lower) index.
//
// render converts one injection into the transcript's entry type; it is
// supplied by the caller because the transcript's entry representation
// belongs to the LLM-facing orchestrator, not to the core.
func Place[T any](transcript []T, injections []ContextInjection, idx messageIndex, render func(ContextInjection) T) []T {
	n := len(transcript)

	prepared := prepareInjections(injections, idx)
	prepared = dedupeLastWins(prepared)

	for i := range prepared {
		prepared[i].insertionIndex = resolveInsertionIndex(prepared[i], n)
	}

	sort.SliceStable(prepared, func(i, j int) bool {
		return lessForPlacement(prepared[i], prepared[j])
	})

	out := make([]T, n)
	copy(out, transcript)

	// Group by insertion index, descending, so higher-index insertions
	// happen first and never shift a not-yet-processed lower index.
	groups := groupByIndexDescending(prepared)
	for _, g := range groups {
		// Insert in reverse of the canonical (priority desc, pluginId asc,
		// id asc) order: repeatedly inserting at the same fixed index
		// pushes the previous insertion rightward, so inserting the
		// lowest-ranked item first leaves the highest-ranked item
		// leftmost — restoring the canonical order at that position.
		for i := len(g.items) - 1; i >= 0; i-- {
			entry := render(g.items[i].ContextInjection)
			out = insertAt(out, g.index, entry)
		}
	}

	return out
}

// resolvedInjection carries the insertion index alongside the prepared
// injection, computed once sorting and grouping need it.
type resolvedInjection struct {
	preparedInjection
	insertionIndex int
}

func prepareInjections(injections []ContextInjection, idx messageIndex) []resolvedInjection {
	out := make([]resolvedInjection, 0, len(injections))
	for _, inj := range injections {
		depth := idx.effectiveDepth(inj.LastModifiedAt, inj.TargetDepth)
		out = append(out, resolvedInjection{preparedInjection: preparedInjection{ContextInjection: inj, effectiveDepth: depth}})
	}
	return out
}

// dedupeLastWins keeps only the last occurrence of each (pluginId, id)
// pair, preserving its position in submission order — "last submitted"
// wins, not "highest priority".
func dedupeLastWins(injections []resolvedInjection) []resolvedInjection {
	lastIdx := map[string]int{}
	for i, inj := range injections {
		lastIdx[inj.dedupKey()] = i
	}

	out := make([]resolvedInjection, 0, len(lastIdx))
	seen := map[string]bool{}
	for i, inj := range injections {
		key := inj.dedupKey()
		if lastIdx[key] != i {
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, inj)
	}
	return out
}

// resolveInsertionIndex computes the clamped insertion index: "latest"
// counts depth back from the transcript end (n - depth), "earliest"
// counts forward from the start (depth).
func resolveInsertionIndex(r resolvedInjection, n int) int {
	var idx int
	switch r.resolvedAnchor() {
	case AnchorEarliest:
		idx = r.effectiveDepth
	default: // latest
		idx = n - r.effectiveDepth
	}
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

func lessForPlacement(a, b resolvedInjection) bool {
	if a.insertionIndex != b.insertionIndex {
		return a.insertionIndex < b.insertionIndex
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority // higher priority sorts first
	}
	if a.PluginID != b.PluginID {
		return a.PluginID < b.PluginID
	}
	return a.ID < b.ID
}

type indexGroup struct {
	index int
	items []resolvedInjection
}

func groupByIndexDescending(injections []resolvedInjection) []indexGroup {
	order := []int{}
	byIndex := map[int][]resolvedInjection{}
	for _, inj := range injections {
		if _, ok := byIndex[inj.insertionIndex]; !ok {
			order = append(order, inj.insertionIndex)
		}
		byIndex[inj.insertionIndex] = append(byIndex[inj.insertionIndex], inj)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(order)))

	groups := make([]indexGroup, 0, len(order))
	for _, idx := range order {
		groups = append(groups, indexGroup{index: idx, items: byIndex[idx]})
	}
	return groups
}

func insertAt[T any](list []T, index int, item T) []T {
	if index >= len(list) {
		return append(list, item)
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, item)
	out = append(out, list[index:]...)
	return out
}
