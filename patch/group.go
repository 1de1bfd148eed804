package patch

// GroupByTarget bundles patches by Target for display — a pure view
// derivation with no effect on recording or replay (spec.md §4.5:
// "an auxiliary function bundles patches by target into groups for
// display"). Order within each group is preserved from patches.
func GroupByTarget(patches []Patch) map[string][]Patch {
	groups := make(map[string][]Patch)
	for _, p := range patches {
		groups[p.Target] = append(groups[p.Target], p)
	}
	return groups
}
