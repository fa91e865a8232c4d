// Package scope expands named BI projects into the set of project names
// beneath them.
package scope

import "github.com/leapstack-labs/leapexpose/pkg/core"

// DefaultPasses is the number of child-scan passes Resolve performs when
// the caller does not choose one. A scope nested deeper than this below a
// seed is not reached.
const DefaultPasses = 5

// Resolve returns the names of every scope whose name is in seeds, plus
// every descendant reachable within passes parent/child hops.
//
// Seeds are matched by exact name; unmatched seeds are ignored. Names are
// returned in the order the scopes appear in all, without duplicates.
// Resolution is name-based: two scopes sharing a display name are both
// matched, and both names collapse to one entry in the result.
func Resolve(seeds []string, all []core.Scope, passes int) []string {
	if passes < 0 {
		passes = 0
	}

	wanted := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		wanted[s] = true
	}

	ids := make(map[string]bool)
	for _, sc := range all {
		if wanted[sc.Name] {
			ids[sc.ID] = true
		}
	}

	// Each pass adds the children of the scopes known when the pass began,
	// so pass n reaches exactly n levels below the seeds.
	for i := 0; i < passes; i++ {
		var next []string
		for _, sc := range all {
			if sc.ParentID == "" || ids[sc.ID] {
				continue
			}
			if ids[sc.ParentID] {
				next = append(next, sc.ID)
			}
		}
		if len(next) == 0 {
			break
		}
		for _, id := range next {
			ids[id] = true
		}
	}

	seen := make(map[string]bool, len(ids))
	names := make([]string, 0, len(ids))
	for _, sc := range all {
		if !ids[sc.ID] || seen[sc.Name] {
			continue
		}
		seen[sc.Name] = true
		names = append(names, sc.Name)
	}
	return names
}
