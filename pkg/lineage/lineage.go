// Package lineage reconciles BI-side table usage with warehouse-side object
// dependencies and collapses the result to one row per content item.
package lineage

import "github.com/leapstack-labs/leapexpose/pkg/core"

// group accumulates the dependencies of one content item.
type group struct {
	row  core.AggregatedRow
	seen map[string]bool
}

func (g *group) add(dep string) {
	if g.seen[dep] {
		return
	}
	g.seen[dep] = true
	g.row.Dependencies = append(g.row.Dependencies, dep)
}

// grouper keeps groups in first-appearance order.
type grouper struct {
	order []core.GroupKey
	byKey map[core.GroupKey]*group
}

func newGrouper() *grouper {
	return &grouper{byKey: make(map[core.GroupKey]*group)}
}

func (gr *grouper) get(item core.ContentItem) *group {
	key := item.Key()
	if g, ok := gr.byKey[key]; ok {
		return g
	}
	g := &group{
		row: core.AggregatedRow{
			Kind:  item.Kind,
			Name:  item.Name,
			URLID: item.URLID,
			Owner: item.Owner,
		},
		seen: make(map[string]bool),
	}
	gr.byKey[key] = g
	gr.order = append(gr.order, key)
	return g
}

func (gr *grouper) rows() []core.AggregatedRow {
	out := make([]core.AggregatedRow, 0, len(gr.order))
	for _, key := range gr.order {
		out = append(out, gr.byKey[key].row)
	}
	return out
}

// Aggregate joins flattened rows to warehouse dependency edges on
// (database, schema, table) = referencing (database, schema, object) and
// groups the result by (kind, name, URL id, owner name, owner email).
//
// Each output row lists the full names of the referenced objects. Groups
// appear in the order their first joined row appears; dependencies follow
// flattened-row order, then edge order. When two upstream tables read the
// same object, that object is listed once. Content items that join to
// nothing are absent from the result (inner join).
func Aggregate(rows []core.FlatRow, deps []core.DependencyEdge) []core.AggregatedRow {
	byReferencing := make(map[core.TableRef][]core.TableRef)
	for _, e := range deps {
		from := e.Referencing.Lower()
		byReferencing[from] = append(byReferencing[from], e.Referenced.Lower())
	}

	gr := newGrouper()
	for _, r := range rows {
		targets := byReferencing[r.Table]
		if len(targets) == 0 {
			continue
		}
		g := gr.get(r.ContentItem)
		for _, t := range targets {
			g.add(t.FullName())
		}
	}
	return gr.rows()
}

// Direct groups flattened rows without a warehouse join: every content
// item depends on exactly the tables it reads.
func Direct(rows []core.FlatRow) []core.AggregatedRow {
	gr := newGrouper()
	for _, r := range rows {
		gr.get(r.ContentItem).add(r.Table.FullName())
	}
	return gr.rows()
}
