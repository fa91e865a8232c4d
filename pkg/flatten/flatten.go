// Package flatten turns nested metadata query results into relational rows:
// one row per (content item, upstream table).
package flatten

import (
	"strings"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// decoration is stripped from fully-qualified names before splitting.
var decoration = strings.NewReplacer("[", "", "]", "", `"`, "")

// Stats describes what Flatten discarded.
type Stats struct {
	Items      int // content records seen
	References int // upstream references seen
	Rows       int // rows emitted
	Dropped    int // malformed references dropped
	EmptyItems int // content records that produced no rows
}

// Flatten explodes every content record in result into one row per valid
// upstream table reference.
//
// A reference is valid when its normalized full name splits into exactly
// three non-empty parts. Invalid references are dropped and counted.
// Records with no valid reference vanish from the output; no placeholder
// row is emitted for them.
func Flatten(result *core.MetadataResult) ([]core.FlatRow, Stats) {
	var stats Stats
	if result == nil {
		return nil, stats
	}

	var rows []core.FlatRow
	for _, raw := range result.Items {
		stats.Items++
		item := contentItem(result.Kind, raw)

		emitted := 0
		for _, up := range raw.UpstreamTables {
			stats.References++
			ref, ok := ParseFullName(core.StringValue(up.FullName))
			if !ok {
				stats.Dropped++
				continue
			}
			rows = append(rows, core.FlatRow{ContentItem: item, Table: ref})
			emitted++
		}
		if emitted == 0 {
			stats.EmptyItems++
		}
	}

	stats.Rows = len(rows)
	return rows, stats
}

// ParseFullName normalizes a fully-qualified table name and splits it into
// database, schema and table. Normalization lower-cases the name and strips
// bracket and double-quote decoration, so `"PROD_RAW"."PUBLIC"."ORDERS"` and
// `[prod_raw].[public].[orders]` both parse to prod_raw.public.orders.
func ParseFullName(fullName string) (core.TableRef, bool) {
	name := decoration.Replace(strings.ToLower(fullName))
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return core.TableRef{}, false
	}
	for _, p := range parts {
		if p == "" {
			return core.TableRef{}, false
		}
	}
	return core.TableRef{Database: parts[0], Schema: parts[1], Table: parts[2]}, true
}

func contentItem(kind core.ContentKind, raw core.RawContent) core.ContentItem {
	item := core.ContentItem{
		Kind:        kind,
		Name:        core.StringValue(raw.Name),
		URLID:       core.StringValue(raw.VizportalURLID),
		ProjectName: core.StringValue(raw.ProjectName),
	}
	if raw.Owner != nil {
		item.Owner = core.Owner{
			Name:  core.StringValue(raw.Owner.Name),
			Email: core.StringValue(raw.Owner.Email),
		}
	}
	return item
}

// Dedupe removes repeated rows, keeping the first occurrence.
func Dedupe(rows []core.FlatRow) []core.FlatRow {
	seen := make(map[core.FlatRow]bool, len(rows))
	out := make([]core.FlatRow, 0, len(rows))
	for _, r := range rows {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
