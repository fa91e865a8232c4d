package exposure

import (
	"strings"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// ResourceType is the dbt function a dependency renders as.
type ResourceType string

// Resource types.
const (
	ResourceRef    ResourceType = "ref"
	ResourceSource ResourceType = "source"
	ResourceOther  ResourceType = "other"
)

// Default database names used for classification.
var (
	DefaultRefDatabases   = []string{"prod_reporting", "prod_integration"}
	DefaultSourceDatabase = "prod_raw"
)

// excludeMarker is filtered out of formatted dependency lists.
const excludeMarker = "exclude"

// Classifier decides which resource type a warehouse object maps to.
type Classifier struct {
	RefDatabases   []string
	SourceDatabase string
}

// DefaultClassifier returns a Classifier with the default database names.
func DefaultClassifier() Classifier {
	return Classifier{
		RefDatabases:   append([]string(nil), DefaultRefDatabases...),
		SourceDatabase: DefaultSourceDatabase,
	}
}

// Classify returns the resource type for a database name.
func (c Classifier) Classify(database string) ResourceType {
	for _, db := range c.RefDatabases {
		if database == db {
			return ResourceRef
		}
	}
	if database == c.SourceDatabase {
		return ResourceSource
	}
	return ResourceOther
}

// ParseReference splits a dotted "db.schema.object" reference.
// It reports false unless there are exactly three non-empty parts.
func ParseReference(dep string) (core.TableRef, bool) {
	parts := strings.Split(dep, ".")
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

// Format renders a table reference as <type>('<schema>_<object>').
func (c Classifier) Format(t core.TableRef) string {
	return string(c.Classify(t.Database)) + "('" + t.Schema + "_" + t.Table + "')"
}

// FormatDependency parses and renders a dotted reference.
func (c Classifier) FormatDependency(dep string) (string, bool) {
	t, ok := ParseReference(dep)
	if !ok {
		return "", false
	}
	return c.Format(t), true
}

// FormatAll renders deps in order, skipping malformed references.
// It returns the rendered list and the number of references skipped.
func (c Classifier) FormatAll(deps []string) ([]string, int) {
	out := make([]string, 0, len(deps))
	skipped := 0
	for _, d := range deps {
		f, ok := c.FormatDependency(d)
		if !ok {
			skipped++
			continue
		}
		// Formatted references always end in "')", so this never matches.
		if f == excludeMarker {
			continue
		}
		out = append(out, f)
	}
	return out, skipped
}
