package exposure

import (
	"strings"

	"github.com/leapstack-labs/leapexpose/pkg/core"
)

// DefaultBaseURL is the site URL content paths are appended to.
const DefaultBaseURL = "https://10az.online.tableau.com/#/site/sunstate/"

// ManifestVersion is the dbt exposures file format version.
const ManifestVersion = 1

// Owner is the owner block of an exposure. Nil fields serialize as null.
type Owner struct {
	Name  *string `yaml:"name" json:"name"`
	Email *string `yaml:"email" json:"email"`
}

// Record is one exposure. Field order is the serialized order.
type Record struct {
	Name      string   `yaml:"name" json:"name"`
	Label     string   `yaml:"label" json:"label"`
	URL       string   `yaml:"url" json:"url"`
	Type      string   `yaml:"type" json:"type"`
	Owner     Owner    `yaml:"owner" json:"owner"`
	DependsOn []string `yaml:"depends_on" json:"depends_on"`
}

// Manifest is the exposures document.
type Manifest struct {
	Version   int      `yaml:"version" json:"version"`
	Exposures []Record `yaml:"exposures" json:"exposures"`
}

// Accumulator collects records for one manifest.
type Accumulator struct {
	records []Record
	skipped int
}

// Add appends a record.
func (a *Accumulator) Add(r Record) {
	a.records = append(a.records, r)
}

// Len returns the number of records collected.
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Skipped returns how many malformed dependency references were dropped
// while building the collected records.
func (a *Accumulator) Skipped() int {
	return a.skipped
}

// Manifest returns the collected records as a manifest.
func (a *Accumulator) Manifest() *Manifest {
	exposures := make([]Record, len(a.records))
	copy(exposures, a.records)
	return &Manifest{Version: ManifestVersion, Exposures: exposures}
}

// Builder turns aggregated rows into exposure records.
type Builder struct {
	BaseURL    string
	Classifier Classifier
	Rules      Rules
}

// NewBuilder creates a Builder. An empty baseURL uses DefaultBaseURL.
func NewBuilder(baseURL string, c Classifier) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Builder{BaseURL: baseURL, Classifier: c, Rules: DefaultRules}
}

// URL returns the content URL for a kind and external URL id.
func (b *Builder) URL(kind core.ContentKind, urlID string) string {
	base := b.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + kind.URLSegment() + urlID
}

// Build creates the record for one aggregated row. The second return value
// is the number of dependency references that could not be parsed.
func (b *Builder) Build(row core.AggregatedRow) (Record, int) {
	deps, skipped := b.Classifier.FormatAll(row.Dependencies)
	return Record{
		Name:      b.Rules.Apply(row.Name),
		Label:     row.Name,
		URL:       b.URL(row.Kind, row.URLID),
		Type:      row.Kind.ExposureType(),
		Owner:     Owner{Name: nullable(row.Owner.Name), Email: nullable(row.Owner.Email)},
		DependsOn: deps,
	}, skipped
}

// Collect builds a record for every row into acc and returns acc.
// A nil acc starts a new accumulator.
func (b *Builder) Collect(acc *Accumulator, rows []core.AggregatedRow) *Accumulator {
	if acc == nil {
		acc = &Accumulator{}
	}
	for _, row := range rows {
		rec, skipped := b.Build(row)
		acc.skipped += skipped
		acc.Add(rec)
	}
	return acc
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
