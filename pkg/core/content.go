package core

import "strings"

// ContentKind identifies the type of BI content an exposure describes.
type ContentKind string

const (
	// KindDatasource is a published data source.
	KindDatasource ContentKind = "publishedDatasources"
	// KindWorkbook is a workbook.
	KindWorkbook ContentKind = "workbooks"
)

// AllKinds returns the content kinds in pipeline order.
func AllKinds() []ContentKind {
	return []ContentKind{KindDatasource, KindWorkbook}
}

// QueryKey returns the metadata graph field that lists content of this kind.
func (k ContentKind) QueryKey() string {
	return string(k)
}

// ExposureType returns the type tag written to the manifest.
func (k ContentKind) ExposureType() string {
	if k == KindDatasource {
		return "published_datasource"
	}
	return "workbook"
}

// URLSegment returns the path segment used to build content URLs.
func (k ContentKind) URLSegment() string {
	if k == KindDatasource {
		return "datasources/"
	}
	return "workbooks/"
}

// Label returns a human-readable, lower-case label ("published datasource").
func (k ContentKind) Label() string {
	return strings.ReplaceAll(k.ExposureType(), "_", " ")
}

// Owner identifies who owns a content item. Empty fields mean the metadata
// source did not provide a value.
type Owner struct {
	Name  string
	Email string
}

// ContentItem is a published data source or workbook.
type ContentItem struct {
	Kind        ContentKind
	Name        string
	URLID       string
	ProjectName string
	Owner       Owner
}

// FlatRow is one (content item, upstream table) pair.
// A content item with N valid upstream tables produces N rows.
type FlatRow struct {
	ContentItem
	Table TableRef
}

// GroupKey identifies the aggregation group a row belongs to.
type GroupKey struct {
	Kind       ContentKind
	Name       string
	URLID      string
	OwnerName  string
	OwnerEmail string
}

// Key returns the aggregation key of the row's content item.
func (c ContentItem) Key() GroupKey {
	return GroupKey{
		Kind:       c.Kind,
		Name:       c.Name,
		URLID:      c.URLID,
		OwnerName:  c.Owner.Name,
		OwnerEmail: c.Owner.Email,
	}
}

// AggregatedRow holds every warehouse object a content item depends on.
type AggregatedRow struct {
	Kind         ContentKind
	Name         string
	URLID        string
	Owner        Owner
	Dependencies []string // dotted full names, first-occurrence order
}

// DependencyList returns the dependencies as a comma-separated string.
func (r AggregatedRow) DependencyList() string {
	return strings.Join(r.Dependencies, ",")
}
