package core

// RawOwner is the owner object as returned by the metadata graph.
type RawOwner struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// RawUpstreamTable is one upstream table reference as returned by the metadata graph.
type RawUpstreamTable struct {
	FullName *string `json:"fullName"`
}

// RawContent is a content record as returned by the metadata graph.
// Pointer fields distinguish null from empty values.
type RawContent struct {
	Name           *string            `json:"name"`
	VizportalURLID *string            `json:"vizportalUrlId"`
	UpstreamTables []RawUpstreamTable `json:"upstreamTables"`
	ProjectName    *string            `json:"projectName"`
	Owner          *RawOwner          `json:"owner"`
}

// QueryError is an error or warning reported alongside metadata query results.
type QueryError struct {
	Message string         `json:"message"`
	Path    []any          `json:"path,omitempty"`
	Extras  map[string]any `json:"extensions,omitempty"`
}

// MetadataResult is the decoded response of one content-kind metadata query.
type MetadataResult struct {
	Kind   ContentKind
	Items  []RawContent
	Errors []QueryError
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
