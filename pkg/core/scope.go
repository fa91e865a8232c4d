package core

// Scope is a folder-like grouping of BI content (a Tableau project).
// Scopes form a forest: root scopes have an empty ParentID.
type Scope struct {
	ID       string
	Name     string
	ParentID string
}

// IsRoot reports whether the scope has no parent.
func (s Scope) IsRoot() bool {
	return s.ParentID == ""
}
