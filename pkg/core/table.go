package core

import "strings"

// TableRef is a fully-qualified warehouse object: database.schema.object.
type TableRef struct {
	Database string
	Schema   string
	Table    string
}

// FullName returns the dotted three-part name.
func (t TableRef) FullName() string {
	return t.Database + "." + t.Schema + "." + t.Table
}

// Lower returns a copy with every component lower-cased.
func (t TableRef) Lower() TableRef {
	return TableRef{
		Database: strings.ToLower(t.Database),
		Schema:   strings.ToLower(t.Schema),
		Table:    strings.ToLower(t.Table),
	}
}

// DependencyEdge is a warehouse-native record of one object reading from another.
type DependencyEdge struct {
	Referenced  TableRef // the object being read
	Referencing TableRef // the object doing the reading (typically a view)
}
