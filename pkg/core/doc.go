// Package core defines the shared language of leapexpose.
//
// This package contains:
//   - BI-side entities (Scope, ContentItem, Owner, ContentKind)
//   - Warehouse-side entities (TableRef, DependencyEdge)
//   - The relational rows that flow between pipeline stages (FlatRow, AggregatedRow)
//   - Raw metadata records as decoded from the BI platform
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
