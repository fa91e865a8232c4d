// Package exposure builds dbt exposure records from aggregated lineage rows
// and writes them as an exposures manifest.
//
// # Names
//
// Exposure names are derived from content labels by lower-casing them and
// replacing punctuation with fixed tokens (see DefaultRules). The mapping is
// deterministic but not injective: "A B" and "a_b" produce the same name.
//
// # Dependencies
//
// Each warehouse dependency "db.schema.object" renders as
// ref('schema_object'), source('schema_object') or other('schema_object')
// depending on which database it lives in (see Classifier).
//
// # Output
//
//	version: 1
//	exposures:
//	  - name: sales_report_exclmtnpt_
//	    label: Sales Report!
//	    url: https://.../datasources/123
//	    type: published_datasource
//	    owner:
//	      name: Jane
//	      email: jane@x.com
//	    depends_on:
//	      - source('public_orders')
package exposure
