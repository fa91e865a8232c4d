package lineage

import (
	"testing"

	"github.com/leapstack-labs/leapexpose/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(db, schema, table string) core.TableRef {
	return core.TableRef{Database: db, Schema: schema, Table: table}
}

func row(kind core.ContentKind, name, owner string, table core.TableRef) core.FlatRow {
	return core.FlatRow{
		ContentItem: core.ContentItem{
			Kind:  kind,
			Name:  name,
			URLID: name + "-id",
			Owner: core.Owner{Name: owner, Email: owner + "@x.com"},
		},
		Table: table,
	}
}

func edge(referencing, referenced core.TableRef) core.DependencyEdge {
	return core.DependencyEdge{Referencing: referencing, Referenced: referenced}
}

func TestAggregate(t *testing.T) {
	view := ref("prod_reporting", "sales", "v_orders")
	otherView := ref("prod_reporting", "sales", "v_customers")

	rows := []core.FlatRow{
		row(core.KindDatasource, "Orders", "jane", view),
		row(core.KindWorkbook, "Board", "sam", otherView),
		row(core.KindDatasource, "Orders", "jane", otherView),
		row(core.KindWorkbook, "Unjoined", "sam", ref("x", "y", "z")),
	}
	deps := []core.DependencyEdge{
		edge(view, ref("prod_raw", "public", "orders")),
		edge(otherView, ref("prod_raw", "public", "customers")),
		edge(view, ref("prod_raw", "public", "customers")),
		edge(ref("UNRELATED", "A", "B"), ref("prod_raw", "public", "nope")),
	}

	got := Aggregate(rows, deps)
	require.Len(t, got, 2)

	assert.Equal(t, "Orders", got[0].Name)
	assert.Equal(t, []string{"prod_raw.public.orders", "prod_raw.public.customers"}, got[0].Dependencies)
	assert.Equal(t, "prod_raw.public.orders,prod_raw.public.customers", got[0].DependencyList())

	assert.Equal(t, "Board", got[1].Name)
	assert.Equal(t, core.KindWorkbook, got[1].Kind)
	assert.Equal(t, []string{"prod_raw.public.customers"}, got[1].Dependencies)
}

func TestAggregate_SharedReferencedObjectListedOnce(t *testing.T) {
	orders := ref("prod_reporting", "sales", "v_orders")
	returns := ref("prod_reporting", "sales", "v_returns")
	shared := ref("prod_raw", "public", "orders")

	rows := []core.FlatRow{
		row(core.KindWorkbook, "Ops", "sam", orders),
		row(core.KindWorkbook, "Ops", "sam", returns),
	}
	deps := []core.DependencyEdge{
		edge(orders, shared),
		edge(returns, shared),
		edge(returns, ref("prod_raw", "public", "returns")),
	}

	got := Aggregate(rows, deps)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"prod_raw.public.orders", "prod_raw.public.returns"}, got[0].Dependencies)
}

func TestAggregate_NormalizesEdgeCase(t *testing.T) {
	rows := []core.FlatRow{row(core.KindWorkbook, "W", "o", ref("prod_reporting", "s", "v"))}
	deps := []core.DependencyEdge{
		edge(ref("PROD_REPORTING", "S", "V"), ref("PROD_RAW", "PUBLIC", "ORDERS")),
	}

	got := Aggregate(rows, deps)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"prod_raw.public.orders"}, got[0].Dependencies)
}

func TestAggregate_GroupsByOwnerToo(t *testing.T) {
	view := ref("d", "s", "v")
	rows := []core.FlatRow{
		row(core.KindWorkbook, "Same", "a", view),
		row(core.KindWorkbook, "Same", "b", view),
	}
	deps := []core.DependencyEdge{edge(view, ref("d", "s", "t"))}

	got := Aggregate(rows, deps)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Owner.Name)
	assert.Equal(t, "b", got[1].Owner.Name)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, nil))
	assert.Empty(t, Aggregate([]core.FlatRow{row(core.KindWorkbook, "W", "o", ref("a", "b", "c"))}, nil))
}

func TestDirect(t *testing.T) {
	rows := []core.FlatRow{
		row(core.KindDatasource, "Sales", "jane", ref("prod_raw", "public", "orders")),
		row(core.KindWorkbook, "Board", "sam", ref("prod_reporting", "sales", "daily")),
		row(core.KindDatasource, "Sales", "jane", ref("prod_raw", "public", "customers")),
		row(core.KindDatasource, "Sales", "jane", ref("prod_raw", "public", "orders")),
	}

	got := Direct(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "Sales", got[0].Name)
	assert.Equal(t, []string{"prod_raw.public.orders", "prod_raw.public.customers"}, got[0].Dependencies)
	assert.Equal(t, "Board", got[1].Name)
	assert.Equal(t, []string{"prod_reporting.sales.daily"}, got[1].Dependencies)
}
