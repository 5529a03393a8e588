package cart

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vitrina/internal/catalog"
	"github.com/roach88/vitrina/internal/money"
	"github.com/roach88/vitrina/internal/store"
)

type fakeCatalog map[string]catalog.Record

func (f fakeCatalog) Lookup(id string) (catalog.Record, bool) {
	rec, ok := f[id]
	return rec, ok
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		"P1": {ID: "P1", Name: "Buso L", UnitPrice: 1000, Stock: 10, ModifiedAt: 1},
		"P2": {ID: "P2", Name: "Camiseta M", UnitPrice: 9000, Stock: 5, ModifiedAt: 1},
	}
}

func newTestEngine(t *testing.T, view CatalogView, cfg Config) *Engine {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e := NewEngine(st, view, cfg)
	e.now = func() int64 { return 12345 }
	return e
}

func pct(t *testing.T, v float64) *money.Percent {
	t.Helper()
	p, err := money.PercentFromFloat(v)
	require.NoError(t, err)
	return &p
}

func TestAddItem_TotalsScenario(t *testing.T) {
	// P1.unitPrice=1000, add ("42", 2, 20%) => {2000, 400, 2400}.
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "42", 2, pct(t, 20)))

	totals := e.Totals()
	assert.Equal(t, money.Amount(2000), totals.SubtotalWholesale)
	assert.Equal(t, money.Amount(400), totals.ProfitTotal)
	assert.Equal(t, money.Amount(2400), totals.GrandTotal)
	assert.Equal(t, 1, totals.LineCount)
	assert.Equal(t, 2, totals.UnitCount)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})

	err := e.AddItem(context.Background(), "ghost", "", 1, nil)
	assert.True(t, IsNotFound(err), "want NotFoundError, got %v", err)
	assert.Empty(t, e.Lines())
}

func TestAddItem_QuantityOverLimit(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{MaxQuantityPerLine: 10})

	err := e.AddItem(context.Background(), "P1", "", 11, nil)
	assert.True(t, IsCapacity(err), "want CapacityError, got %v", err)
	assert.Empty(t, e.Lines(), "failed add must leave the cart unchanged")
}

func TestAddItem_SameKeySumsQuantities(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "42", 2, nil))
	require.NoError(t, e.AddItem(ctx, "P1", "42", 3, nil))

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddItem_MergeOverflowLeavesLineUntouched(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{MaxQuantityPerLine: 10})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "42", 8, nil))
	err := e.AddItem(ctx, "P1", "42", 5, nil)

	assert.True(t, IsCapacity(err))
	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 8, lines[0].Quantity, "no partial increase on overflow")
}

func TestAddItem_DistinctVariantsAreDistinctLines(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "S", 1, nil))
	require.NoError(t, e.AddItem(ctx, "P1", "M", 1, nil))

	assert.Len(t, e.Lines(), 2)
}

func TestAddItem_VariantNormalized(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", " 42 ", 1, nil))
	require.NoError(t, e.AddItem(ctx, "P1", "42", 1, nil))

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "42", lines[0].Variant)
}

func TestAddItem_LineCountLimit(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{MaxLines: 1})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "S", 1, nil))
	err := e.AddItem(ctx, "P2", "", 1, nil)

	assert.True(t, IsCapacity(err))
	assert.Len(t, e.Lines(), 1)
}

func TestAddItem_DefaultMarginApplied(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "", 1, nil))

	lines := e.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, money.Percent(2000), lines[0].Margin)
	assert.Equal(t, money.Amount(1200), lines[0].FinalUnit())
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "", 2, nil))
	require.NoError(t, e.UpdateQuantity(ctx, "P1", "", 0))

	assert.Empty(t, e.Lines())
}

func TestUpdateQuantity_OverLimitLeavesStateUnchanged(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{MaxQuantityPerLine: 10})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "", 2, nil))
	err := e.UpdateQuantity(ctx, "P1", "", 11)

	assert.True(t, IsCapacity(err))
	assert.Equal(t, 2, e.Lines()[0].Quantity)
}

func TestUpdateQuantity_AbsentLine(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})

	err := e.UpdateQuantity(context.Background(), "P1", "", 3)
	assert.True(t, IsNotFound(err))
}

func TestRemoveItem_Idempotent(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "", 1, nil))

	require.NoError(t, e.RemoveItem(ctx, "P2", ""))
	after1 := e.Lines()
	require.NoError(t, e.RemoveItem(ctx, "P2", ""))
	after2 := e.Lines()

	assert.Equal(t, after1, after2, "removing an absent key twice must be identical no-ops")
	assert.Len(t, after1, 1)
}

func TestClear_EmptiesCart(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "", 1, nil))
	require.NoError(t, e.AddItem(ctx, "P2", "", 1, nil))
	require.NoError(t, e.Clear(ctx))

	assert.Empty(t, e.Lines())
	assert.Equal(t, Totals{}, e.Totals())
}

func TestTotals_InvariantHoldsAfterEveryMutation(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	check := func() {
		t.Helper()
		totals := e.Totals()
		assert.Equal(t, totals.GrandTotal, totals.SubtotalWholesale+totals.ProfitTotal)
	}

	require.NoError(t, e.AddItem(ctx, "P1", "S", 3, pct(t, 15)))
	check()
	require.NoError(t, e.AddItem(ctx, "P2", "", 2, pct(t, 33.3)))
	check()
	require.NoError(t, e.UpdateQuantity(ctx, "P1", "S", 7))
	check()
	require.NoError(t, e.RemoveItem(ctx, "P2", ""))
	check()
	require.NoError(t, e.Clear(ctx))
	check()
}

func TestLoad_RestoresPersistedCart(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	first := NewEngine(st, testCatalog(), Config{})
	require.NoError(t, first.AddItem(ctx, "P1", "42", 2, pct(t, 20)))

	second := NewEngine(st, testCatalog(), Config{})
	require.NoError(t, second.Load(ctx))

	assert.Equal(t, first.Lines(), second.Lines())
	assert.Equal(t, first.Totals(), second.Totals())
}

func TestLoad_CorruptPayload(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	require.NoError(t, st.Write(ctx, StoreKey, "{not json"))

	e := NewEngine(st, testCatalog(), Config{})
	err = e.Load(ctx)
	assert.True(t, store.IsPersistence(err), "want PersistenceError, got %v", err)
}

func TestRevalidate_DropsLinesForDeletedProducts(t *testing.T) {
	view := testCatalog()
	e := newTestEngine(t, view, Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "", 1, nil))
	require.NoError(t, e.AddItem(ctx, "P2", "", 1, nil))

	delete(view, "P2") // product tombstoned elsewhere

	removed, err := e.Revalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Key{{ProductID: "P2"}}, removed)
	require.Len(t, e.Lines(), 1)
	assert.Equal(t, "P1", e.Lines()[0].ProductID)
}

func TestRevalidate_NoChangeIsNoop(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})
	ctx := context.Background()

	require.NoError(t, e.AddItem(ctx, "P1", "", 1, nil))

	notified := 0
	cancel := e.Subscribe(func() { notified++ })
	defer cancel()

	removed, err := e.Revalidate(ctx)
	require.NoError(t, err)
	assert.Nil(t, removed)
	assert.Zero(t, notified)
}

func TestSubscribe_FiresAfterMutation(t *testing.T) {
	e := newTestEngine(t, testCatalog(), Config{})

	var seen []Totals
	cancel := e.Subscribe(func() {
		seen = append(seen, e.Totals()) // reading back must not deadlock
	})
	defer cancel()

	require.NoError(t, e.AddItem(context.Background(), "P1", "", 1, nil))

	require.Len(t, seen, 1)
	assert.Equal(t, 1, seen[0].LineCount)
}
