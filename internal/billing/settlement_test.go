package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"

	"mesa-system/internal/orders"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{
		DryRun:                 true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

// Two cashiers settling the same bill must race on a single guarded update:
// the claim has to carry the unpaid predicate so the loser matches zero rows
// instead of stamping the bill a second time.
func TestClaimBillGuardsOnUnpaid(t *testing.T) {
	db := dryRunDB(t)

	res := claimBill(db, 42, ModeCash, "txn-1", time.Now())
	require.NoError(t, res.Error)

	sql := res.Statement.SQL.String()
	assert.Contains(t, sql, "id = ? AND paid = ?")
	assert.Contains(t, res.Statement.Vars, int64(42))
	assert.Contains(t, res.Statement.Vars, false)
	assert.Contains(t, res.Statement.Vars, "txn-1")
}

func TestBillableOnlyWhenServed(t *testing.T) {
	assert.True(t, billable(orders.StatusServed))

	for _, s := range []string{
		orders.StatusDraft, orders.StatusPending, orders.StatusConfirmed,
		orders.StatusPreparing, orders.StatusReady,
		orders.StatusCompleted, orders.StatusCancelled,
	} {
		assert.False(t, billable(s), "status %s must not be billable", s)
	}
}

// A failed gateway callback returns the order to served, but only a completed
// order; anything else is left where it is.
func TestReopenOrderGuardsOnCompleted(t *testing.T) {
	db := dryRunDB(t)

	res := reopenOrder(db, 7)
	require.NoError(t, res.Error)

	sql := res.Statement.SQL.String()
	assert.Contains(t, sql, "id = ? AND status = ?")
	assert.Contains(t, res.Statement.Vars, int64(7))
	assert.Contains(t, res.Statement.Vars, orders.StatusCompleted)
	assert.Contains(t, res.Statement.Vars, orders.StatusServed)
}
