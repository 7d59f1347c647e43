package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerRoundTrip(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	_, ok, err := ledger.Check(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Store(ctx, "k1", []byte(`{"status":"completed"}`)))

	cached, ok, err := ledger.Check(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"status":"completed"}`), cached)
}

func TestMemoryLedgerOverwrite(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Store(ctx, "k", []byte("first")))
	require.NoError(t, ledger.Store(ctx, "k", []byte("second")))

	cached, ok, err := ledger.Check(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("second"), cached)
}

func TestMemoryLedgerExpiry(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	ledger.entries["old"] = memoryEntry{
		response: []byte("stale"),
		storedAt: time.Now().Add(-TTL - time.Minute),
	}

	_, ok, err := ledger.Check(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	ledger.sweep()
	_, exists := ledger.entries["old"]
	assert.False(t, exists)
}

func TestMemoryLedgerSweepKeepsFresh(t *testing.T) {
	ledger := NewMemoryLedger()
	require.NoError(t, ledger.Store(context.Background(), "fresh", []byte("x")))

	ledger.sweep()
	_, exists := ledger.entries["fresh"]
	assert.True(t, exists)
}
