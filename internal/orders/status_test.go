package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanReachForwardOnly(t *testing.T) {
	assert.True(t, CanReach(StatusDraft, StatusPending))
	assert.True(t, CanReach(StatusPending, StatusConfirmed))
	assert.True(t, CanReach(StatusPending, StatusServed)) // skipping ahead is allowed
	assert.True(t, CanReach(StatusServed, StatusCompleted))

	assert.False(t, CanReach(StatusConfirmed, StatusPending))
	assert.False(t, CanReach(StatusReady, StatusPreparing))
	assert.False(t, CanReach(StatusPending, StatusPending))
}

func TestCanReachCancellation(t *testing.T) {
	for _, s := range []string{StatusDraft, StatusPending, StatusConfirmed, StatusPreparing, StatusReady} {
		assert.True(t, CanReach(s, StatusCancelled), "from %s", s)
	}
	assert.False(t, CanReach(StatusServed, StatusCancelled))
	assert.False(t, CanReach(StatusCompleted, StatusCancelled))
	assert.False(t, CanReach(StatusCancelled, StatusCancelled))
}

func TestCanReachTerminalFrozen(t *testing.T) {
	for _, target := range []string{StatusDraft, StatusPending, StatusServed, StatusCompleted} {
		assert.False(t, CanReach(StatusCompleted, target))
		assert.False(t, CanReach(StatusCancelled, target))
	}
}

func TestRank(t *testing.T) {
	assert.Equal(t, -1, Rank(StatusCancelled))
	assert.Equal(t, -1, Rank("bogus"))
	assert.Less(t, Rank(StatusDraft), Rank(StatusPending))
	assert.Less(t, Rank(StatusServed), Rank(StatusCompleted))
}

func TestSourceRules(t *testing.T) {
	assert.True(t, RequiresTable(SourceDineIn))
	assert.True(t, RequiresTable(SourceTakeaway))
	assert.False(t, RequiresTable(SourcePhone))
	assert.False(t, RequiresTable(SourceOnline))

	assert.False(t, RequiresCustomer(SourceDineIn))
	assert.True(t, RequiresCustomer(SourceTakeaway))
	assert.True(t, RequiresCustomer(SourcePhone))

	assert.True(t, RequiresDelivery(SourcePhone))
	assert.True(t, RequiresDelivery(SourceOnline))
	assert.False(t, RequiresDelivery(SourceDineIn))
	assert.False(t, RequiresDelivery(SourceTakeaway))

	assert.False(t, ValidSource("drive-thru"))
}
