package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mesa-system/internal/auth"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) AccountTenant(ctx context.Context, principalID int64) (int64, error) {
	args := m.Called(ctx, principalID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLookup) OwnedTenant(ctx context.Context, principalID int64) (int64, error) {
	args := m.Called(ctx, principalID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLookup) StaffTenant(ctx context.Context, principalID int64) (int64, error) {
	args := m.Called(ctx, principalID)
	return args.Get(0).(int64), args.Error(1)
}

func TestResolveTokenTenantWins(t *testing.T) {
	lookup := new(mockLookup)
	r := NewResolver(lookup)

	id, err := r.Resolve(context.Background(),
		auth.Principal{UserID: 7, Role: auth.RoleWaiter, TenantID: 42},
		RequestContext{})

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	lookup.AssertNotCalled(t, "AccountTenant", mock.Anything, mock.Anything)
}

func TestResolveExplicitOnlyForAdmins(t *testing.T) {
	lookup := new(mockLookup)
	r := NewResolver(lookup)

	// Admin may override scope explicitly.
	id, err := r.Resolve(context.Background(),
		auth.Principal{UserID: 1, Role: auth.RoleAdmin, TenantID: 42},
		RequestContext{ExplicitTenantID: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	// A waiter carrying the same header keeps their own scope.
	id, err = r.Resolve(context.Background(),
		auth.Principal{UserID: 2, Role: auth.RoleWaiter, TenantID: 42},
		RequestContext{ExplicitTenantID: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestResolveProbeOrder(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("AccountTenant", mock.Anything, int64(5)).Return(int64(0), nil)
	lookup.On("OwnedTenant", mock.Anything, int64(5)).Return(int64(11), nil)
	r := NewResolver(lookup)

	id, err := r.Resolve(context.Background(),
		auth.Principal{UserID: 5, Role: auth.RoleManager},
		RequestContext{})

	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	lookup.AssertNotCalled(t, "StaffTenant", mock.Anything, mock.Anything)
}

func TestResolveFallsThroughToStaff(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("AccountTenant", mock.Anything, int64(8)).Return(int64(0), nil)
	lookup.On("OwnedTenant", mock.Anything, int64(8)).Return(int64(0), nil)
	lookup.On("StaffTenant", mock.Anything, int64(8)).Return(int64(3), nil)
	r := NewResolver(lookup)

	id, err := r.Resolve(context.Background(),
		auth.Principal{UserID: 8, Role: auth.RoleKitchen},
		RequestContext{})

	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestResolveNoScope(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("AccountTenant", mock.Anything, int64(9)).Return(int64(0), nil)
	lookup.On("OwnedTenant", mock.Anything, int64(9)).Return(int64(0), nil)
	lookup.On("StaffTenant", mock.Anything, int64(9)).Return(int64(0), nil)
	r := NewResolver(lookup)

	id, err := r.Resolve(context.Background(),
		auth.Principal{UserID: 9, Role: auth.RoleWaiter},
		RequestContext{})

	require.NoError(t, err)
	assert.Equal(t, int64(0), id)
}
