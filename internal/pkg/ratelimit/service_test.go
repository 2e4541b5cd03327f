package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounterStore counts in memory and can simulate connectivity loss.
type fakeCounterStore struct {
	counts  map[string]int64
	calls   []string
	failAll bool
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{counts: make(map[string]int64)}
}

func (f *fakeCounterStore) Consume(_ context.Context, key string, limit int, window time.Duration) (int64, time.Duration, error) {
	f.calls = append(f.calls, key)
	if f.failAll {
		return 0, 0, errors.New("connection refused")
	}
	f.counts[key]++
	count := f.counts[key]
	if count > int64(limit) {
		return count, window, ErrLimitExceeded
	}
	return count, window, nil
}

func (f *fakeCounterStore) Close() error { return nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Production = false
	return cfg
}

func TestCheckLimit_AllowsAndCounts(t *testing.T) {
	store := newFakeCounterStore()
	svc := NewService(store, testConfig())

	for i := 0; i < 3; i++ {
		result, err := svc.CheckLimit(context.Background(), "org:1:minute", 3, WindowMinute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, 3-(i+1), result.Remaining)
	}

	result, err := svc.CheckLimit(context.Background(), "org:1:minute", 3, WindowMinute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.GreaterOrEqual(t, result.RetryAfter, 1)
}

func TestCheckLimit_DisabledPassesThrough(t *testing.T) {
	store := newFakeCounterStore()
	cfg := testConfig()
	cfg.Enabled = false
	svc := NewService(store, cfg)

	for i := 0; i < 10; i++ {
		result, err := svc.CheckLimit(context.Background(), "org:1:minute", 2, WindowMinute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2, result.Remaining)
	}
	assert.Empty(t, store.calls, "disabled limiter must not touch the store")
}

func TestCheckLimit_NilStorePassesThrough(t *testing.T) {
	svc := NewService(nil, testConfig())
	result, err := svc.CheckLimit(context.Background(), "ip:1.2.3.4:minute", 60, WindowMinute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCheckLimit_FailOpenOutsideProduction(t *testing.T) {
	store := newFakeCounterStore()
	store.failAll = true
	svc := NewService(store, testConfig())

	result, err := svc.CheckLimit(context.Background(), "org:1:minute", 5, WindowMinute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCheckLimit_FailClosedInProductionByDefault(t *testing.T) {
	store := newFakeCounterStore()
	store.failAll = true
	cfg := testConfig()
	cfg.Production = true
	svc := NewService(store, cfg)

	result, err := svc.CheckLimit(context.Background(), "org:1:minute", 5, WindowMinute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Nil(t, result)
}

func TestCheckLimit_FailOpenInProductionOptIn(t *testing.T) {
	store := newFakeCounterStore()
	store.failAll = true
	cfg := testConfig()
	cfg.Production = true
	cfg.FailOpenInProduction = true
	svc := NewService(store, cfg)

	result, err := svc.CheckLimit(context.Background(), "org:1:minute", 5, WindowMinute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCheckOrgLimit_MinuteRejectionShortCircuits(t *testing.T) {
	store := newFakeCounterStore()
	cfg := testConfig()
	cfg.Plans = map[string]PlanQuota{
		"free": {Minute: 1, Hour: intPtr(10), Day: intPtr(100)},
	}
	svc := NewService(store, cfg)

	first, err := svc.CheckOrgLimit(context.Background(), 7, "free")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	callsAfterFirst := len(store.calls)

	second, err := svc.CheckOrgLimit(context.Background(), 7, "free")
	require.NoError(t, err)
	assert.False(t, second.Allowed)

	// The minute rejection must prevent hour/day consumption.
	for _, key := range store.calls[callsAfterFirst:] {
		assert.NotContains(t, key, ":hour")
		assert.NotContains(t, key, ":day")
	}
	assert.Equal(t, int64(1), store.counts["org:7:day"])
}

func TestCheckOrgLimit_HourWindowEnforced(t *testing.T) {
	store := newFakeCounterStore()
	cfg := testConfig()
	cfg.Plans = map[string]PlanQuota{
		"free": {Minute: 100, Hour: intPtr(2), Day: intPtr(100)},
	}
	svc := NewService(store, cfg)

	for i := 0; i < 2; i++ {
		result, err := svc.CheckOrgLimit(context.Background(), 9, "free")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := svc.CheckOrgLimit(context.Background(), 9, "free")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	// Rejection came from the hour window, so headers carry the hour quota.
	assert.Equal(t, 2, result.Limit)
}

func TestCheckOrgLimit_EnterpriseSkipsUnlimitedWindows(t *testing.T) {
	store := newFakeCounterStore()
	svc := NewService(store, testConfig())

	result, err := svc.CheckOrgLimit(context.Background(), 3, "enterprise")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 5000, result.Limit)

	for _, key := range store.calls {
		assert.NotContains(t, key, ":hour")
		assert.NotContains(t, key, ":day")
	}
}

func TestCheckOrgLimit_ReturnsMinuteResultWhenAllPass(t *testing.T) {
	store := newFakeCounterStore()
	svc := NewService(store, testConfig())

	result, err := svc.CheckOrgLimit(context.Background(), 12, "starter")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 300, result.Limit)
	assert.Equal(t, 299, result.Remaining)
}

func TestCheckOrgLimit_UnknownPlanFallsBackToFree(t *testing.T) {
	store := newFakeCounterStore()
	svc := NewService(store, testConfig())

	result, err := svc.CheckOrgLimit(context.Background(), 4, "platinum")
	require.NoError(t, err)
	assert.Equal(t, 100, result.Limit)
}

func TestCheckIPLimit_AuthTighterThanPublic(t *testing.T) {
	store := newFakeCounterStore()
	svc := NewService(store, testConfig())

	authResult, err := svc.CheckIPLimit(context.Background(), "10.0.0.1", IPLimitAuth)
	require.NoError(t, err)
	publicResult, err := svc.CheckIPLimit(context.Background(), "10.0.0.2", IPLimitPublic)
	require.NoError(t, err)

	assert.Equal(t, 20, authResult.Limit)
	assert.Equal(t, 60, publicResult.Limit)
	assert.Less(t, authResult.Limit, publicResult.Limit)
}

func TestCheckIPLimit_IsolatedPerIP(t *testing.T) {
	store := newFakeCounterStore()
	cfg := testConfig()
	cfg.IP = IPQuota{Auth: 1, Public: 1}
	svc := NewService(store, cfg)

	first, err := svc.CheckIPLimit(context.Background(), "10.0.0.1", IPLimitPublic)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	blocked, err := svc.CheckIPLimit(context.Background(), "10.0.0.1", IPLimitPublic)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := svc.CheckIPLimit(context.Background(), "10.0.0.2", IPLimitPublic)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "a throttled neighbor must not affect other IPs")
}

func TestQuotaForPlan_Normalization(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		in   string
		want int
	}{
		{in: "pro", want: 1000},
		{in: " PRO ", want: 1000},
		{in: "starter", want: 300},
		{in: "", want: 100},
		{in: "does-not-exist", want: 100},
	}
	for _, tt := range tests {
		if got := cfg.QuotaForPlan(tt.in).Minute; got != tt.want {
			t.Fatalf("QuotaForPlan(%q).Minute = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAllowOnStoreFailure(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{name: "fail-open outside production", cfg: Config{FailOpen: true, Production: false}, want: true},
		{name: "fail-open flag off", cfg: Config{FailOpen: false, Production: false}, want: false},
		{name: "production without opt-in", cfg: Config{FailOpen: true, Production: true}, want: false},
		{name: "production with opt-in", cfg: Config{FailOpen: true, Production: true, FailOpenInProduction: true}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.AllowOnStoreFailure())
		})
	}
}
