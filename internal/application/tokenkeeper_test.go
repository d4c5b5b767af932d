package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

func seedExpiring(store *memStore, id, authType string, expire time.Time, secrets model.CredentialSecrets) {
	store.put(model.Credential{
		ID: id,
		Data: model.CredentialData{
			AuthType: authType,
			Expire:   expire.Format(time.RFC3339),
		},
	}, secrets)
}

func newTestKeeper(svc *CredentialService) *TokenKeeper {
	return NewTokenKeeper(svc, time.Hour, discardLogger())
}

func pendingRetries(k *TokenKeeper) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.retries)
}

func TestSweep_RefreshesOnlyDueCredentials(t *testing.T) {
	store := newMemStore()
	rt := model.CredentialSecrets{RefreshToken: longToken}

	seedExpiring(store, "due", "oauth", testNow.Add(5*time.Minute), rt)
	seedExpiring(store, "fresh", "oauth", testNow.Add(2*time.Hour), rt)
	seedExpiring(store, "setup", "setup_token", testNow.Add(time.Minute), model.CredentialSecrets{AccessToken: "at"})
	seedExpiring(store, "short-rt", "console", testNow.Add(time.Minute), model.CredentialSecrets{RefreshToken: "short"})
	seedCredential(store, "no-expiry", "claude_code", rt)

	disabled := model.Credential{
		ID:         "disabled",
		IsDisabled: true,
		Data:       model.CredentialData{AuthType: "oauth", Expire: testNow.Format(time.RFC3339)},
	}
	store.put(disabled, rt)

	refresher := &mockRefresher{tokens: &model.TokenSet{AccessToken: "new", ExpiresAt: testNow.Add(8 * time.Hour)}}
	svc := newTestService(store, refresher)

	res, err := newTestKeeper(svc).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Refreshed: 1}, res)
	assert.Equal(t, 1, refresher.calls())

	stored, _ := store.Get(context.Background(), "due")
	assert.Equal(t, model.HealthStatusHealthy, stored.HealthStatus)
	assert.False(t, svc.Busy().Get("due").RefreshingToken)

	untouched, _ := store.Get(context.Background(), "short-rt")
	assert.Zero(t, untouched.ErrorCount)
}

func TestSweep_BacksOffAfterFailure(t *testing.T) {
	store := newMemStore()
	seedExpiring(store, "c1", "oauth", testNow.Add(time.Minute), model.CredentialSecrets{RefreshToken: longToken})

	refresher := &mockRefresher{err: errUpstream}
	svc := newTestService(store, refresher)
	keeper := newTestKeeper(svc)

	res, err := keeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Failed: 1}, res)

	// Still inside the backoff window.
	res, err = keeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Deferred: 1}, res)
	assert.Equal(t, 1, refresher.calls())

	// After the first delay the refresh is attempted again.
	svc.now = func() time.Time { return testNow.Add(retryBaseDelay) }
	res, err = keeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Failed: 1}, res)
	assert.Equal(t, 2, refresher.calls())

	stored, _ := store.Get(context.Background(), "c1")
	assert.Equal(t, int64(2), stored.ErrorCount)
}

func TestSweep_SkipsRefreshAlreadyInFlight(t *testing.T) {
	store := newMemStore()
	seedExpiring(store, "c1", "oauth", testNow.Add(time.Minute), model.CredentialSecrets{RefreshToken: longToken})
	refresher := &mockRefresher{tokens: &model.TokenSet{AccessToken: "new"}}
	svc := newTestService(store, refresher)

	require.True(t, svc.Busy().Begin("c1", BusyRefreshingToken))
	defer svc.Busy().End("c1", BusyRefreshingToken)

	res, err := newTestKeeper(svc).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1}, res)
	assert.Zero(t, refresher.calls())
}

func TestSweep_NoEncryptionKey(t *testing.T) {
	store := newMemStore()
	seedExpiring(store, "c1", "oauth", testNow.Add(time.Minute), model.CredentialSecrets{RefreshToken: longToken})
	store.secretsErr = driven.ErrEncryptionKeyNotSet
	refresher := &mockRefresher{tokens: &model.TokenSet{AccessToken: "new"}}

	res, err := newTestKeeper(newTestService(store, refresher)).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
	assert.Zero(t, refresher.calls())
}

func TestTokenKeeper_SweepNowAndStop(t *testing.T) {
	store := newMemStore()
	seedExpiring(store, "c1", "oauth", testNow.Add(time.Minute), model.CredentialSecrets{RefreshToken: longToken})

	// The refreshed token still expires soon, so every sweep refreshes it.
	refresher := &mockRefresher{tokens: &model.TokenSet{AccessToken: "new", ExpiresAt: testNow.Add(5 * time.Minute)}}
	keeper := newTestKeeper(newTestService(store, refresher))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		keeper.Start(ctx)
		close(stopped)
	}()

	res, err := keeper.SweepNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Refreshed)
	assert.Equal(t, 2, refresher.calls())

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("token keeper did not stop")
	}
}

func TestSweepNow_ContextCanceled(t *testing.T) {
	keeper := newTestKeeper(newTestService(newMemStore(), nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := keeper.SweepNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{7, time.Hour},
		{30, time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryDelay(tt.failures), "failures=%d", tt.failures)
	}
}

func TestSweep_ForgetsBackoffOfDeletedCredentials(t *testing.T) {
	store := newMemStore()
	seedExpiring(store, "c1", "oauth", testNow.Add(time.Minute), model.CredentialSecrets{RefreshToken: longToken})
	seedExpiring(store, "c2", "oauth", testNow.Add(time.Minute), model.CredentialSecrets{RefreshToken: longToken})
	svc := newTestService(store, &mockRefresher{err: errUpstream})
	keeper := newTestKeeper(svc)

	_, err := keeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pendingRetries(keeper))

	require.NoError(t, svc.Delete(context.Background(), "c1"))

	_, err = keeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pendingRetries(keeper))
}
