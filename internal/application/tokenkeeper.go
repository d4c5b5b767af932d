package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// Retry delays after a failed automatic refresh. The delay doubles with every
// consecutive failure of the same credential.
const (
	retryBaseDelay = 1 * time.Minute
	retryMaxDelay  = 1 * time.Hour
)

// SweepResult summarizes one pass over the stored credentials.
type SweepResult struct {
	Due       int // Refreshable credentials whose access token expires soon.
	Refreshed int
	Failed    int
	Deferred  int // Due but still backing off from an earlier failure.
}

// retryState tracks the backoff of one credential whose refresh failed.
type retryState struct {
	failures    int
	nextAttempt time.Time
}

// sweepRequest represents a manual sweep trigger.
type sweepRequest struct {
	done chan sweepOutcome
}

type sweepOutcome struct {
	result SweepResult
	err    error
}

// TokenKeeper refreshes OAuth access tokens shortly before they expire. It
// sweeps all credentials on a fixed interval and on demand.
type TokenKeeper struct {
	svc      *CredentialService
	interval time.Duration
	logger   *slog.Logger
	sweepCh  chan sweepRequest

	mu      sync.Mutex
	retries map[string]retryState
}

// NewTokenKeeper creates a TokenKeeper that sweeps every interval.
func NewTokenKeeper(svc *CredentialService, interval time.Duration, logger *slog.Logger) *TokenKeeper {
	return &TokenKeeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
		sweepCh:  make(chan sweepRequest),
		retries:  make(map[string]retryState),
	}
}

// Start runs an immediate sweep, then sweeps on the configured interval. It
// also serves manual sweep requests. Start blocks until the context is
// canceled.
func (k *TokenKeeper) Start(ctx context.Context) {
	if _, err := k.Sweep(ctx); err != nil {
		k.logger.Error("initial token sweep failed", "error", err)
	}

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("token keeper stopped")
			return
		case <-ticker.C:
			if _, err := k.Sweep(ctx); err != nil {
				k.logger.Error("token sweep failed", "error", err)
			}
		case req := <-k.sweepCh:
			res, err := k.Sweep(ctx)
			req.done <- sweepOutcome{result: res, err: err}
		}
	}
}

// SweepNow asks a running keeper for an immediate sweep and waits for its
// result, or for ctx to be canceled.
func (k *TokenKeeper) SweepNow(ctx context.Context) (SweepResult, error) {
	req := sweepRequest{done: make(chan sweepOutcome, 1)}

	select {
	case k.sweepCh <- req:
	case <-ctx.Done():
		return SweepResult{}, ctx.Err()
	}

	select {
	case out := <-req.done:
		return out.result, out.err
	case <-ctx.Done():
		return SweepResult{}, ctx.Err()
	}
}

// Sweep refreshes every enabled, refreshable credential whose access token
// expires within the next ten minutes and that holds a usable refresh token.
// Credentials without a known expiry are left to manual refresh.
func (k *TokenKeeper) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	var res SweepResult

	creds, err := k.svc.List(ctx)
	if err != nil {
		return res, err
	}

	now := k.svc.now()
	for _, cred := range creds {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if !k.isDue(cred, now) {
			continue
		}

		secrets, err := k.svc.store.GetSecrets(ctx, cred.ID)
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			k.logger.Debug("token sweep skipped, no encryption key")
			return res, nil
		}
		if err != nil {
			k.logger.Error("token sweep could not load secrets", "credential_id", cred.ID, "error", err)
			continue
		}
		if len(secrets.RefreshToken) < minRefreshTokenLength {
			continue
		}

		res.Due++
		if !k.mayAttempt(cred.ID, now) {
			res.Deferred++
			continue
		}

		started, err := k.svc.RefreshTokenTracked(ctx, cred.ID)
		switch {
		case !started:
			// A refresh from the GUI is already running.
		case err != nil:
			res.Failed++
			delay := k.recordFailure(cred.ID, now)
			k.logger.Warn("automatic token refresh failed",
				"credential_id", cred.ID,
				"retry_in", delay,
				"error", err,
			)
		default:
			res.Refreshed++
			k.clearFailure(cred.ID)
		}
	}

	k.pruneRetries(creds)

	k.logger.Info("token sweep complete",
		"credentials", len(creds),
		"due", res.Due,
		"refreshed", res.Refreshed,
		"failed", res.Failed,
		"deferred", res.Deferred,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func (k *TokenKeeper) isDue(cred model.Credential, now time.Time) bool {
	if cred.IsDisabled || cred.Data.Expire == "" {
		return false
	}
	if !model.AuthType(cred.Data.ResolvedAuthType()).SupportsTokenRefresh() {
		return false
	}
	return IsTokenExpiringSoon(cred.Data.Expire, now)
}

func (k *TokenKeeper) mayAttempt(id string, now time.Time) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	st, ok := k.retries[id]
	return !ok || !now.Before(st.nextAttempt)
}

// recordFailure schedules the next attempt and returns the delay until then.
func (k *TokenKeeper) recordFailure(id string, now time.Time) time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()
	st := k.retries[id]
	st.failures++
	delay := retryDelay(st.failures)
	st.nextAttempt = now.Add(delay)
	k.retries[id] = st
	return delay
}

// pruneRetries drops the backoff state of credentials that no longer exist.
func (k *TokenKeeper) pruneRetries(creds []model.Credential) {
	live := make(map[string]struct{}, len(creds))
	for _, c := range creds {
		live[c.ID] = struct{}{}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for id := range k.retries {
		if _, ok := live[id]; !ok {
			delete(k.retries, id)
		}
	}
}

func (k *TokenKeeper) clearFailure(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.retries, id)
}

// retryDelay returns the backoff after the given number of consecutive
// failures: 1m, 2m, 4m and so on, capped at one hour.
func retryDelay(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	d := retryBaseDelay
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}
