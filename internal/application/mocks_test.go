package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// --- Mock implementations ---

// memStore is an in-memory driven.CredentialStore.
type memStore struct {
	mu         sync.Mutex
	creds      map[string]model.Credential
	secrets    map[string]model.CredentialSecrets
	updateErr  error
	secretsErr error
	getDelay   time.Duration // widens the gap between a read and the following write
}

var _ driven.CredentialStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		creds:   make(map[string]model.Credential),
		secrets: make(map[string]model.CredentialSecrets),
	}
}

func (m *memStore) put(cred model.Credential, secrets model.CredentialSecrets) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.ID] = cred
	m.secrets[cred.ID] = secrets
}

func (m *memStore) Create(_ context.Context, cred model.Credential, secrets model.CredentialSecrets) error {
	m.put(cred, secrets)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.Credential, error) {
	if m.getDelay > 0 {
		time.Sleep(m.getDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[id]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (m *memStore) GetSecrets(_ context.Context, id string) (model.CredentialSecrets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secretsErr != nil {
		return model.CredentialSecrets{}, m.secretsErr
	}
	secrets, ok := m.secrets[id]
	if !ok {
		return model.CredentialSecrets{}, driven.ErrCredentialNotFound
	}
	return secrets, nil
}

func (m *memStore) List(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds := make([]model.Credential, 0, len(m.creds))
	for _, c := range m.creds {
		creds = append(creds, c)
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].ID < creds[j].ID })
	return creds, nil
}

func (m *memStore) Update(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.creds[cred.ID]; !ok {
		return driven.ErrCredentialNotFound
	}
	m.creds[cred.ID] = cred
	return nil
}

func (m *memStore) UpdateSecrets(_ context.Context, id string, secrets model.CredentialSecrets) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[id]; !ok {
		return driven.ErrCredentialNotFound
	}
	m.secrets[id] = secrets
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[id]; !ok {
		return driven.ErrCredentialNotFound
	}
	delete(m.creds, id)
	delete(m.secrets, id)
	return nil
}

// mockRefresher returns a fixed token set or error and records its input.
type mockRefresher struct {
	mu      sync.Mutex
	tokens  *model.TokenSet
	err     error
	block   chan struct{} // when non-nil, Refresh waits for it to close
	gotArgs []string
}

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string) (*model.TokenSet, error) {
	m.mu.Lock()
	m.gotArgs = append(m.gotArgs, refreshToken)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.tokens, nil
}

func (m *mockRefresher) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.gotArgs)
}

// --- Test helpers ---

var (
	testNow     = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	errUpstream = errors.New("upstream returned 400")
	longToken   = "rt-0123456789012345678901234567890123456789012345678901234567890"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *memStore, refresher driven.TokenRefresher) *CredentialService {
	svc := NewCredentialService(store, refresher, NewBusyTracker(), 5*time.Second, discardLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}
