package web

import (
	"context"
	"sort"
	"sync"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// memStore is an in-memory driven.CredentialStore.
type memStore struct {
	mu      sync.Mutex
	creds   map[string]model.Credential
	secrets map[string]model.CredentialSecrets
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

func (m *memStore) get(id string) (model.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	return c, ok
}

func (m *memStore) Create(_ context.Context, cred model.Credential, secrets model.CredentialSecrets) error {
	m.put(cred, secrets)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.Credential, error) {
	c, ok := m.get(id)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) GetSecrets(_ context.Context, id string) (model.CredentialSecrets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[id]
	if !ok {
		return model.CredentialSecrets{}, driven.ErrCredentialNotFound
	}
	return s, nil
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
