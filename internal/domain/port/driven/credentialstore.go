package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// Sentinel errors returned by CredentialStore implementations.
var (
	// ErrEncryptionKeyNotSet is returned by operations touching secrets when
	// CREDPANEL_SECRET_KEY has not been configured.
	ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set CREDPANEL_SECRET_KEY")

	// ErrCredentialNotFound indicates the requested credential does not exist.
	ErrCredentialNotFound = errors.New("credential not found")
)

// CredentialStore defines the driven port for credential persistence.
// The adapter layer is responsible for encrypting secrets; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Create stores a new credential with its secrets.
	// Returns ErrEncryptionKeyNotSet if the adapter has no encryption key.
	Create(ctx context.Context, cred model.Credential, secrets model.CredentialSecrets) error

	// Get returns the credential with the given ID, or (nil, nil) if it does not exist.
	Get(ctx context.Context, id string) (*model.Credential, error)

	// GetSecrets returns the decrypted secrets of a credential.
	// Returns ErrCredentialNotFound if the credential does not exist.
	GetSecrets(ctx context.Context, id string) (model.CredentialSecrets, error)

	// List returns all credentials ordered by creation time.
	List(ctx context.Context) ([]model.Credential, error)

	// Update replaces the non-secret fields of an existing credential.
	// Returns ErrCredentialNotFound if the credential does not exist.
	Update(ctx context.Context, cred model.Credential) error

	// UpdateSecrets replaces the secrets of an existing credential.
	UpdateSecrets(ctx context.Context, id string, secrets model.CredentialSecrets) error

	// Delete removes a credential. Returns ErrCredentialNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
