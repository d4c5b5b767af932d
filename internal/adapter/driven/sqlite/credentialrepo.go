package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
	"github.com/ericfisherdev/credpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Non-secret fields are stored in plain columns so credentials can be listed
// without a key; secrets are serialized to JSON and encrypted with AES-256-GCM.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable secret storage (secret operations return ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

const credentialColumns = `id, name, auth_type, is_disabled, health_status, usage_count, error_count,
	last_error, email, region, base_url, expire, last_refresh, organization_name, created_at, updated_at`

// Create inserts a new credential with encrypted secrets.
func (r *CredentialRepo) Create(ctx context.Context, cred model.Credential, secrets model.CredentialSecrets) error {
	encrypted, err := r.encryptSecrets(secrets)
	if err != nil {
		return err
	}

	const query = `INSERT INTO credentials (` + credentialColumns + `, secrets)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Writer.ExecContext(ctx, query,
		cred.ID,
		cred.Name,
		cred.Data.AuthType,
		cred.IsDisabled,
		string(cred.HealthStatus),
		cred.UsageCount,
		cred.ErrorCount,
		cred.LastError,
		cred.Data.Email,
		cred.Data.Region,
		cred.Data.BaseURL,
		cred.Data.Expire,
		cred.Data.LastRefresh,
		cred.Data.OrganizationName,
		formatTime(cred.CreatedAt),
		formatTime(cred.UpdatedAt),
		encrypted,
	)
	if err != nil {
		return fmt.Errorf("insert credential %q: %w", cred.ID, err)
	}
	return nil
}

// Get returns the credential with the given ID, or (nil, nil) if it does not exist.
func (r *CredentialRepo) Get(ctx context.Context, id string) (*model.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %q: %w", id, err)
	}
	return cred, nil
}

// GetSecrets returns the decrypted secrets of a credential.
func (r *CredentialRepo) GetSecrets(ctx context.Context, id string) (model.CredentialSecrets, error) {
	if r.key == nil {
		return model.CredentialSecrets{}, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT secrets FROM credentials WHERE id = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CredentialSecrets{}, driven.ErrCredentialNotFound
	}
	if err != nil {
		return model.CredentialSecrets{}, fmt.Errorf("get secrets %q: %w", id, err)
	}

	secrets, err := r.decryptSecrets(encrypted)
	if err != nil {
		return model.CredentialSecrets{}, fmt.Errorf("decrypt secrets %q: %w", id, err)
	}
	return secrets, nil
}

// List returns all credentials ordered by creation time.
func (r *CredentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials ORDER BY created_at, id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	creds := []model.Credential{}
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Update replaces the non-secret fields of an existing credential.
func (r *CredentialRepo) Update(ctx context.Context, cred model.Credential) error {
	const query = `UPDATE credentials SET
		name = ?, auth_type = ?, is_disabled = ?, health_status = ?, usage_count = ?,
		error_count = ?, last_error = ?, email = ?, region = ?, base_url = ?, expire = ?,
		last_refresh = ?, organization_name = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query,
		cred.Name,
		cred.Data.AuthType,
		cred.IsDisabled,
		string(cred.HealthStatus),
		cred.UsageCount,
		cred.ErrorCount,
		cred.LastError,
		cred.Data.Email,
		cred.Data.Region,
		cred.Data.BaseURL,
		cred.Data.Expire,
		cred.Data.LastRefresh,
		cred.Data.OrganizationName,
		formatTime(cred.UpdatedAt),
		cred.ID,
	)
	if err != nil {
		return fmt.Errorf("update credential %q: %w", cred.ID, err)
	}
	return requireOneRow(res, cred.ID)
}

// UpdateSecrets replaces the encrypted secrets of an existing credential.
func (r *CredentialRepo) UpdateSecrets(ctx context.Context, id string, secrets model.CredentialSecrets) error {
	encrypted, err := r.encryptSecrets(secrets)
	if err != nil {
		return err
	}

	const query = `UPDATE credentials SET secrets = ? WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, encrypted, id)
	if err != nil {
		return fmt.Errorf("update secrets %q: %w", id, err)
	}
	return requireOneRow(res, id)
}

// Delete removes a credential.
func (r *CredentialRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM credentials WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete credential %q: %w", id, err)
	}
	return requireOneRow(res, id)
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %q: %w", id, err)
	}
	if n == 0 {
		return driven.ErrCredentialNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*model.Credential, error) {
	var (
		cred                 model.Credential
		healthStatus         string
		createdAt, updatedAt string
	)

	err := row.Scan(
		&cred.ID,
		&cred.Name,
		&cred.Data.AuthType,
		&cred.IsDisabled,
		&healthStatus,
		&cred.UsageCount,
		&cred.ErrorCount,
		&cred.LastError,
		&cred.Data.Email,
		&cred.Data.Region,
		&cred.Data.BaseURL,
		&cred.Data.Expire,
		&cred.Data.LastRefresh,
		&cred.Data.OrganizationName,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	cred.HealthStatus = model.HealthStatus(healthStatus)

	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for credential %q: %w", cred.ID, err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for credential %q: %w", cred.ID, err)
	}

	return &cred, nil
}

func (r *CredentialRepo) encryptSecrets(secrets model.CredentialSecrets) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return "", fmt.Errorf("marshal secrets: %w", err)
	}
	return r.encrypt(plaintext)
}

func (r *CredentialRepo) decryptSecrets(encoded string) (model.CredentialSecrets, error) {
	var secrets model.CredentialSecrets
	if encoded == "" {
		return secrets, nil
	}

	plaintext, err := r.decrypt(encoded)
	if err != nil {
		return secrets, err
	}
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return secrets, fmt.Errorf("unmarshal secrets: %w", err)
	}
	return secrets, nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext []byte) (string, error) {
	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}

func (r *CredentialRepo) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses the timestamp formats SQLite and credpanel write.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
}
