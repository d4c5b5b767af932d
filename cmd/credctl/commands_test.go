package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteadapter "github.com/ericfisherdev/credpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/credpanel/internal/application"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

// testOpener opens a fresh file-backed database shared by every command run
// in the test.
func testOpener(t *testing.T) opener {
	t.Helper()

	db, err := sqliteadapter.NewDB(context.Background(), filepath.Join(t.TempDir(), "credctl.db"))
	require.NoError(t, err)
	require.NoError(t, sqliteadapter.RunMigrations(db.Writer))
	t.Cleanup(func() { _ = db.Close() })

	svc := application.NewCredentialService(
		sqliteadapter.NewCredentialRepo(db, testKey),
		nil,
		application.NewBusyTracker(),
		5*time.Second,
		slog.Default(),
	)
	s := &session{svc: svc, loc: time.UTC}

	return func(context.Context) (*session, func(), error) {
		return s, func() {}, nil
	}
}

func runCmd(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func addSetupToken(t *testing.T, open opener, name string) string {
	t.Helper()
	_, err := runCmd(t, open, "add", "--type", "setup_token", "--name", name, "--access-token", "sk-ant-oat01-test")
	require.NoError(t, err)

	out, err := runCmd(t, open, "list", "--json")
	require.NoError(t, err)
	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	for _, e := range entries {
		if e.Name == name {
			return e.ID
		}
	}
	t.Fatalf("credential %q not listed", name)
	return ""
}

func TestList_Empty(t *testing.T) {
	out, err := runCmd(t, testOpener(t), "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No credentials yet.")
}

func TestAdd_RendersCard(t *testing.T) {
	out, err := runCmd(t, testOpener(t),
		"add", "--type", "bedrock", "--name", "AWS prod",
		"--access-key-id", "AKIA123", "--secret-access-key", "shh",
	)

	require.NoError(t, err)
	assert.Contains(t, out, "AWS prod")
	assert.Contains(t, out, "Bedrock")
	assert.Contains(t, out, "us-east-1")
	assert.NotContains(t, out, "shh")
}

func TestAdd_Invalid(t *testing.T) {
	_, err := runCmd(t, testOpener(t), "add", "--type", "setup_token")
	require.Error(t, err)
	assert.ErrorIs(t, err, application.ErrInvalidCredential)

	_, err = runCmd(t, testOpener(t), "add", "--type", "gemini", "--access-token", "x")
	assert.ErrorIs(t, err, application.ErrUnknownAuthType)
}

func TestListJSON(t *testing.T) {
	open := testOpener(t)
	id := addSetupToken(t, open, "CI token")

	out, err := runCmd(t, open, "list", "--json")
	require.NoError(t, err)

	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "Setup Token", entries[0].AuthType)
	assert.True(t, entries[0].Enabled)
	assert.True(t, entries[0].Healthy)
}

func TestToggle_ByPrefix(t *testing.T) {
	open := testOpener(t)
	id := addSetupToken(t, open, "CI token")

	out, err := runCmd(t, open, "toggle", id[:8]+"...")
	require.NoError(t, err)
	assert.Contains(t, out, "[off]")

	out, err = runCmd(t, open, "toggle", id)
	require.NoError(t, err)
	assert.Contains(t, out, "[on]")
}

func TestCheck_StoresHealth(t *testing.T) {
	open := testOpener(t)
	id := addSetupToken(t, open, "CI token")

	out, err := runCmd(t, open, "check", id)
	require.NoError(t, err)
	assert.Contains(t, out, "CI token")

	out, err = runCmd(t, open, "list", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"healthy": true`)
}

func TestRefresh_NotOfferedForSetupToken(t *testing.T) {
	open := testOpener(t)
	id := addSetupToken(t, open, "CI token")

	_, err := runCmd(t, open, "refresh", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh is not available for Setup Token credentials")
}

func TestEdit_ChangesOnlyGivenFlags(t *testing.T) {
	open := testOpener(t)
	id := addSetupToken(t, open, "CI token")

	out, err := runCmd(t, open, "edit", id, "--email", "ci@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "CI token")
	assert.Contains(t, out, "ci@example.com")
}

func TestDelete(t *testing.T) {
	open := testOpener(t)
	id := addSetupToken(t, open, "CI token")

	out, err := runCmd(t, open, "delete", id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Deleted "))

	_, err = runCmd(t, open, "show", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credential matches")
}

func TestShow_EmptyID(t *testing.T) {
	open := testOpener(t)
	addSetupToken(t, open, "one")

	_, err := runCmd(t, open, "show", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential id is empty")
}

func TestSweep_NothingDue(t *testing.T) {
	open := testOpener(t)
	addSetupToken(t, open, "CI token")

	out, err := runCmd(t, open, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "0 due, 0 refreshed, 0 failed")
}

func TestModels_NeedsNoDatabase(t *testing.T) {
	failing := func(context.Context) (*session, func(), error) {
		t.Fatal("models must not open the database")
		return nil, nil, nil
	}

	out, err := runCmd(t, failing, "models")

	require.NoError(t, err)
	assert.Contains(t, out, "claude-sonnet-4-5-20250929")
	assert.Contains(t, out, "200,000")
	assert.Contains(t, out, "us.anthropic.claude-3-5-sonnet-20241022-v2:0")
}

func TestRootHelp_MentionsServerBusyState(t *testing.T) {
	assert.Contains(t, newRootCmd(testOpener(t)).Long, "does not see the busy state of a running server")
}
