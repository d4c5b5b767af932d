package card

import (
	"fmt"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// --- DeriveHealth ---

func TestDeriveHealth(t *testing.T) {
	statuses := []model.HealthStatus{
		model.HealthStatusUnknown,
		model.HealthStatusHealthy,
		model.HealthStatusUnhealthy,
		"degraded",
	}

	for _, status := range statuses {
		t.Run(fmt.Sprintf("disabled/%q", status), func(t *testing.T) {
			assert.False(t, DeriveHealth(true, status), "disabled credential must never be healthy")
		})
	}

	assert.True(t, DeriveHealth(false, model.HealthStatusUnknown))
	assert.True(t, DeriveHealth(false, model.HealthStatusHealthy))
	assert.True(t, DeriveHealth(false, "degraded"))
	assert.False(t, DeriveHealth(false, model.HealthStatusUnhealthy))
}

// --- Classify ---

func TestClassify_KnownTypes(t *testing.T) {
	tests := []struct {
		authType string
		label    string
		icon     Icon
		color    Color
	}{
		{"oauth", "OAuth", IconKey, ColorBlue},
		{"claude_code", "Claude Code", IconTerminal, ColorPurple},
		{"console", "Console", IconBuilding, ColorGreen},
		{"setup_token", "Setup Token", IconLock, ColorYellow},
		{"bedrock", "Bedrock", IconCloud, ColorOrange},
		{"ccr", "CCR", IconServer, ColorGray},
	}

	for _, tt := range tests {
		t.Run(tt.authType, func(t *testing.T) {
			meta := Classify(tt.authType)
			assert.True(t, meta.Known)
			assert.Equal(t, tt.label, meta.Label)
			assert.Equal(t, tt.icon, meta.Icon)
			assert.Equal(t, tt.color, meta.Color)
		})
	}
}

func TestClassify_EmptyIsOAuth(t *testing.T) {
	assert.Equal(t, Classify("oauth"), Classify(""))
}

func TestClassify_UnknownKeepsRawLabel(t *testing.T) {
	for _, raw := range []string{"unknown_type", "OAuth", " ", "日本語"} {
		meta := Classify(raw)
		assert.False(t, meta.Known, raw)
		assert.Equal(t, raw, meta.Label)
		assert.Equal(t, IconKey, meta.Icon)
		assert.Equal(t, ColorNeutral, meta.Color)
	}
}

// --- IsRefreshEligible ---

func TestIsRefreshEligible(t *testing.T) {
	eligible := map[string]bool{
		"oauth":        true,
		"claude_code":  true,
		"console":      true,
		"setup_token":  false,
		"bedrock":      false,
		"ccr":          false,
		"":             false,
		"unknown_type": false,
		"OAUTH":        false,
	}

	for authType, want := range eligible {
		assert.Equal(t, want, IsRefreshEligible(authType), "auth type %q", authType)
	}
}

// --- FormatDisplayDate ---

func TestFormatDisplayDateIn_ValidDates(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*60*60)

	tests := []struct {
		name string
		raw  string
		loc  *time.Location
		want string
	}{
		{"rfc3339 utc", "2026-01-15T10:30:00Z", time.UTC, "01/15 10:30"},
		{"rfc3339 converted", "2026-01-15T10:30:00Z", shanghai, "01/15 18:30"},
		{"rfc3339 offset", "2026-03-01T23:05:00+01:00", time.UTC, "03/01 22:05"},
		{"fractional seconds", "2026-12-31T08:09:10.123456789Z", time.UTC, "12/31 08:09"},
		{"zone-less is local", "2026-07-04T06:07:08", shanghai, "07/04 06:07"},
		{"space separated", "2026-07-04 06:07:08", time.UTC, "07/04 06:07"},
		{"date only", "2026-02-03", time.UTC, "02/03 00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDisplayDateIn(tt.raw, tt.loc)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, tt.raw, got)
		})
	}
}

func TestFormatDisplayDate_InvalidReturnsInput(t *testing.T) {
	for _, raw := range []string{"", "not-a-date", "2026-13-45T99:99:99Z", "tomorrow", "01/15 10:30"} {
		assert.NotPanics(t, func() {
			assert.Equal(t, raw, FormatDisplayDate(raw))
		})
	}
}

func TestFormatDisplayDateIn_NilLocationIsUTC(t *testing.T) {
	assert.Equal(t, "01/15 10:30", FormatDisplayDateIn("2026-01-15T10:30:00Z", nil))
}

// --- TruncateID ---

func TestTruncateID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"6f1c2d3e-4b5a-4c6d-8e7f-901234567890", "6f1c2d3e..."},
		{"abcdefghi", "abcdefgh..."},
		{"abcdefgh", "abcdefgh..."},
		{"abc", "abc..."},
		{"", "..."},
		{"ééééééééé", "éééééééé..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateID(tt.id), "id %q", tt.id)
	}
}

func TestTruncateID_IdempotentWhenEllipsisCounts(t *testing.T) {
	id := "6f1c2d3e-4b5a-4c6d-8e7f-901234567890"
	once := TruncateID(id)

	assert.Equal(t, shortIDLength+utf8.RuneCountInString(Ellipsis), utf8.RuneCountInString(once))
	assert.Equal(t, once, TruncateID(once))
}

func TestTruncateID_ShortIDsAreNotIdempotent(t *testing.T) {
	once := TruncateID("abc")
	twice := TruncateID(once)

	// "abc..." is only six characters, so the ellipsis is appended again.
	assert.Equal(t, "abc......", twice)
	assert.NotEqual(t, once, twice)
}

// --- Build ---

func testCredential() model.Credential {
	return model.Credential{
		ID:   "6f1c2d3e-4b5a-4c6d-8e7f-901234567890",
		Name: "work account",
		Data: model.CredentialData{AuthType: "oauth"},
	}
}

func actionKinds(v View) []ActionKind {
	kinds := make([]ActionKind, 0, len(v.Actions))
	for _, c := range v.Actions {
		kinds = append(kinds, c.Action)
	}
	return kinds
}

func TestBuild_ScenarioHealthyOAuth(t *testing.T) {
	c := testCredential()

	v := Build(c, Busy{})

	assert.Equal(t, "OAuth", v.Badge.Label)
	assert.True(t, v.Healthy)
	assert.Equal(t, IconCheckCircle, v.HealthIcon)
	assert.False(t, v.Muted)
	_, ok := v.Control(ActionRefreshToken)
	assert.True(t, ok, "refresh-token must be offered for oauth")
}

func TestBuild_ScenarioDisabledUnhealthyBedrock(t *testing.T) {
	c := testCredential()
	c.IsDisabled = true
	c.HealthStatus = model.HealthStatusUnhealthy
	c.Data.AuthType = "bedrock"

	v := Build(c, Busy{})

	assert.False(t, v.Healthy)
	assert.Equal(t, IconXCircle, v.HealthIcon)
	assert.Equal(t, ColorRed, v.HealthColor)
	assert.True(t, v.Muted)
	assert.False(t, v.Enabled)
	assert.Equal(t, "Bedrock", v.Badge.Label)
	_, ok := v.Control(ActionRefreshToken)
	assert.False(t, ok, "refresh-token must be absent for bedrock")
}

func TestBuild_ScenarioUnknownAuthType(t *testing.T) {
	c := testCredential()
	c.Data.AuthType = "unknown_type"

	v := Build(c, Busy{})

	assert.Equal(t, "unknown_type", v.Badge.Label)
	assert.Equal(t, IconKey, v.Badge.Icon)
	_, ok := v.Control(ActionRefreshToken)
	assert.False(t, ok)
}

func TestBuild_MissingAuthTypeDefaultsToOAuth(t *testing.T) {
	c := testCredential()
	c.Data.AuthType = ""

	v := Build(c, Busy{})

	assert.Equal(t, "OAuth", v.Badge.Label)
	_, ok := v.Control(ActionRefreshToken)
	assert.True(t, ok)
}

func TestBuild_NamePlaceholderAndShortID(t *testing.T) {
	c := testCredential()
	c.Name = ""

	v := Build(c, Busy{})

	assert.Equal(t, UnnamedPlaceholder, v.DisplayName)
	assert.False(t, v.Named)
	assert.Equal(t, "6f1c2d3e...", v.ShortID)
	assert.Equal(t, c.ID, v.ID)
}

func TestBuild_FactsInFixedOrderOnlyWhenPresent(t *testing.T) {
	c := testCredential()
	c.Data = model.CredentialData{
		AuthType:    "ccr",
		LastRefresh: "2026-01-02T03:04:05Z",
		BaseURL:     "https://relay.example.com",
		Email:       "dev@example.com",
		Expire:      "garbage",
	}

	v := BuildIn(c, Busy{}, time.UTC)

	require.Len(t, v.Facts, 4)
	assert.Equal(t, FactEmail, v.Facts[0].Key)
	assert.Equal(t, FactBaseURL, v.Facts[1].Key)
	assert.Equal(t, FactExpire, v.Facts[2].Key)
	assert.Equal(t, "garbage", v.Facts[2].Value, "malformed dates degrade to raw text")
	assert.Equal(t, FactLastRefresh, v.Facts[3].Key)
	assert.Equal(t, "01/02 03:04", v.Facts[3].Value)
}

func TestBuild_CountersAlwaysPresent(t *testing.T) {
	c := testCredential()

	v := Build(c, Busy{})
	assert.Equal(t, "0", v.UsageCount)
	assert.Equal(t, "0", v.ErrorCount)
	assert.Empty(t, v.LastError)

	c.UsageCount = 1234567
	c.ErrorCount = 12
	c.LastError = "token expired"
	v = Build(c, Busy{})
	assert.Equal(t, "1,234,567", v.UsageCount)
	assert.Equal(t, "12", v.ErrorCount)
	assert.Equal(t, "token expired", v.LastError)
}

func TestBuild_ActionOrder(t *testing.T) {
	c := testCredential()

	assert.Equal(t,
		[]ActionKind{ActionEdit, ActionReset, ActionCheckHealth, ActionRefreshToken, ActionDelete},
		actionKinds(Build(c, Busy{})),
	)

	c.Data.AuthType = "setup_token"
	assert.Equal(t,
		[]ActionKind{ActionEdit, ActionReset, ActionCheckHealth, ActionDelete},
		actionKinds(Build(c, Busy{})),
	)
}

func TestBuild_BusyFlagsDisableControls(t *testing.T) {
	c := testCredential()

	v := Build(c, Busy{CheckingHealth: true, RefreshingToken: true, Deleting: true})

	check, _ := v.Control(ActionCheckHealth)
	assert.True(t, check.Busy)
	assert.True(t, check.Disabled)

	refresh, _ := v.Control(ActionRefreshToken)
	assert.True(t, refresh.Busy)
	assert.True(t, refresh.Disabled)

	del, _ := v.Control(ActionDelete)
	assert.True(t, del.Disabled)
	assert.False(t, del.Busy)

	edit, _ := v.Control(ActionEdit)
	assert.False(t, edit.Disabled)
}

func TestBuild_IsDeterministic(t *testing.T) {
	c := testCredential()
	c.Data.Expire = "2026-05-06T07:08:09Z"
	busy := Busy{CheckingHealth: true}

	assert.Equal(t, BuildIn(c, busy, time.UTC), BuildIn(c, busy, time.UTC))
}
