package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/credpanel/internal/adapter/driving/term"
	"github.com/ericfisherdev/credpanel/internal/application"
	"github.com/ericfisherdev/credpanel/internal/card"
	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

type sessionKey struct{}

func newRootCmd(open opener) *cobra.Command {
	var closeFn func()

	root := &cobra.Command{
		Use:   "credctl",
		Short: "Manage credpanel credentials from the terminal",
		Long: `credctl lists and operates on the credentials stored by credpanel.

It reads the same CREDPANEL_* environment variables as the server. Creating
credentials and reading secrets requires CREDPANEL_SECRET_KEY.

Credentials can be addressed by their full ID or any unique prefix, including
the shortened ID shown on a card.

credctl does not see the busy state of a running server: its cards never show
the server's spinners, and check or refresh may overlap an operation the
server is running on the same credential.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			closeFn = release
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, s))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if closeFn != nil {
				closeFn()
			}
		},
	}
	root.PersistentFlags().Int("width", 0, "terminal width used to size cards (0 for the widest card)")

	root.AddCommand(
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newEditCmd(),
		newSweepCmd(),
		newModelsCmd(),
	)
	for _, a := range []struct {
		kind  card.ActionKind
		short string
	}{
		{card.ActionToggle, "Enable or disable a credential"},
		{card.ActionReset, "Clear the health status and error counters"},
		{card.ActionCheckHealth, "Probe a credential and store its health"},
		{card.ActionRefreshToken, "Exchange the refresh token for a new access token"},
		{card.ActionDelete, "Delete a credential"},
	} {
		root.AddCommand(newActionCmd(a.kind, a.short))
	}

	return root
}

func sessionFrom(cmd *cobra.Command) *session {
	return cmd.Context().Value(sessionKey{}).(*session)
}

func widthFlag(cmd *cobra.Command) int {
	w, _ := cmd.Flags().GetInt("width")
	return w
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all credentials as cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			jsonOutput, _ := cmd.Flags().GetBool("json")

			creds, err := s.svc.List(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]card.View, 0, len(creds))
			for _, c := range creds {
				views = append(views, card.BuildIn(c, s.svc.Busy().Get(c.ID), s.loc))
			}

			if jsonOutput {
				return printViewsJSON(cmd.OutOrStdout(), views)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), term.RenderList(views, widthFlag(cmd)))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print a JSON summary instead of cards")
	return cmd
}

// listEntry is the JSON summary of one card.
type listEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AuthType   string `json:"auth_type"`
	Enabled    bool   `json:"enabled"`
	Healthy    bool   `json:"healthy"`
	UsageCount string `json:"usage_count"`
	ErrorCount string `json:"error_count"`
	LastError  string `json:"last_error,omitempty"`
}

func printViewsJSON(w io.Writer, views []card.View) error {
	entries := make([]listEntry, 0, len(views))
	for _, v := range views {
		name := ""
		if v.Named {
			name = v.DisplayName
		}
		entries = append(entries, listEntry{
			ID:         v.ID,
			Name:       name,
			AuthType:   v.Badge.Label,
			Enabled:    v.Enabled,
			Healthy:    v.Healthy,
			UsageCount: v.UsageCount,
			ErrorCount: v.ErrorCount,
			LastError:  v.LastError,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one credential card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			cred, err := resolveCredential(cmd.Context(), s.svc, args[0])
			if err != nil {
				return err
			}
			printCard(cmd, s, *cred)
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a new credential",
		Long: `Store a new credential of the given auth type.

Auth types: oauth, claude_code, console, setup_token, bedrock, ccr.

Examples:
  credctl add --type setup_token --name CI --access-token sk-ant-oat01-...
  credctl add --type bedrock --access-key-id AKIA... --secret-access-key ... --region eu-west-1
  credctl add --type ccr --base-url https://relay.example.com --api-key ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			f := cmd.Flags()
			str := func(name string) string {
				v, _ := f.GetString(name)
				return strings.TrimSpace(v)
			}

			cred, err := s.svc.Create(cmd.Context(), str("type"), application.CreateInput{
				Name: str("name"),
				Data: model.CredentialData{
					Email:            str("email"),
					Region:           str("region"),
					BaseURL:          str("base-url"),
					OrganizationName: str("org"),
					Expire:           str("expire"),
				},
				Secrets: model.CredentialSecrets{
					AccessToken:     str("access-token"),
					RefreshToken:    str("refresh-token"),
					AccessKeyID:     str("access-key-id"),
					SecretAccessKey: str("secret-access-key"),
					SessionToken:    str("session-token"),
					APIKey:          str("api-key"),
				},
			})
			if err != nil {
				return err
			}
			printCard(cmd, s, *cred)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("type", "", "auth type of the credential (required)")
	f.String("name", "", "display name")
	f.String("email", "", "account email")
	f.String("region", "", "AWS region (bedrock)")
	f.String("base-url", "", "relay base URL (ccr)")
	f.String("org", "", "organization name (console)")
	f.String("expire", "", "access token expiry, RFC3339")
	f.String("access-token", "", "OAuth access token or setup token")
	f.String("refresh-token", "", "OAuth refresh token")
	f.String("access-key-id", "", "AWS access key id (bedrock)")
	f.String("secret-access-key", "", "AWS secret access key (bedrock)")
	f.String("session-token", "", "AWS session token (bedrock)")
	f.String("api-key", "", "relay API key (ccr)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the name or metadata of a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			cred, err := resolveCredential(cmd.Context(), s.svc, args[0])
			if err != nil {
				return err
			}

			in := application.EditInput{
				Name:    cred.Name,
				Email:   cred.Data.Email,
				Region:  cred.Data.Region,
				BaseURL: cred.Data.BaseURL,
			}
			f := cmd.Flags()
			if f.Changed("name") {
				in.Name, _ = f.GetString("name")
			}
			if f.Changed("email") {
				in.Email, _ = f.GetString("email")
			}
			if f.Changed("region") {
				in.Region, _ = f.GetString("region")
			}
			if f.Changed("base-url") {
				in.BaseURL, _ = f.GetString("base-url")
			}

			updated, err := s.svc.Edit(cmd.Context(), cred.ID, in)
			if err != nil {
				return err
			}
			printCard(cmd, s, *updated)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("name", "", "display name (empty clears it)")
	f.String("email", "", "account email")
	f.String("region", "", "AWS region (bedrock)")
	f.String("base-url", "", "relay base URL (ccr)")

	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the Claude models and their Bedrock ids",
		Args:  cobra.NoArgs,
		// The model catalog is static; no database is needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			_, _ = fmt.Fprintln(w, "ID\tNAME\tFAMILY\tCONTEXT\tBEDROCK ID")
			_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t----------")
			for _, m := range model.Models {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					m.ID, m.DisplayName, m.Family, humanize.Comma(int64(m.ContextLength)), model.BedrockModelID(m.ID))
			}
			return w.Flush()
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Refresh every OAuth token that expires within ten minutes",
		Long: `Run one pass of the server's automatic token refresh: every enabled
OAuth, Claude Code or Console credential whose access token expires within
ten minutes and that holds a refresh token is refreshed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			keeper := application.NewTokenKeeper(s.svc, 0, slog.Default())

			res, err := keeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d due, %d refreshed, %d failed\n", res.Due, res.Refreshed, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d token refreshes failed", res.Failed)
			}
			return nil
		},
	}
}

// newActionCmd builds the command for one card control. The control is
// activated through the card, so actions the card does not offer fail.
func newActionCmd(kind card.ActionKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := sessionFrom(cmd)
			cred, err := resolveCredential(cmd.Context(), s.svc, args[0])
			if err != nil {
				return err
			}

			view := card.BuildIn(*cred, s.svc.Busy().Get(cred.ID), s.loc)
			if _, offered := view.Control(kind); !offered {
				return fmt.Errorf("%s is not available for %s credentials", kind, view.Badge.Label)
			}

			acts := &cliActions{ctx: cmd.Context(), svc: s.svc, id: cred.ID}
			if !card.Activate(view, kind, acts) {
				return fmt.Errorf("%s is already running for %s", kind, view.ShortID)
			}
			if acts.err != nil {
				return acts.err
			}

			if acts.deleted {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", view.ShortID)
				return nil
			}
			printCard(cmd, s, *acts.result)
			return nil
		},
	}
}

// cliActions runs every card action synchronously.
type cliActions struct {
	ctx context.Context
	svc *application.CredentialService
	id  string

	result  *model.Credential
	deleted bool
	err     error
}

var _ card.Actions = (*cliActions)(nil)

func (a *cliActions) Toggle() { a.result, a.err = a.svc.Toggle(a.ctx, a.id) }

func (a *cliActions) Reset() { a.result, a.err = a.svc.Reset(a.ctx, a.id) }

func (a *cliActions) CheckHealth() { a.result, a.err = a.svc.CheckHealth(a.ctx, a.id) }

func (a *cliActions) RefreshToken() { a.result, a.err = a.svc.RefreshToken(a.ctx, a.id) }

func (a *cliActions) Delete() {
	a.err = a.svc.Delete(a.ctx, a.id)
	a.deleted = a.err == nil
}

func (a *cliActions) Edit() {
	a.err = errors.New("use credctl edit to change a credential")
}

// resolveCredential finds a credential by full ID or unique prefix. A trailing
// ellipsis, as printed on shortened IDs, is ignored.
func resolveCredential(ctx context.Context, svc *application.CredentialService, ref string) (*model.Credential, error) {
	prefix := strings.TrimSuffix(strings.TrimSpace(ref), card.Ellipsis)
	if prefix == "" {
		return nil, errors.New("credential id is empty")
	}

	creds, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}

	var matches []model.Credential
	for _, c := range creds {
		if c.ID == prefix {
			return &c, nil
		}
		if strings.HasPrefix(c.ID, prefix) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no credential matches %q", ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d credentials, use a longer prefix", ref, len(matches))
	}
}

func printCard(cmd *cobra.Command, s *session, c model.Credential) {
	v := card.BuildIn(c, s.svc.Busy().Get(c.ID), s.loc)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), term.RenderCard(v, widthFlag(cmd)))
}
