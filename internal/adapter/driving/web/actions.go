package web

import (
	"context"

	"github.com/ericfisherdev/credpanel/internal/application"
	"github.com/ericfisherdev/credpanel/internal/card"
)

var _ card.Actions = (*boundActions)(nil)

// boundActions binds the card callbacks to one credential for the duration of
// a request. Toggle, Reset and Delete run synchronously; health checks and
// token refreshes are started in the background and surface through the
// card's busy flags.
type boundActions struct {
	ctx context.Context
	svc *application.CredentialService
	id  string

	err     error
	deleted bool
	editing bool
}

func (a *boundActions) Toggle() {
	_, a.err = a.svc.Toggle(a.ctx, a.id)
}

func (a *boundActions) Delete() {
	a.deleted, a.err = a.svc.DeleteTracked(a.ctx, a.id)
}

func (a *boundActions) Reset() {
	_, a.err = a.svc.Reset(a.ctx, a.id)
}

func (a *boundActions) CheckHealth() {
	a.svc.StartHealthCheck(a.ctx, a.id)
}

func (a *boundActions) RefreshToken() {
	a.svc.StartTokenRefresh(a.ctx, a.id)
}

// Edit only switches the response to the edit form; the change itself is
// submitted separately.
func (a *boundActions) Edit() {
	a.editing = true
}
