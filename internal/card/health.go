// Package card derives the presentation of a single credential: its health
// signal, auth-type badge, formatted facts and the actions it may offer.
// Everything here is a pure function of a credential snapshot and the busy
// flags supplied by the host; nothing performs I/O or holds state.
package card

import "github.com/ericfisherdev/credpanel/internal/domain/model"

// DeriveHealth reports whether a credential should be shown as healthy.
// A disabled credential is never healthy, whatever its health status says.
// An absent status counts as not unhealthy.
func DeriveHealth(isDisabled bool, status model.HealthStatus) bool {
	return !isDisabled && status != model.HealthStatusUnhealthy
}
