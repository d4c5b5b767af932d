package card

import "github.com/ericfisherdev/credpanel/internal/domain/model"

// IsRefreshEligible reports whether the refresh-token action is offered for the
// given raw auth type key. The empty string and unknown keys are not eligible.
func IsRefreshEligible(authType string) bool {
	return model.AuthType(authType).SupportsTokenRefresh()
}
