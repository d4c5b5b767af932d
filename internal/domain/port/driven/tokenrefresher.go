package driven

import (
	"context"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

// TokenRefresher exchanges an OAuth refresh token for a fresh token set.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*model.TokenSet, error)
}
