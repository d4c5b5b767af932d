package application

import (
	"time"

	"github.com/ericfisherdev/credpanel/internal/domain/model"
)

const (
	// expiredSkew treats tokens expiring within this window as already expired.
	expiredSkew = 5 * time.Minute
	// expiringSoonWindow is the lookahead used to warn about upcoming expiry.
	expiringSoonWindow = 10 * time.Minute
)

// IsTokenExpired reports whether an expiry is at or before now plus
// a five minute skew. An absent or unparseable expiry counts as expired,
// since nothing proves the token is still valid. Zone-less expiries are read
// as UTC.
func IsTokenExpired(expire string, now time.Time) bool {
	expiresAt, ok := model.ParseTimestamp(expire, time.UTC)
	if !ok {
		return true
	}
	return !expiresAt.After(now.Add(expiredSkew))
}

// IsTokenExpiringSoon reports whether an expiry falls within the next
// ten minutes. An absent or unparseable expiry is not expiring soon.
func IsTokenExpiringSoon(expire string, now time.Time) bool {
	expiresAt, ok := model.ParseTimestamp(expire, time.UTC)
	if !ok {
		return false
	}
	return expiresAt.Before(now.Add(expiringSoonWindow))
}
