package application

import "context"

// StartHealthCheck runs CheckHealth in the background while holding the
// credential's CheckingHealth flag. It returns false without starting anything
// when a check is already in flight. The operation outlives ctx's
// cancellation but is bounded by the service's operation timeout.
func (s *CredentialService) StartHealthCheck(ctx context.Context, id string) bool {
	return s.startTracked(ctx, id, BusyCheckingHealth, func(opCtx context.Context) error {
		_, err := s.CheckHealth(opCtx, id)
		return err
	})
}

// StartTokenRefresh runs RefreshToken in the background while holding the
// credential's RefreshingToken flag. It returns false when a refresh is
// already in flight.
func (s *CredentialService) StartTokenRefresh(ctx context.Context, id string) bool {
	return s.startTracked(ctx, id, BusyRefreshingToken, func(opCtx context.Context) error {
		_, err := s.RefreshToken(opCtx, id)
		return err
	})
}

// DeleteTracked deletes a credential while holding its Deleting flag. It
// returns false when a delete of the same credential is already running.
func (s *CredentialService) DeleteTracked(ctx context.Context, id string) (bool, error) {
	if !s.busy.Begin(id, BusyDeleting) {
		return false, nil
	}
	defer s.busy.End(id, BusyDeleting)

	return true, s.Delete(ctx, id)
}

// RefreshTokenTracked runs RefreshToken synchronously while holding the
// credential's RefreshingToken flag, bounded by the operation timeout. It
// returns false when a refresh is already in flight.
func (s *CredentialService) RefreshTokenTracked(ctx context.Context, id string) (bool, error) {
	if !s.busy.Begin(id, BusyRefreshingToken) {
		return false, nil
	}
	defer s.busy.End(id, BusyRefreshingToken)

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.RefreshToken(opCtx, id)
	return true, err
}

// Wait blocks until every background operation has finished.
func (s *CredentialService) Wait() {
	s.wg.Wait()
}

func (s *CredentialService) startTracked(ctx context.Context, id string, op BusyOp, run func(context.Context) error) bool {
	if !s.busy.Begin(id, op) {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.End(id, op)

		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
		defer cancel()

		if err := run(opCtx); err != nil {
			s.logger.Error("background credential operation failed",
				"credential_id", id,
				"op", op.String(),
				"error", err,
			)
		}
	}()
	return true
}

// String returns the log name of the operation.
func (op BusyOp) String() string {
	switch op {
	case BusyDeleting:
		return "delete"
	case BusyCheckingHealth:
		return "check_health"
	case BusyRefreshingToken:
		return "refresh_token"
	default:
		return "unknown"
	}
}
