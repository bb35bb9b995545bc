package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RefreshIfDue refreshes the tokens when the access token expires within
// window. It reports whether a refresh happened.
func (s *Store) RefreshIfDue(ctx context.Context, window time.Duration) (bool, error) {
	snapshot := s.Snapshot()
	if !snapshot.IsAuthenticated || snapshot.Tokens.RefreshToken == "" || s.refresher == nil {
		return false, nil
	}
	claims := snapshot.Claims()
	if claims == nil || claims.ExpiresAt == nil {
		return false, nil
	}
	if claims.ExpiresAt.Sub(s.nowTime()) > window {
		return false, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// KeepFresh checks the token every interval and refreshes it ahead of expiry.
// It returns when ctx is done.
func (s *Store) KeepFresh(ctx context.Context, interval, window time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refreshed, err := s.RefreshIfDue(ctx, window)
			if err != nil {
				log.Err(err).Msg("background token refresh")
				continue
			}
			if refreshed {
				log.Info().Msg("tokens refreshed ahead of expiry")
			}
		}
	}
}
