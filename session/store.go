package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/broadcast"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/tenants"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Store owns the session of one tab. It is created at startup and handed to
// every handler that needs it; all mutations go through its methods.
//
// Two counters guard asynchronous completions: switchGen identifies the latest
// SwitchTenant call and epoch changes on every login, logout or expiry. A
// network result is applied only if both still match the values seen when the
// request started.
//
// The repo is written after mu is released. version orders those writes so an
// older state never overwrites a newer one.
type Store struct {
	mu        sync.RWMutex
	session   Session
	expired   bool
	switchGen uint64
	epoch     uint64
	version   uint64

	writeMu sync.Mutex
	written uint64

	repo      Repo
	key       string
	publisher Publisher
	switcher  TenantSwitcher
	refresher TokenRefresher
	listeners []func(Event)
	nowTime   func() time.Time

	refreshGroup singleflight.Group // one backend refresh per refresh token
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithRepo persists the session through repo.
func WithRepo(repo Repo) StoreOption {
	return func(s *Store) {
		s.repo = repo
	}
}

// WithStorageKey overrides StorageKey.
func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		s.key = key
	}
}

// WithPublisher sends local changes to the other tabs.
func WithPublisher(p Publisher) StoreOption {
	return func(s *Store) {
		s.publisher = p
	}
}

// WithTenantSwitcher sets the backend used by SwitchTenant.
func WithTenantSwitcher(sw TenantSwitcher) StoreOption {
	return func(s *Store) {
		s.switcher = sw
	}
}

// WithTokenRefresher sets the backend used by Refresh.
func WithTokenRefresher(r TokenRefresher) StoreOption {
	return func(s *Store) {
		s.refresher = r
	}
}

// WithListener registers fn to be called after every applied change.
func WithListener(fn func(Event)) StoreOption {
	return func(s *Store) {
		s.listeners = append(s.listeners, fn)
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		key:       StorageKey,
		publisher: noopPublisher{},
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted session. A missing session is not an error.
func (s *Store) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	stored, err := s.repo.Load(ctx, s.key)
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "restore session")
	}

	s.mu.Lock()
	s.session = stored.Clone()
	s.epoch++
	s.mu.Unlock()

	log.Info().Str("user", stored.User.ID).Bool("authenticated", stored.IsAuthenticated).Msg("session restored")
	return nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// Valid reports whether the current session grants access.
func (s *Store) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Valid(s.nowTime())
}

// Now returns the store's clock.
func (s *Store) Now() time.Time {
	return s.nowTime()
}

// ConsumeExpiredNotice reports whether the session ended by expiry since the
// last call, and resets the flag.
func (s *Store) ConsumeExpiredNotice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := s.expired
	s.expired = false
	return expired
}

// Login replaces the session with an authenticated one.
func (s *Store) Login(ctx context.Context, user users.User, tenant tenants.Tenant, tokens token.Pair) error {
	if tokens.IsZero() {
		return fmt.Errorf("%w: login without access token", errors.ErrInvalidRequest)
	}

	s.mu.Lock()
	tenantList := s.session.Tenants
	if _, ok := tenants.Find(tenantList, tenant.ID); !ok {
		tenantList = append(tenantList, tenant)
	}
	s.session = Session{
		User:            user.Clone(),
		CurrentTenant:   &tenant,
		Tokens:          tokens,
		Tenants:         tenantList,
		IsAuthenticated: true,
	}
	s.expired = false
	s.epoch++
	w := s.captureLocked()
	s.mu.Unlock()
	s.save(ctx, w)

	log.Info().Str("user", user.ID).Str("tenant", tenant.ID).Msg("session login")
	s.notify(Event{Kind: EventLogin})
	return nil
}

// Logout clears the session locally and tells the other tabs. The local
// session is cleared even when the returned error is non-nil.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	userID := s.session.User.ID
	w := s.clearLocked()
	s.mu.Unlock()
	deleteErr := s.write(ctx, w)

	log.Info().Str("user", userID).Msg("session logout")
	s.notify(Event{Kind: EventLogout})

	var publishErr error
	if err := s.publisher.PublishLogout(ctx); err != nil {
		log.Warn().Err(err).Msg("broadcast logout")
		publishErr = errors.Wrapf(err, "broadcast logout")
	}
	return errors.Join(deleteErr, publishErr)
}

// Expire ends a session whose token is no longer valid and tells the other tabs
// to send their user to the login view.
func (s *Store) Expire(ctx context.Context) error {
	s.mu.Lock()
	w := s.clearLocked()
	s.expired = true
	s.mu.Unlock()
	deleteErr := s.write(ctx, w)

	log.Info().Msg("session expired")
	s.notify(Event{Kind: EventExpired})

	var publishErr error
	if err := s.publisher.PublishSessionExpired(ctx); err != nil {
		log.Warn().Err(err).Msg("broadcast session expired")
		publishErr = errors.Wrapf(err, "broadcast session expired")
	}
	return errors.Join(deleteErr, publishErr)
}

// SwitchTenant asks the backend for tokens scoped to tenantID and, on success,
// replaces tokens and current tenant together. On failure nothing changes and
// the error is returned. A result that arrives after a newer switch, a logout or
// a new login is discarded with errors.ErrSuperseded.
func (s *Store) SwitchTenant(ctx context.Context, tenantID string) error {
	if s.switcher == nil {
		return fmt.Errorf("%w: no tenant switcher configured", errors.ErrUnsupported)
	}

	s.mu.Lock()
	if !s.session.IsAuthenticated {
		s.mu.Unlock()
		return errors.ErrNotAuthenticated
	}
	tenant, ok := tenants.Find(s.session.Tenants, tenantID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("tenant %s: %w", tenantID, errors.ErrNotFound)
	}
	s.switchGen++
	gen, epoch := s.switchGen, s.epoch
	accessToken := s.session.Tokens.AccessToken
	s.mu.Unlock()

	tokens, err := s.switcher.SwitchTenant(ctx, accessToken, tenantID)
	if err != nil {
		log.Err(err).Str("tenant", tenantID).Msg("tenant switch failed")
		return errors.Wrapf(err, "switch to tenant %s", tenantID)
	}
	if tokens.IsZero() {
		return fmt.Errorf("switch to tenant %s: %w: empty token pair", tenantID, errors.ErrBackendRejected)
	}

	s.mu.Lock()
	if gen != s.switchGen || epoch != s.epoch {
		s.mu.Unlock()
		log.Info().Str("tenant", tenantID).Uint64("generation", gen).Msg("discarding stale tenant switch")
		return errors.ErrSuperseded
	}
	s.session.Tokens = tokens
	s.session.CurrentTenant = &tenant
	w := s.captureLocked()
	s.mu.Unlock()
	s.save(ctx, w)

	log.Info().Str("tenant", tenantID).Msg("tenant switched")
	s.notify(Event{Kind: EventTenantSwitched})
	return nil
}

// UpdateUser merges a partial update into the current user.
func (s *Store) UpdateUser(ctx context.Context, upd users.Update) error {
	s.mu.Lock()
	if !s.session.IsAuthenticated {
		s.mu.Unlock()
		return errors.ErrNotAuthenticated
	}
	s.session.User.Apply(upd)
	w := s.captureLocked()
	s.mu.Unlock()
	s.save(ctx, w)

	s.notify(Event{Kind: EventUserUpdated})
	return nil
}

// SetTenants replaces the list of tenants the user may switch to.
func (s *Store) SetTenants(ctx context.Context, list []tenants.Tenant) {
	s.mu.Lock()
	s.session.Tenants = append([]tenants.Tenant(nil), list...)
	w := s.captureLocked()
	s.mu.Unlock()
	s.save(ctx, w)
}

// SetLicenses replaces the licenses held by the current tenant.
func (s *Store) SetLicenses(ctx context.Context, list []tenants.License) {
	s.mu.Lock()
	s.session.Licenses = append([]tenants.License(nil), list...)
	w := s.captureLocked()
	s.mu.Unlock()
	s.save(ctx, w)
}

// UpdateTokens adopts a refreshed token pair for the current tenant and shares
// it with the other tabs.
func (s *Store) UpdateTokens(ctx context.Context, tokens token.Pair) error {
	if tokens.IsZero() {
		return fmt.Errorf("%w: empty token pair", errors.ErrInvalidRequest)
	}
	s.mu.Lock()
	if !s.session.IsAuthenticated {
		s.mu.Unlock()
		return errors.ErrNotAuthenticated
	}
	s.session.Tokens = tokens
	tenantID := s.session.TenantID()
	w := s.captureLocked()
	s.mu.Unlock()
	s.save(ctx, w)

	return s.tokensChanged(ctx, tenantID, tokens)
}

func (s *Store) tokensChanged(ctx context.Context, tenantID string, tokens token.Pair) error {
	s.notify(Event{Kind: EventTokensUpdated})
	if err := s.publisher.PublishTokens(ctx, tenantID, tokens); err != nil {
		log.Warn().Err(err).Msg("broadcast token update")
		return errors.Wrapf(err, "broadcast token update")
	}
	return nil
}

// Refresh exchanges the refresh token for a new pair and adopts it. Concurrent
// calls holding the same refresh token share a single backend request. The
// result is discarded with errors.ErrSuperseded when, while it was in flight,
// the session was replaced, a tenant switch began or the tokens changed.
func (s *Store) Refresh(ctx context.Context) error {
	if s.refresher == nil {
		return fmt.Errorf("%w: no token refresher configured", errors.ErrUnsupported)
	}

	s.mu.RLock()
	authenticated := s.session.IsAuthenticated
	started := refreshStart{
		epoch:        s.epoch,
		switchGen:    s.switchGen,
		tenantID:     s.session.TenantID(),
		refreshToken: s.session.Tokens.RefreshToken,
	}
	s.mu.RUnlock()

	if !authenticated {
		return errors.ErrNotAuthenticated
	}
	if started.refreshToken == "" {
		return errors.ErrNoRefreshToken
	}

	_, err, _ := s.refreshGroup.Do(started.refreshToken, func() (any, error) {
		tokens, err := s.refresher.RefreshTokens(ctx, started.refreshToken)
		if err != nil {
			return nil, errors.Wrapf(err, "refresh tokens")
		}
		if tokens.IsZero() {
			return nil, fmt.Errorf("refresh tokens: %w: empty token pair", errors.ErrBackendRejected)
		}
		return nil, s.adoptRefreshed(ctx, started, tokens)
	})
	return err
}

// refreshStart is the session state a refresh was issued against.
type refreshStart struct {
	epoch        uint64
	switchGen    uint64
	tenantID     string
	refreshToken string
}

func (s *Store) adoptRefreshed(ctx context.Context, started refreshStart, tokens token.Pair) error {
	s.mu.Lock()
	if !s.session.IsAuthenticated ||
		started.epoch != s.epoch ||
		started.switchGen != s.switchGen ||
		started.tenantID != s.session.TenantID() ||
		started.refreshToken != s.session.Tokens.RefreshToken {
		s.mu.Unlock()
		log.Info().Str("tenant", started.tenantID).Msg("discarding stale token refresh")
		return errors.ErrSuperseded
	}
	s.session.Tokens = tokens
	w := s.captureLocked()
	s.mu.Unlock()
	s.save(ctx, w)

	return s.tokensChanged(ctx, started.tenantID, tokens)
}

// Apply handles a message from another tab. It never re-broadcasts.
func (s *Store) Apply(msg broadcast.Message) {
	ctx := context.Background()

	switch msg.Kind {
	case broadcast.KindLogout:
		s.mu.Lock()
		w := s.clearLocked()
		s.mu.Unlock()
		if err := s.write(ctx, w); err != nil {
			log.Warn().Err(err).Msg("clearing persisted session after remote logout")
		}
		log.Info().Str("from", msg.Origin).Msg("remote logout")
		s.notify(Event{Kind: EventLogout, Remote: true})

	case broadcast.KindTokenUpdated:
		if msg.Tokens == nil {
			return
		}
		s.mu.Lock()
		if !s.session.IsAuthenticated {
			s.mu.Unlock()
			log.Debug().Str("from", msg.Origin).Msg("ignoring token update without a session")
			return
		}
		if msg.TenantID != s.session.TenantID() {
			current := s.session.TenantID()
			s.mu.Unlock()
			log.Debug().Str("from", msg.Origin).Str("tenant", msg.TenantID).Str("current", current).Msg("ignoring token update for another tenant")
			return
		}
		s.session.Tokens = *msg.Tokens
		w := s.captureLocked()
		s.mu.Unlock()
		s.save(ctx, w)
		s.notify(Event{Kind: EventTokensUpdated, Remote: true})

	case broadcast.KindSessionExpired:
		s.mu.Lock()
		w := s.clearLocked()
		s.expired = true
		s.mu.Unlock()
		if err := s.write(ctx, w); err != nil {
			log.Warn().Err(err).Msg("clearing persisted session after remote expiry")
		}
		log.Info().Str("from", msg.Origin).Msg("remote session expiry")
		s.notify(Event{Kind: EventExpired, Remote: true})
	}
}

// pendingWrite is a session state captured under mu, written to the repo once
// mu is released. A nil session deletes the persisted copy.
type pendingWrite struct {
	version uint64
	session *Session
}

// captureLocked snapshots the session for writing.
func (s *Store) captureLocked() pendingWrite {
	s.version++
	snapshot := s.session.Clone()
	return pendingWrite{version: s.version, session: &snapshot}
}

// clearLocked resets the session and returns the write that removes the persisted copy.
func (s *Store) clearLocked() pendingWrite {
	s.session = Session{}
	s.epoch++
	s.version++
	return pendingWrite{version: s.version}
}

// write applies w to the repo unless a newer state has already been written.
func (s *Store) write(ctx context.Context, w pendingWrite) error {
	if s.repo == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if w.version <= s.written {
		return nil
	}
	s.written = w.version

	if w.session == nil {
		if err := s.repo.Delete(ctx, s.key); err != nil && !errors.Is(err, errors.ErrNotFound) {
			return errors.Wrapf(err, "delete persisted session")
		}
		return nil
	}
	if err := s.repo.Save(ctx, s.key, w.session); err != nil {
		return errors.Wrapf(err, "save session")
	}
	return nil
}

// save writes w. Persistence only serves reload survival, so a failure is
// logged and the in-memory state stays authoritative.
func (s *Store) save(ctx context.Context, w pendingWrite) {
	if err := s.write(ctx, w); err != nil {
		log.Err(err).Str("key", s.key).Msg("persisting session")
	}
}

func (s *Store) notify(e Event) {
	for _, fn := range s.listeners {
		fn(e)
	}
}
