package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sessionforge/authgate/internal/identity"
)

// State is the monitor's view of the login lifecycle.
type State int

const (
	StateUnknown State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Provider is the client-side identity surface the monitor watches.
// *identity.SessionClient satisfies it.
type Provider interface {
	Session(ctx context.Context) (*identity.ProviderSession, error)
	Refresh(ctx context.Context) (*identity.ProviderSession, error)
	Subscribe() (<-chan identity.Event, func())
}

// Syncer mirrors provider session state into the server session store.
type Syncer interface {
	SyncSession(ctx context.Context, sess *identity.ProviderSession, deviceID string) error
	UpdateSession(ctx context.Context, token string, expiresAt time.Time) error
	Logout(ctx context.Context, token string) error
	CleanupSessions(ctx context.Context, token, deviceID string) error
}

const (
	// defaultRefreshEvery sits comfortably inside the provider's 60-minute
	// token lifetime.
	defaultRefreshEvery = 50 * time.Minute
	// defaultHardAfter forces a refresh close to true expiry.
	defaultHardAfter = 55 * time.Minute
)

// Options tune the monitor timers; zero values take the defaults.
type Options struct {
	DeviceID     string
	RefreshEvery time.Duration
	HardAfter    time.Duration
}

// Monitor keeps the provider session alive and the server session store in
// sync. It is driven by the provider's auth-event stream, two recurring
// timers, and explicit wake-ups; overlapping triggers resolve idempotently
// because the server sync is an upsert.
type Monitor struct {
	provider Provider
	syncer   Syncer
	deviceID string

	refreshEvery time.Duration
	hardAfter    time.Duration

	mu        sync.Mutex
	state     State
	lastToken string

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New constructs a Monitor. A missing device ID is generated once and reused
// for every sync.
func New(provider Provider, syncer Syncer, opts Options) *Monitor {
	if opts.DeviceID == "" {
		opts.DeviceID = uuid.NewString()
	}
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = defaultRefreshEvery
	}
	if opts.HardAfter <= 0 {
		opts.HardAfter = defaultHardAfter
	}
	return &Monitor{
		provider:     provider,
		syncer:       syncer,
		deviceID:     opts.DeviceID,
		refreshEvery: opts.RefreshEvery,
		hardAfter:    opts.HardAfter,
		state:        StateUnknown,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// DeviceID returns the device identity used for session rows.
func (m *Monitor) DeviceID() string { return m.deviceID }

// Start subscribes to the provider's event stream and launches the monitor
// loop. The subscription happens synchronously so events emitted right after
// Start cannot be missed.
func (m *Monitor) Start() {
	m.setState(StateLoading)
	events, unsubscribe := m.provider.Subscribe()
	m.wg.Add(1)
	go m.run(events, unsubscribe)
}

// Stop cancels all timers, unsubscribes from the event stream, and waits for
// the loop to exit. No background refresh outlives the monitor.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}

// Wake re-validates a previously held session once, for use on events like
// tab re-activation, instead of trusting cached state indefinitely.
func (m *Monitor) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Monitor) run(events <-chan identity.Event, unsubscribe func()) {
	defer m.wg.Done()
	defer unsubscribe()

	refreshTicker := time.NewTicker(m.refreshEvery)
	defer refreshTicker.Stop()
	hardTimer := time.NewTimer(m.hardAfter)
	defer hardTimer.Stop()

	ctx := context.Background()
	m.resync(ctx, false)

	for {
		select {
		case <-m.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(ctx, event)
		case <-refreshTicker.C:
			if m.State() == StateAuthenticated {
				m.resync(ctx, false)
			}
		case <-hardTimer.C:
			if m.State() == StateAuthenticated {
				m.resync(ctx, true)
			}
			hardTimer.Reset(m.hardAfter)
		case <-m.wake:
			if m.State() == StateAuthenticated {
				m.resync(ctx, false)
			}
		}
	}
}

func (m *Monitor) handleEvent(ctx context.Context, event identity.Event) {
	switch event.Kind {
	case identity.EventSignedIn:
		m.resync(ctx, false)
	case identity.EventTokenRefreshed:
		m.handleRefreshed(ctx, event.Session)
	case identity.EventSignedOut:
		m.handleSignedOut(ctx)
	}
}

// handleRefreshed records the new token server-side. The refresh path is
// tried first; when the new token has no row yet it falls back to a full
// sync, then drops stale rows for this device.
func (m *Monitor) handleRefreshed(ctx context.Context, sess *identity.ProviderSession) {
	if sess == nil {
		m.resync(ctx, false)
		return
	}
	if errUpdate := m.syncer.UpdateSession(ctx, sess.AccessToken, sess.ExpiresAt); errUpdate != nil {
		if errSync := m.syncer.SyncSession(ctx, sess, m.deviceID); errSync != nil {
			log.WithError(errSync).Warn("monitor: session resync after refresh failed")
			return
		}
		if errCleanup := m.syncer.CleanupSessions(ctx, sess.AccessToken, m.deviceID); errCleanup != nil {
			log.WithError(errCleanup).Debug("monitor: stale session cleanup failed")
		}
	}
	m.setAuthenticated(sess.AccessToken)
}

// handleSignedOut clears server state best-effort; local state always goes to
// anonymous even when the server call fails.
func (m *Monitor) handleSignedOut(ctx context.Context) {
	m.mu.Lock()
	token := m.lastToken
	m.lastToken = ""
	m.state = StateAnonymous
	m.mu.Unlock()

	if token != "" {
		if errLogout := m.syncer.Logout(ctx, token); errLogout != nil {
			log.WithError(errLogout).Warn("monitor: server logout failed")
		}
	}
}

func (m *Monitor) resync(ctx context.Context, force bool) {
	var (
		sess *identity.ProviderSession
		err  error
	)
	if force {
		sess, err = m.provider.Refresh(ctx)
	} else {
		sess, err = m.provider.Session(ctx)
	}
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			m.setState(StateAnonymous)
			return
		}
		log.WithError(err).Warn("monitor: provider session fetch failed")
		return
	}

	if errSync := m.syncer.SyncSession(ctx, sess, m.deviceID); errSync != nil {
		log.WithError(errSync).Warn("monitor: server session sync failed")
		return
	}
	m.setAuthenticated(sess.AccessToken)
}

func (m *Monitor) setAuthenticated(token string) {
	m.mu.Lock()
	m.state = StateAuthenticated
	m.lastToken = token
	m.mu.Unlock()
}

func (m *Monitor) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
