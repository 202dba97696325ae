package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ProviderSession is the provider-side login state held by a client.
type ProviderSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Principal
}

// EventKind enumerates auth-state-change notifications.
type EventKind string

const (
	EventSignedIn       EventKind = "signed-in"
	EventSignedOut      EventKind = "signed-out"
	EventTokenRefreshed EventKind = "token-refreshed"
)

// Event is an auth-state-change notification delivered to subscribers.
type Event struct {
	Kind    EventKind
	Session *ProviderSession
}

// ErrNoSession indicates no provider session is currently held.
var ErrNoSession = errors.New("identity: no active session")

// refreshLeeway refreshes sessions that are about to expire rather than
// handing out a nearly-dead token.
const refreshLeeway = 5 * time.Minute

// SessionClient holds a provider session on behalf of a client process and
// emits auth-state-change events, mirroring what the provider SDK does in a
// browser.
type SessionClient struct {
	api   *Client
	nowFn func() time.Time

	mu      sync.Mutex
	current *ProviderSession
	subs    map[int]chan Event
	nextSub int
}

// NewSessionClient constructs a SessionClient over the provider API client.
func NewSessionClient(api *Client) *SessionClient {
	return &SessionClient{
		api:   api,
		nowFn: time.Now,
		subs:  make(map[int]chan Event),
	}
}

// Subscribe registers for auth-state-change events. The returned cancel
// function unsubscribes and closes the channel.
func (c *SessionClient) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, 8)
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *SessionClient) emit(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		select {
		case sub <- event:
		default:
			// A stalled subscriber must not block auth state delivery.
		}
	}
}

// SignIn authenticates with the provider and emits a signed-in event.
func (c *SessionClient) SignIn(ctx context.Context, email, password string) (*ProviderSession, error) {
	session, errGrant := c.api.PasswordGrant(ctx, email, password)
	if errGrant != nil {
		return nil, errGrant
	}
	c.setCurrent(session)
	c.emit(Event{Kind: EventSignedIn, Session: session})
	return session, nil
}

// SignUp registers a new account. No session is created until the email is
// verified and the user signs in.
func (c *SessionClient) SignUp(ctx context.Context, email, password, name string) error {
	var metadata map[string]any
	if name != "" {
		metadata = map[string]any{"full_name": name}
	}
	return c.api.SignUp(ctx, email, password, metadata)
}

// Session returns the held session, refreshing it first when it expires
// within the leeway window.
func (c *SessionClient) Session(ctx context.Context) (*ProviderSession, error) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil {
		return nil, ErrNoSession
	}
	if current.ExpiresAt.Sub(c.nowFn()) < refreshLeeway {
		return c.Refresh(ctx)
	}
	return current, nil
}

// Refresh exchanges the refresh token for a new session and emits a
// token-refreshed event.
func (c *SessionClient) Refresh(ctx context.Context) (*ProviderSession, error) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	session, errGrant := c.api.RefreshGrant(ctx, current.RefreshToken)
	if errGrant != nil {
		return nil, errGrant
	}
	c.setCurrent(session)
	c.emit(Event{Kind: EventTokenRefreshed, Session: session})
	return session, nil
}

// SignOut revokes the provider session. Local state is cleared and the
// signed-out event emitted even when the revoke call fails, so a client never
// stays stuck in an authenticated-looking state.
func (c *SessionClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.current = nil
	c.mu.Unlock()

	var errSignOut error
	if current != nil && current.AccessToken != "" {
		errSignOut = c.api.SignOut(ctx, current.AccessToken)
	}
	c.emit(Event{Kind: EventSignedOut})
	return errSignOut
}

func (c *SessionClient) setCurrent(session *ProviderSession) {
	c.mu.Lock()
	c.current = session
	c.mu.Unlock()
}
