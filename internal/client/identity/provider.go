// Package identity tracks who is signed in to the hosted backend.
//
// Passwords never leave the client: sign-up sends a random salt and a
// verifier derived from the password, sign-in fetches the salt and proves
// knowledge of the password by sending the same verifier.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/cryptox"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
)

const (
	MinPasswordLength = 6
	saltSize          = 32
)

// AuthClient is the part of the server API the provider needs.
type AuthClient interface {
	Register(ctx context.Context, userName string, salt []byte, verifier []byte) error
	GetSalt(ctx context.Context, userName string) ([]byte, error)
	Login(ctx context.Context, userName string, verifier []byte) (string, error)
	Logout()
}

// User is the signed-in account.
type User struct {
	ID       string
	Username string
}

// Provider is safe for concurrent use. Listeners are called without the
// provider's lock held, so they may call back into it.
type Provider struct {
	client AuthClient
	log    logging.Logger

	mu        sync.Mutex
	user      *User
	listeners map[int]func(*User)
	nextID    int
}

func NewProvider(client AuthClient, log logging.Logger) *Provider {
	return &Provider{
		client:    client,
		log:       log.With("module", "identity"),
		listeners: map[int]func(*User){},
	}
}

func validateCredentials(username string, password []byte) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}
	return nil
}

// SignUp creates the account and signs it in.
func (p *Provider) SignUp(ctx context.Context, username string, password []byte) (*User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	salt := common.GenerateRandByteArray(saltSize)
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	if err := p.client.Register(ctx, username, salt, cryptox.MakeVerifier(key)); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	p.log.Info(ctx, "account registered", "username", username)

	return p.SignIn(ctx, username, password)
}

func (p *Provider) SignIn(ctx context.Context, username string, password []byte) (*User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	salt, err := p.client.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get salt: %w", err)
	}

	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	userID, err := p.client.Login(ctx, username, cryptox.MakeVerifier(key))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	u := &User{ID: userID, Username: username}
	p.setUser(u)
	p.log.Info(ctx, "signed in", "user", userID)
	return u.copy(), nil
}

// SignOut drops the session tokens. Signing out while signed out is a no-op
// and notifies nobody.
func (p *Provider) SignOut(ctx context.Context) {
	p.mu.Lock()
	wasSignedIn := p.user != nil
	p.mu.Unlock()

	p.client.Logout()
	if !wasSignedIn {
		return
	}
	p.setUser(nil)
	p.log.Info(ctx, "signed out")
}

// CurrentUser returns nil when nobody is signed in.
func (p *Provider) CurrentUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user.copy()
}

func (p *Provider) IsAuthenticated() bool {
	return p.CurrentUser() != nil
}

// OnAuthStateChange calls fn with the current user right away and again
// after every sign-in and sign-out. The returned func unsubscribes.
func (p *Provider) OnAuthStateChange(fn func(*User)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	current := p.user.copy()
	p.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) setUser(u *User) {
	p.mu.Lock()
	p.user = u
	fns := make([]func(*User), 0, len(p.listeners))
	for i := 0; i < p.nextID; i++ {
		if fn, ok := p.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(u.copy())
	}
}

func (u *User) copy() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
