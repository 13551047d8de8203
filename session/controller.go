package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-sensor-dashboard/apiclient"
	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/jrsteele09/go-sensor-dashboard/token/jwt"
	"github.com/jrsteele09/go-sensor-dashboard/users"
	"github.com/rs/zerolog/log"
)

// Result is returned by a successful login or registration.
type Result struct {
	User   *users.User
	Tokens token.Pair
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type registerResponse struct {
	Message string         `json:"message"`
	User    *users.User    `json:"user"`
	Tokens  *tokenResponse `json:"tokens"`
}

type profileResponse struct {
	Message string      `json:"message,omitempty"`
	User    *users.User `json:"user"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileRequest struct {
	Email string `json:"email"`
}

// Controller drives login, registration, logout and refresh against the token
// store and the request client.
type Controller struct {
	api   *apiclient.Client
	store token.Store

	mu        sync.Mutex
	last      State
	listeners map[int]func(State)
	nextID    int
}

// New creates the controller and installs it as the client's refresher.
var (
	_ apiclient.Refresher   = (*Controller)(nil)
	_ apiclient.Invalidator = (*Controller)(nil)
)

func New(api *apiclient.Client) *Controller {
	c := &Controller{
		api:       api,
		store:     api.Store(),
		listeners: make(map[int]func(State)),
	}
	c.last = c.State()
	api.SetRefresher(c)
	return c
}

// State is Authenticated iff the store holds an access token.
func (c *Controller) State() State {
	if c.store.IsAuthenticated() {
		return Authenticated
	}
	return Anonymous
}

// User returns the cached identity, if any.
func (c *Controller) User() (*users.User, bool) {
	return c.store.GetUser()
}

// OnChange registers fn to be called on every Anonymous/Authenticated transition.
// The returned func removes the listener.
func (c *Controller) OnChange(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) Login(ctx context.Context, username, password string) (*Result, error) {
	const op = "session.Login"
	req := LoginRequest{Username: username, Password: password}
	if err := validateCredentials(op, req); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := c.api.DoAnonymous(ctx, http.MethodPost, RouteToken, req, &resp); err != nil {
		return nil, errors.Wrapf(err, op)
	}
	pair := token.Pair{Access: resp.Access, Refresh: resp.Refresh}
	if !pair.Complete() {
		return nil, errors.NewAuthError(op, errors.ErrMissingTokens)
	}
	if err := c.store.Set(pair); err != nil {
		return nil, errors.Wrapf(err, op)
	}

	user := c.resolveUser(ctx, username, pair.Access)
	if !c.store.IsAuthenticated() {
		// the profile lookup hit an unrecoverable 401 and the session was dropped
		c.notify()
		return nil, errors.NewAuthError(op, errors.ErrNotAuthenticated)
	}
	c.cacheUser(user)
	c.notify()

	log.Info().Str("username", user.Username).Int64("user_id", user.ID).Msg("Logged in")
	return &Result{User: user, Tokens: pair}, nil
}

// resolveUser asks the profile endpoint who we are, falling back to the
// user_id claim of the access token when the profile is unavailable.
func (c *Controller) resolveUser(ctx context.Context, username, access string) *users.User {
	user, err := c.fetchProfile(ctx)
	if err == nil && !user.Anonymous() {
		return user
	}
	log.Warn().Err(err).Msg("Profile lookup failed, deriving identity from token claims")

	fallback := &users.User{Username: username}
	claims, cerr := jwt.Inspect(access)
	if cerr != nil {
		log.Warn().Err(cerr).Msg("Access token claims unreadable")
		return fallback
	}
	fallback.ID = claims.UserID
	return fallback
}

func (c *Controller) Register(ctx context.Context, username, email, password string) (*Result, error) {
	const op = "session.Register"
	req := RegisterRequest{Username: username, Email: email, Password: password}
	if err := validateCredentials(op, req); err != nil {
		return nil, err
	}

	var resp registerResponse
	if err := c.api.DoAnonymous(ctx, http.MethodPost, RouteRegister, req, &resp); err != nil {
		return nil, errors.Wrapf(err, op)
	}
	user := resp.User
	if user == nil {
		user = &users.User{Username: username, Email: email}
	}

	result := &Result{User: user}
	if resp.Tokens == nil || (resp.Tokens.Access == "" && resp.Tokens.Refresh == "") {
		log.Info().Str("username", user.Username).Msg("Registered without tokens, login required")
		return result, nil
	}

	pair := token.Pair{Access: resp.Tokens.Access, Refresh: resp.Tokens.Refresh}
	if !pair.Complete() {
		return nil, errors.NewAuthError(op, errors.ErrMissingTokens)
	}
	if err := c.store.Set(pair); err != nil {
		return nil, errors.Wrapf(err, op)
	}
	c.cacheUser(user)
	c.notify()

	result.Tokens = pair
	log.Info().Str("username", user.Username).Int64("user_id", user.ID).Msg("Registered and logged in")
	return result, nil
}

// Logout asks the backend to blacklist the refresh token and then clears the
// local session. The remote call is best effort; Logout itself cannot fail.
func (c *Controller) Logout(ctx context.Context) {
	if pair, ok := c.store.Get(); ok {
		if err := c.api.Post(ctx, RouteLogout, logoutRequest{RefreshToken: pair.Refresh}, nil); err != nil {
			log.Err(err).Msg("Logout: failed to invalidate refresh token")
		}
	}
	c.store.Clear()
	c.notify()
	log.Info().Msg("Logged out")
}

// Refresh exchanges the stored refresh token for a new access token. Any
// failure clears the session; this is the only path that logs a user out
// without them asking.
func (c *Controller) Refresh(ctx context.Context) (string, error) {
	const op = "session.Refresh"
	pair, ok := c.store.Get()
	if !ok {
		c.dropSession()
		return "", errors.NewAuthError(op, errors.ErrMissingRefreshToken)
	}

	var resp tokenResponse
	if err := c.api.DoAnonymous(ctx, http.MethodPost, RouteTokenRefresh, refreshRequest{Refresh: pair.Refresh}, &resp); err != nil {
		c.dropSession()
		return "", &errors.AuthError{Op: op, Reason: "refresh rejected", Err: err}
	}
	if resp.Access == "" {
		c.dropSession()
		return "", errors.NewAuthError(op, errors.ErrMissingTokens)
	}

	// The backend keeps refresh tokens across exchanges; honour a rotated one if it sends it.
	var err error
	if resp.Refresh == "" {
		err = c.store.SetAccess(resp.Access)
	} else {
		err = c.store.Set(token.Pair{Access: resp.Access, Refresh: resp.Refresh})
	}
	if err != nil {
		c.dropSession()
		return "", &errors.AuthError{Op: op, Reason: "could not persist refreshed token", Err: err}
	}
	log.Debug().Bool("rotated", resp.Refresh != "").Msg("Access token refreshed")
	return resp.Access, nil
}

// Profile fetches the current user and refreshes the cached copy.
func (c *Controller) Profile(ctx context.Context) (*users.User, error) {
	user, err := c.fetchProfile(ctx)
	if err != nil {
		c.notify()
		return nil, err
	}
	c.cacheUser(user)
	return user, nil
}

// UpdateEmail changes the user's email address.
func (c *Controller) UpdateEmail(ctx context.Context, email string) (*users.User, error) {
	const op = "session.UpdateEmail"
	if err := engine().Var(email, "required,email"); err != nil {
		return nil, &errors.AuthError{Op: op, Reason: "invalid email", Err: errors.ErrInvalidCredentials}
	}
	var resp profileResponse
	if err := c.api.Put(ctx, RouteProfile, updateProfileRequest{Email: email}, &resp); err != nil {
		c.notify()
		return nil, errors.Wrapf(err, op)
	}
	if resp.User == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s: response without user", op)
	}
	c.cacheUser(resp.User)
	return resp.User, nil
}

// Verify asks the backend whether the stored access token is still valid.
func (c *Controller) Verify(ctx context.Context) (bool, error) {
	pair, ok := c.store.Get()
	if !ok {
		return false, nil
	}
	err := c.api.DoAnonymous(ctx, http.MethodPost, RouteTokenVerify, verifyRequest{Token: pair.Access}, nil)
	if errors.IsAuth(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate is called by the request client after it clears the store.
func (c *Controller) Invalidate() {
	c.notify()
}

func (c *Controller) fetchProfile(ctx context.Context) (*users.User, error) {
	var resp profileResponse
	if err := c.api.Get(ctx, RouteProfile, nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "session.Profile")
	}
	if resp.User == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "session.Profile: response without user")
	}
	return resp.User, nil
}

func (c *Controller) cacheUser(user *users.User) {
	if err := c.store.SetUser(user); err != nil {
		log.Err(err).Msg("Failed to cache user")
	}
}

func (c *Controller) dropSession() {
	c.store.Clear()
	c.notify()
}

// notify fires listeners if the derived state moved since the last notification.
func (c *Controller) notify() {
	current := c.State()

	c.mu.Lock()
	if current == c.last {
		c.mu.Unlock()
		return
	}
	c.last = current
	listeners := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	log.Debug().Stringer("state", current).Msg("Session state changed")
	for _, fn := range listeners {
		fn(current)
	}
}
