package fakeapi

import (
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-sensor-dashboard/internal/ui"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
	"github.com/jrsteele09/go-sensor-dashboard/token"
	"github.com/jrsteele09/go-sensor-dashboard/token/jwt"
	"github.com/jrsteele09/go-sensor-dashboard/users"
	fakeuserrepo "github.com/jrsteele09/go-sensor-dashboard/users/repofake"
)

const (
	defaultSecret     = "sensordash-fake-secret"
	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 24 * time.Hour

	// Version is reported by the health endpoint.
	Version = "1.0.0"
)

// Server is an in-memory stand-in for the sensor backend. It issues
// simplejwt-shaped HS256 tokens and exposes knobs tests use to force
// expiry and failures.
type Server struct {
	router     *mux.Router
	handler    http.Handler
	users      users.UserRepo
	signer     token.Signer
	creator    *jwt.Creator
	revoked    token.Blacklist // refresh tokens blacklisted by logout or rotation
	expired    token.Blacklist // access tokens force-expired by ExpireAccessTokens
	rotate     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time

	mu           sync.Mutex
	issuedAccess map[string]time.Time // jti to expiry
	devices      []sensors.Device
	readings     []sensors.Reading
	alerts       []*sensors.Alert
	settings     map[int64]*sensors.Settings // by user id
	nextReading  int64
	nextAlert    int64
	nextSettings int64
	calls        map[string]int
	failRefresh  bool
	failLogout   bool
}

type Option func(*Server)

func WithSecret(secret string) Option {
	return func(s *Server) { s.signer = token.NewHMACSigner(secret) }
}

func WithTokenTTL(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithRefreshRotation makes the refresh endpoint return a new refresh token and
// blacklist the old one.
func WithRefreshRotation() Option {
	return func(s *Server) { s.rotate = true }
}

func WithUserRepo(repo users.UserRepo) Option {
	return func(s *Server) { s.users = repo }
}

func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) { s.nowFunc = nowFunc }
}

func New(opts ...Option) *Server {
	s := &Server{
		users:        fakeuserrepo.NewFakeUserRepo(),
		signer:       token.NewHMACSigner(defaultSecret),
		accessTTL:    defaultAccessTTL,
		refreshTTL:   defaultRefreshTTL,
		nowFunc:      time.Now,
		issuedAccess: make(map[string]time.Time),
		settings:     make(map[int64]*sensors.Settings),
		calls:        make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.creator = jwt.NewCreator(s.signer, s.accessTTL, s.refreshTTL)
	s.revoked = token.NewInMemoryBlacklist(s.nowFunc)
	s.expired = token.NewInMemoryBlacklist(s.nowFunc)
	s.router = mux.NewRouter()
	s.initRoutes()
	s.handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.router)
	return s
}

// ServeHTTP recovers handler panics as a 500.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Handler wraps the server in an Apache combined access log written to stdout.
func (s *Server) Handler() http.Handler {
	return handlers.CombinedLoggingHandler(os.Stdout, s)
}

// LogRoutes prints every registered route with its method.
func (s *Server) LogRoutes() {
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		for _, m := range methods {
			log.Printf("[%-19s] %s\n", ui.Method(m), path)
		}
		return nil
	})
}

// CreateUser registers a user directly, bypassing the HTTP API.
func (s *Server) CreateUser(username, email, password string) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &users.User{Username: username, Email: email, PasswordHash: hash, DateJoined: s.nowFunc().UTC()}
	if err := s.users.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

// IssueTokens mints a pair for an existing user, bypassing the HTTP API.
func (s *Server) IssueTokens(userID int64) (token.Pair, error) {
	pair, err := s.creator.CreatePair(userID)
	if err != nil {
		return token.Pair{}, err
	}
	s.trackAccess(pair.Access)
	return pair, nil
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, exp := range s.issuedAccess {
		s.expired.Add(jti, exp)
	}
}

// RevokeRefreshToken blacklists a refresh token as logout would.
func (s *Server) RevokeRefreshToken(raw string) error {
	claims, err := jwt.Verify(raw, s.signer)
	if err != nil {
		return err
	}
	s.revoked.Add(claims.JTI, claims.ExpiresAt)
	return nil
}

// FailRefresh makes the refresh endpoint reject every token while set.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// FailLogout makes the logout endpoint answer 500 while set.
func (s *Server) FailLogout(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogout = fail
}

// Calls returns how often the route was hit, e.g. Calls("POST", "/auth/token/refresh/").
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) trackAccess(access string) {
	claims, err := jwt.Inspect(access)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuedAccess[claims.JTI] = claims.ExpiresAt
}

func (s *Server) shouldFailRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failRefresh
}

func (s *Server) shouldFailLogout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failLogout
}
