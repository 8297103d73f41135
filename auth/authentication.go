package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var (
	ErrUnauthenticated          = fmt.Errorf("session token is invalid")
	AuthContextKey              = AuthKey("auth")
	SessionTokenHeaderKey       = "x-session-token"
	DefaultCacheSize            = 10000           // Cache up to 10000 tokens
	DefaultCacheEntryExpiration = 5 * time.Minute // Cache tokens for 5 minutes
)

type AuthKey string

type Auth struct {
	SubjectId string    `json:"subjectId"`
	Email     string    `json:"email"`
	SessionId string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func IsAuthenticated(a *Auth) bool {
	return a != nil && a.SubjectId != ""
}

type Authenticator interface {
	ValidateAndSetAuthData(token string, ec echo.Context) (bool, error)
	Invalidate(token string)
}

type AuthMiddlewareOpts struct {
	Skipper middleware.Skipper
}

func NewAuthMiddleware(authenticator Authenticator, opts AuthMiddlewareOpts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Allow skipping authentication for public routes (e.g. sign in, readiness probe)
			if opts.Skipper != nil {
				if opts.Skipper(c) {
					return next(c)
				}
			}

			token := GetSessionToken(c.Request())
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "session token is missing")
			}

			valid, err := authenticator.ValidateAndSetAuthData(token, c)
			if err != nil {
				return &echo.HTTPError{
					Code:     http.StatusUnauthorized,
					Message:  "session token is invalid",
					Internal: err,
				}
			} else if valid {
				return next(c)
			}
			return echo.ErrUnauthorized
		}
	}
}

// GetSessionToken reads the session header, falling back to a bearer token.
func GetSessionToken(r *http.Request) string {
	if token := r.Header.Get(SessionTokenHeaderKey); token != "" {
		return token
	}
	authorization := r.Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// NewAuthenticator returns a session authenticator that caches validated tokens
func NewAuthenticator(sessions Service) (Authenticator, error) {
	delegate := NewSessionAuthenticator(sessions)
	return NewCachingAuthenticator(
		DefaultCacheSize,
		DefaultCacheEntryExpiration,
		delegate,
		IsAuthenticated,
	)
}

type SessionAuthenticator struct {
	sessions Service
}

var _ Authenticator = &SessionAuthenticator{}

func NewSessionAuthenticator(sessions Service) Authenticator {
	return &SessionAuthenticator{sessions: sessions}
}

func (s *SessionAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	session, err := s.sessions.GetSession(ec.Request().Context(), token)
	if err != nil {
		return false, err
	}
	if session != nil && session.User.Id != "" {
		SetAuthData(ec, session.Auth())
		return true, nil
	}

	return false, ErrUnauthenticated
}

func (s *SessionAuthenticator) Invalidate(string) {}

func GetAuthData(ctx context.Context) *Auth {
	if auth, ok := ctx.Value(AuthContextKey).(*Auth); ok {
		return auth
	}

	return nil
}

func WithAuthData(ctx context.Context, auth *Auth) context.Context {
	return context.WithValue(ctx, AuthContextKey, auth)
}

func SetAuthData(ec echo.Context, auth *Auth) {
	ctx := WithAuthData(ec.Request().Context(), auth)
	ec.SetRequest(ec.Request().WithContext(ctx))
}

type CacheEntry struct {
	token  string
	auth   *Auth
	expiry time.Time
}

func (c CacheEntry) IsExpired() bool {
	return time.Now().After(c.expiry)
}

type CachingAuthenticator struct {
	delegate    Authenticator
	expiration  time.Duration
	lru         *simplelru.LRU
	mu          *sync.Mutex
	shouldCache func(*Auth) bool
}

var _ Authenticator = &CachingAuthenticator{}

func NewCachingAuthenticator(size int, expiration time.Duration, delegate Authenticator, shouldCache func(*Auth) bool) (*CachingAuthenticator, error) {
	var onEvict simplelru.EvictCallback
	lru, err := simplelru.NewLRU(size, onEvict)
	if err != nil {
		return nil, err
	}

	return &CachingAuthenticator{
		delegate:    delegate,
		expiration:  expiration,
		lru:         lru,
		mu:          &sync.Mutex{},
		shouldCache: shouldCache,
	}, nil
}

func (c *CachingAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	entry := c.getCachedEntry(token)
	if entry != nil {
		SetAuthData(ec, entry.auth)
		return true, nil
	}

	res, err := c.delegate.ValidateAndSetAuthData(token, ec)
	auth := GetAuthData(ec.Request().Context())

	if err == nil && res && c.shouldCache(auth) {
		expiry := time.Now().Add(c.expiration)
		// Never outlive the session itself
		if !auth.ExpiresAt.IsZero() && auth.ExpiresAt.Before(expiry) {
			expiry = auth.ExpiresAt
		}
		c.setCacheEntry(CacheEntry{
			token:  token,
			auth:   auth,
			expiry: expiry,
		})
	}

	return res, err
}

func (c *CachingAuthenticator) Invalidate(token string) {
	c.mu.Lock()
	c.lru.Remove(token)
	c.mu.Unlock()

	c.delegate.Invalidate(token)
}

func (c *CachingAuthenticator) getCachedEntry(token string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Get(token); ok {
		entry := e.(CacheEntry)
		if entry.IsExpired() {
			c.lru.Remove(token)
			return nil
		}
		return &entry
	}

	return nil
}

func (c *CachingAuthenticator) setCacheEntry(entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.lru.Add(entry.token, entry)
}
