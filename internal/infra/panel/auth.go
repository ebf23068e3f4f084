// File: internal/infra/panel/auth.go
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	loginTimeout  = 10 * time.Second
	statusTimeout = 10 * time.Second
	maxBodyBytes  = 1 << 20
)

// AuthClient produces a bearer token for the panel, logging in on demand.
// Concurrent callers needing a fresh token share a single login.
type AuthClient struct {
	baseURL  string
	username string
	password string
	cookie   string
	ttl      time.Duration

	http    *http.Client
	retry   RetryPolicy
	limiter *loginLimiter
	now     func() time.Time
	log     *zerolog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewAuthClient(opts Options, httpClient *http.Client, log *zerolog.Logger) *AuthClient {
	l := log.With().Str("component", "panel_auth").Logger()
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthClient{
		baseURL:  opts.BaseURL,
		username: opts.Username,
		password: opts.Password,
		cookie:   opts.Cookie,
		ttl:      ttl,
		http:     httpClient,
		retry:    NewRetryPolicy(opts.MaxRetries, opts.RetryBaseDelay, &l),
		limiter:  newLoginLimiter(opts.LoginMaxAttempts, opts.LoginCooldown, time.Now),
		now:      time.Now,
		log:      &l,
	}
}

// GetToken returns the cached token while it is valid, otherwise logs in.
func (a *AuthClient) GetToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.now().Before(a.expiresAt) {
		return a.token, nil
	}
	return a.loginLocked(ctx)
}

// Login forces a fresh login.
func (a *AuthClient) Login(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginLocked(ctx)
}

// Invalidate drops the cached token after the panel rejected it.
func (a *AuthClient) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.expiresAt = time.Time{}
	a.mu.Unlock()
}

func (a *AuthClient) loginLocked(ctx context.Context) (string, error) {
	a.token = ""
	err := a.retry.Do(ctx, "login", func(ctx context.Context) error {
		if !a.limiter.take() {
			metrics.IncPanelLogin("throttled")
			return &Error{Kind: KindAuth, Op: "login", Err: errors.New("too many login attempts, cooling down")}
		}
		token, err := a.loginOnce(ctx)
		if err != nil {
			if KindOf(err) == KindNetwork {
				a.limiter.refund()
			}
			return err
		}
		a.limiter.reset()
		a.setToken(token)
		return nil
	})
	if err != nil {
		metrics.IncPanelLogin("failed")
		a.log.Error().Err(err).Msg("panel login failed")
		return "", asAuthError(err)
	}
	metrics.IncPanelLogin("success")
	a.log.Info().Time("expires_at", a.expiresAt).Msg("panel token refreshed")
	return a.token, nil
}

func (a *AuthClient) loginOnce(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	b, _ := json.Marshal(map[string]string{"username": a.username, "password": a.password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/auth/login", bytes.NewReader(b))
	if err != nil {
		return "", Classify("login", nil, nil, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cookie != "" {
		req.Header.Set("Cookie", a.cookie)
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		perr := Classify("login", nil, nil, err)
		metrics.ObservePanelRequest("login", perr.Kind.String(), time.Since(start))
		return "", perr
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", Classify("login", nil, nil, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := Classify("login", resp, body, nil)
		metrics.ObservePanelRequest("login", perr.Kind.String(), time.Since(start))
		return "", perr
	}
	metrics.ObservePanelRequest("login", "ok", time.Since(start))

	var out envelope[struct {
		AccessToken string `json:"accessToken"`
	}]
	if err := json.Unmarshal(body, &out); err != nil {
		return "", malformed("login", err)
	}
	if out.Response == nil || out.Response.AccessToken == "" {
		return "", malformed("login", errors.New("missing accessToken"))
	}
	return out.Response.AccessToken, nil
}

// setToken caches the token until now+ttl, or earlier when the JWT says so.
func (a *AuthClient) setToken(token string) {
	expires := a.now().Add(a.ttl)
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Time.Before(expires) {
			expires = exp.Time
		}
	}
	a.token = token
	a.expiresAt = expires
}

// TestConnection is a best-effort probe; any answer below 500 counts as up.
func (a *AuthClient) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/status", nil)
	if err != nil {
		return false
	}
	resp, err := a.http.Do(req)
	if err != nil {
		a.log.Error().Err(err).Str("url", a.baseURL).Msg("panel is unreachable")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode >= 200 && resp.StatusCode < 500 {
		a.log.Info().Int("status", resp.StatusCode).Msg("panel connection ok")
		return true
	}
	a.log.Error().Int("status", resp.StatusCode).Msg("panel connection failed")
	return false
}

// asAuthError reports an exhausted login as an auth failure while keeping
// the underlying cause.
func asAuthError(err error) error {
	var pe *Error
	if errors.As(err, &pe) && pe.Kind == KindAuth {
		return pe
	}
	status := 0
	if pe != nil {
		status = pe.Status
	}
	return &Error{Kind: KindAuth, Op: "login", Status: status, Err: err}
}

// loginLimiter allows at most max attempts inside a sliding window.
// Attempts that failed on the network are handed back.
type loginLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	attempts []time.Time
	now      func() time.Time
}

func newLoginLimiter(max int, window time.Duration, now func() time.Time) *loginLimiter {
	if max <= 0 {
		max = 3
	}
	if window <= 0 {
		window = 5 * time.Second
	}
	return &loginLimiter{max: max, window: window, now: now}
}

func (l *loginLimiter) take() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.attempts[:0]
	for _, t := range l.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.attempts = kept
	if len(l.attempts) >= l.max {
		return false
	}
	l.attempts = append(l.attempts, now)
	return true
}

func (l *loginLimiter) refund() {
	l.mu.Lock()
	if n := len(l.attempts); n > 0 {
		l.attempts = l.attempts[:n-1]
	}
	l.mu.Unlock()
}

func (l *loginLimiter) reset() {
	l.mu.Lock()
	l.attempts = nil
	l.mu.Unlock()
}
