//go:build !integration

package panel

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// fakePanel is an httptest-backed panel with per-endpoint handlers and counters.
type fakePanel struct {
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	fp := &fakePanel{
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]int{},
	}
	fp.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"response":{"accessToken":"token-1"}}`)
	})
	fp.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		fp.mu.Lock()
		fp.calls[key]++
		h, ok := fp.handlers[key]
		fp.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakePanel) handle(key string, h http.HandlerFunc) {
	fp.mu.Lock()
	fp.handlers[key] = h
	fp.mu.Unlock()
}

func (fp *fakePanel) count(key string) int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.calls[key]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:          baseURL,
		Username:         "admin",
		Password:         "secret",
		InboundTag:       "Steal",
		SubscriptionURL:  "https://sub.example.com/",
		TokenTTL:         time.Hour,
		RequestDelay:     time.Millisecond,
		MaxRetries:       3,
		RetryBaseDelay:   time.Millisecond,
		LoginMaxAttempts: 3,
		LoginCooldown:    5 * time.Second,
	}
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	logger := zerolog.New(io.Discard)
	c := newClient(opts, &http.Client{Timeout: 5 * time.Second}, &logger)
	t.Cleanup(c.Close)
	return c
}

// --- Error classification ---

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusNotFound, KindNotFound},
		{http.StatusInternalServerError, KindServer},
		{http.StatusServiceUnavailable, KindServer},
		{http.StatusConflict, KindAPI},
	}
	for _, tc := range cases {
		got := Classify("op", &http.Response{StatusCode: tc.status}, []byte(`{"message":"boom"}`), nil)
		if got.Kind != tc.want {
			t.Errorf("status %d: expected %s, got %s", tc.status, tc.want, got.Kind)
		}
		if got.Status != tc.status {
			t.Errorf("status %d: expected status to be carried, got %d", tc.status, got.Status)
		}
	}

	t.Run("should keep validation details", func(t *testing.T) {
		body := []byte(`{"message":"bad","errors":[{"path":"username"}]}`)
		got := Classify("create_user", &http.Response{StatusCode: 400}, body, nil)
		if string(got.Details) != string(body) {
			t.Errorf("expected details to be the upstream body, got %s", got.Details)
		}
	})

	t.Run("should separate transport failures from request failures", func(t *testing.T) {
		cases := []struct {
			name string
			err  error
			want Kind
		}{
			{"refused", &url.Error{Op: "Post", URL: "http://panel", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}, KindNetwork},
			{"dns", &url.Error{Op: "Get", URL: "http://panel", Err: &net.DNSError{Err: "no such host", Name: "panel"}}, KindNetwork},
			{"eof", &url.Error{Op: "Get", URL: "http://panel", Err: io.EOF}, KindNetwork},
			{"bad scheme", &url.Error{Op: "Get", URL: "ftp://panel", Err: errors.New(`unsupported protocol scheme "ftp"`)}, KindAPI},
			{"certificate", &url.Error{Op: "Get", URL: "https://panel", Err: x509.UnknownAuthorityError{}}, KindAPI},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got := Classify("op", nil, nil, tc.err)
				if got.Kind != tc.want {
					t.Errorf("Kind = %s, want %s", got.Kind, tc.want)
				}
				if got.Retryable() != (tc.want == KindNetwork) {
					t.Errorf("Retryable = %v for %s", got.Retryable(), got.Kind)
				}
			})
		}
	})

	t.Run("should not retry an untrusted certificate", func(t *testing.T) {
		// --- Arrange ---
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		// --- Act ---
		_, err := http.Get(srv.URL)

		// --- Assert ---
		if err == nil {
			t.Fatal("expected a certificate error")
		}
		if got := Classify("status", nil, nil, err); got.Kind == KindNetwork {
			t.Errorf("expected a non-network kind, got %s (%v)", got.Kind, err)
		}
	})

	t.Run("should treat timeouts as network errors", func(t *testing.T) {
		got := Classify("op", nil, nil, context.DeadlineExceeded)
		if got.Kind != KindNetwork || !got.Retryable() {
			t.Errorf("expected retryable network error, got %s", got.Kind)
		}
	})

	t.Run("should map kinds onto domain sentinels", func(t *testing.T) {
		if !errors.Is(&Error{Kind: KindNotFound}, domain.ErrNotFound) {
			t.Error("expected not found to match domain.ErrNotFound")
		}
		if errors.Is(&Error{Kind: KindAuth}, domain.ErrUnauthorized) {
			t.Error("panel auth must not match the actor permission sentinel")
		}
		if errors.Is(&Error{Kind: KindServer}, domain.ErrNotFound) {
			t.Error("expected server error not to match domain.ErrNotFound")
		}
	})
}

// --- Retry policy ---

func TestRetryPolicy(t *testing.T) {
	noSleep := func(ctx context.Context, d time.Duration) error { return nil }

	t.Run("should stop after max attempts on server errors", func(t *testing.T) {
		// --- Arrange ---
		var attempts int
		var delays []time.Duration
		p := RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, Retryable: IsRetryable,
			Sleep: func(ctx context.Context, d time.Duration) error { delays = append(delays, d); return nil }}

		// --- Act ---
		err := p.Do(context.Background(), "op", func(ctx context.Context) error {
			attempts++
			return &Error{Kind: KindServer, Status: 503}
		})

		// --- Assert ---
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
		if KindOf(err) != KindServer {
			t.Errorf("expected server error, got %v", err)
		}
		if len(delays) != 2 || delays[0] != 100*time.Millisecond || delays[1] != 200*time.Millisecond {
			t.Errorf("expected exponential backoff [100ms 200ms], got %v", delays)
		}
	})

	t.Run("should not retry auth errors", func(t *testing.T) {
		var attempts int
		p := RetryPolicy{MaxAttempts: 3, Retryable: IsRetryable, Sleep: noSleep}
		_ = p.Do(context.Background(), "op", func(ctx context.Context) error {
			attempts++
			return &Error{Kind: KindAuth, Status: 401}
		})
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("should return the value once the call succeeds", func(t *testing.T) {
		var attempts int
		p := RetryPolicy{MaxAttempts: 3, Retryable: IsRetryable, Sleep: noSleep}
		v, err := Retry(context.Background(), p, "op", func(ctx context.Context) (string, error) {
			attempts++
			if attempts < 2 {
				return "", &Error{Kind: KindNetwork}
			}
			return "ok", nil
		})
		if err != nil || v != "ok" || attempts != 2 {
			t.Errorf("expected ok after 2 attempts, got %q, %v after %d", v, err, attempts)
		}
	})
}

// --- Queue ---

func TestQueue(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("should serialize jobs with the fixed delay", func(t *testing.T) {
		// --- Arrange ---
		const delay = 40 * time.Millisecond
		q := NewQueue(delay, &logger)
		defer q.Stop()

		var inFlight, overlaps int32
		var mu sync.Mutex
		var spans [][2]time.Time
		job := func(ctx context.Context) error {
			if atomic.AddInt32(&inFlight, 1) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			start := time.Now()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			mu.Lock()
			spans = append(spans, [2]time.Time{start, time.Now()})
			mu.Unlock()
			return nil
		}

		// --- Act ---
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = q.Do(context.Background(), "job", job)
			}()
		}
		wg.Wait()

		// --- Assert ---
		if overlaps != 0 {
			t.Fatalf("expected no overlapping jobs, got %d", overlaps)
		}
		if len(spans) != 2 {
			t.Fatalf("expected 2 jobs, got %d", len(spans))
		}
		if gap := spans[1][0].Sub(spans[0][1]); gap < delay {
			t.Errorf("expected at least %v between jobs, got %v", delay, gap)
		}
	})

	t.Run("should skip jobs whose caller is gone", func(t *testing.T) {
		q := NewQueue(0, &logger)
		defer q.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ran := false
		err := q.Do(ctx, "job", func(ctx context.Context) error { ran = true; return nil })
		if err == nil || ran {
			t.Errorf("expected cancelled job to be skipped, ran=%v err=%v", ran, err)
		}
	})

	t.Run("should refuse work after stop", func(t *testing.T) {
		q := NewQueue(0, &logger)
		q.Stop()
		if err := q.Do(context.Background(), "job", func(ctx context.Context) error { return nil }); !errors.Is(err, ErrQueueClosed) {
			t.Errorf("expected ErrQueueClosed, got %v", err)
		}
	})
}

// --- Auth client ---

func TestAuthClient(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("should reuse a valid token", func(t *testing.T) {
		fp := newFakePanel(t)
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)

		for i := 0; i < 3; i++ {
			tok, err := a.GetToken(context.Background())
			if err != nil || tok != "token-1" {
				t.Fatalf("expected token-1, got %q, %v", tok, err)
			}
		}
		if n := fp.count("POST /api/auth/login"); n != 1 {
			t.Errorf("expected 1 login, got %d", n)
		}
	})

	t.Run("should log in again once the token expired", func(t *testing.T) {
		fp := newFakePanel(t)
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)
		now := time.Now()
		a.now = func() time.Time { return now }

		_, _ = a.GetToken(context.Background())
		now = now.Add(2 * time.Hour)
		_, _ = a.GetToken(context.Background())

		if n := fp.count("POST /api/auth/login"); n != 2 {
			t.Errorf("expected 2 logins, got %d", n)
		}
	})

	t.Run("should share one login among concurrent callers", func(t *testing.T) {
		fp := newFakePanel(t)
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = a.GetToken(context.Background())
			}()
		}
		wg.Wait()
		if n := fp.count("POST /api/auth/login"); n != 1 {
			t.Errorf("expected 1 login, got %d", n)
		}
	})

	t.Run("should fail fast on bad credentials", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"invalid credentials"}`)
		})
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)

		_, err := a.GetToken(context.Background())
		if KindOf(err) != KindAuth {
			t.Errorf("expected auth error, got %v", err)
		}
		if n := fp.count("POST /api/auth/login"); n != 1 {
			t.Errorf("expected 1 attempt, got %d", n)
		}
	})

	t.Run("should treat a missing token as malformed", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"response":{}}`)
		})
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)

		if _, err := a.GetToken(context.Background()); err == nil {
			t.Fatal("expected error, got nil")
		}
		if n := fp.count("POST /api/auth/login"); n != 1 {
			t.Errorf("expected malformed response not to be retried, got %d attempts", n)
		}
	})

	t.Run("should throttle logins inside the cool-down window", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadGateway, `{}`)
		})
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)

		_, _ = a.GetToken(context.Background())
		_, err := a.GetToken(context.Background())

		if KindOf(err) != KindAuth {
			t.Errorf("expected throttled auth error, got %v", err)
		}
		if n := fp.count("POST /api/auth/login"); n != 3 {
			t.Errorf("expected 3 upstream attempts in total, got %d", n)
		}
	})

	t.Run("should send the cookie header", func(t *testing.T) {
		fp := newFakePanel(t)
		var cookie atomic.Value
		fp.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			cookie.Store(r.Header.Get("Cookie"))
			writeJSON(w, http.StatusOK, `{"response":{"accessToken":"t"}}`)
		})
		opts := testOptions(fp.srv.URL)
		opts.Cookie = "session=abc"
		a := NewAuthClient(opts, fp.srv.Client(), &logger)

		_, _ = a.GetToken(context.Background())
		if got, _ := cookie.Load().(string); got != "session=abc" {
			t.Errorf("expected cookie to be forwarded, got %q", got)
		}
	})

	t.Run("should not cache past the jwt expiry", func(t *testing.T) {
		exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		fp := newFakePanel(t)
		fp.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			b, _ := json.Marshal(map[string]any{"response": map[string]string{"accessToken": signed}})
			writeJSON(w, http.StatusOK, string(b))
		})
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)

		_, _ = a.GetToken(context.Background())
		if !a.expiresAt.Equal(exp) {
			t.Errorf("expected expiry %v, got %v", exp, a.expiresAt)
		}
	})

	t.Run("should report panel reachability", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusForbidden, `{}`)
		})
		a := NewAuthClient(testOptions(fp.srv.URL), fp.srv.Client(), &logger)
		if !a.TestConnection(context.Background()) {
			t.Error("expected 403 to count as reachable")
		}

		fp.handle("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadGateway, `{}`)
		})
		if a.TestConnection(context.Background()) {
			t.Error("expected 502 to count as unreachable")
		}
	})
}

func TestLoginLimiter(t *testing.T) {
	now := time.Now()
	l := newLoginLimiter(2, 5*time.Second, func() time.Time { return now })

	if !l.take() || !l.take() {
		t.Fatal("expected first two attempts to pass")
	}
	if l.take() {
		t.Fatal("expected third attempt to be throttled")
	}

	l.refund()
	if !l.take() {
		t.Error("expected a refunded attempt to be available again")
	}

	now = now.Add(6 * time.Second)
	if !l.take() {
		t.Error("expected the window to slide")
	}
}

// --- Provisioning client ---

func TestPickInbound(t *testing.T) {
	list := []model.Inbound{
		{UUID: "u-first", Tag: "vless-main"},
		{UUID: "u-sub", Tag: "Steal-Reality"},
		{UUID: "u-exact", Tag: "Steal"},
	}

	cases := []struct {
		name     string
		list     []model.Inbound
		fallback string
		want     string
		wantErr  bool
	}{
		{name: "exact match wins", list: list, want: "u-exact"},
		{name: "substring before first", list: list[:2], want: "u-sub"},
		{name: "first when nothing matches", list: list[:1], want: "u-first"},
		{name: "default on empty list", list: nil, fallback: "u-default", want: "u-default"},
		{name: "not found without default", list: nil, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := pickInbound(tc.list, "Steal", tc.fallback)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrNotFound) {
					t.Errorf("expected not found, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("expected %s, got %s (%v)", tc.want, got, err)
			}
		})
	}
}

func TestClient(t *testing.T) {
	t.Run("should cache the resolved inbound", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("GET /api/inbounds", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token-1" {
				writeJSON(w, http.StatusUnauthorized, `{}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"response":[{"uuid":"u-1","tag":"Steal"}]}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		for i := 0; i < 2; i++ {
			got, err := c.GetInboundUUID(context.Background())
			if err != nil || got != "u-1" {
				t.Fatalf("expected u-1, got %s (%v)", got, err)
			}
		}
		if n := fp.count("GET /api/inbounds"); n != 1 {
			t.Errorf("expected 1 inbound fetch, got %d", n)
		}
	})

	t.Run("should use the default inbound when the panel is down", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("GET /api/inbounds", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, `{}`)
		})
		opts := testOptions(fp.srv.URL)
		opts.DefaultInboundUUID = "u-default"
		c := newTestClient(t, opts)

		got, err := c.GetInboundUUID(context.Background())
		if err != nil || got != "u-default" {
			t.Errorf("expected u-default, got %s (%v)", got, err)
		}
	})

	t.Run("should derive the subscription url when absent", func(t *testing.T) {
		// --- Arrange ---
		fp := newFakePanel(t)
		var sent model.CreateUserRequest
		fp.handle("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&sent)
			writeJSON(w, http.StatusCreated, `{"response":{"uuid":"abcd1234-ef56-7890-abcd-ef1234567890","username":"tg_1_2"}}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))
		expire := time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)

		// --- Act ---
		acc, err := c.CreateUser(context.Background(), model.CreateUserRequest{
			Username: "tg_1_2", TelegramID: 1, TrafficLimitStrategy: "MONTH",
			ExpireAt: expire, Status: model.UserStatusActive, ActivateAllInbounds: true,
		})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if acc.SubscriptionURL != "https://sub.example.com/abcd1234/singbox" || !acc.SubscriptionURLDerived {
			t.Errorf("unexpected account %+v", acc)
		}
		if !sent.ExpireAt.Equal(expire) || sent.Status != "ACTIVE" || sent.TrafficLimitBytes != 0 {
			t.Errorf("unexpected request body %+v", sent)
		}
	})

	t.Run("should keep the upstream subscription url", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"response":{"uuid":"abcd1234-ef56","subscriptionUrl":"https://real/sub"}}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		acc, err := c.CreateUser(context.Background(), model.CreateUserRequest{Username: "u", ExpireAt: time.Now()})
		if err != nil || acc.SubscriptionURL != "https://real/sub" || acc.SubscriptionURLDerived {
			t.Errorf("expected upstream url, got %+v (%v)", acc, err)
		}
	})

	t.Run("should retry 503 exactly max times", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, `{"message":"maintenance"}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		_, err := c.CreateUser(context.Background(), model.CreateUserRequest{Username: "u", ExpireAt: time.Now()})

		var pe *Error
		if !errors.As(err, &pe) || pe.Kind != KindServer || pe.Status != 503 {
			t.Fatalf("expected server error 503, got %v", err)
		}
		if n := fp.count("POST /api/users"); n != 3 {
			t.Errorf("expected 3 attempts, got %d", n)
		}
	})

	t.Run("should drop the token when a data call is rejected", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		_, err := c.CreateUser(context.Background(), model.CreateUserRequest{Username: "u", ExpireAt: time.Now()})
		if KindOf(err) != KindAuth {
			t.Fatalf("expected auth error, got %v", err)
		}
		if n := fp.count("POST /api/users"); n != 1 {
			t.Errorf("expected 1 attempt, got %d", n)
		}
		_, _ = c.CreateUser(context.Background(), model.CreateUserRequest{Username: "u", ExpireAt: time.Now()})
		if n := fp.count("POST /api/auth/login"); n != 2 {
			t.Errorf("expected a new login after rejection, got %d logins", n)
		}
	})

	t.Run("should surface validation details", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("POST /api/users", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, `{"message":"username taken"}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		_, err := c.CreateUser(context.Background(), model.CreateUserRequest{Username: "u", ExpireAt: time.Now()})
		var pe *Error
		if !errors.As(err, &pe) || pe.Kind != KindValidation || !strings.Contains(string(pe.Details), "username taken") {
			t.Errorf("expected validation error with details, got %v", err)
		}
	})

	t.Run("should return an empty page when listing fails", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, `{}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		page, err := c.GetAllUsers(context.Background())
		if err != nil || page == nil || len(page.Users) != 0 {
			t.Errorf("expected empty page, got %+v (%v)", page, err)
		}
	})

	t.Run("should list users by telegram id", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("GET /api/users/tg/42", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"response":[{"uuid":"u-1","username":"tg_42_1","status":"ACTIVE"}]}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		users, err := c.GetUsersByTelegramID(context.Background(), 42)
		if err != nil || len(users) != 1 || users[0].Username != "tg_42_1" {
			t.Errorf("unexpected users %+v (%v)", users, err)
		}
	})

	t.Run("should report malformed responses without retrying", func(t *testing.T) {
		fp := newFakePanel(t)
		fp.handle("GET /api/users/tg/7", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":[]}`)
		})
		c := newTestClient(t, testOptions(fp.srv.URL))

		_, err := c.GetUsersByTelegramID(context.Background(), 7)
		if KindOf(err) != KindAPI {
			t.Errorf("expected api error, got %v", err)
		}
		if n := fp.count("GET /api/users/tg/7"); n != 1 {
			t.Errorf("expected 1 attempt, got %d", n)
		}
	})
}
