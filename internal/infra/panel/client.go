package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var (
	_ adapter.Provisioner  = (*Client)(nil)
	_ adapter.HealthProber = (*Client)(nil)
)

// Options configures both panel clients.
type Options struct {
	BaseURL            string
	Username           string
	Password           string
	Cookie             string
	InboundTag         string
	DefaultInboundUUID string
	SubscriptionURL    string

	TokenTTL         time.Duration
	RequestDelay     time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	LoginMaxAttempts int
	LoginCooldown    time.Duration
}

func OptionsFromConfig(c config.PanelConfig) Options {
	return Options{
		BaseURL:            strings.TrimRight(c.URL, "/"),
		Username:           c.Username,
		Password:           c.Password,
		Cookie:             c.Cookie,
		InboundTag:         c.InboundTag,
		DefaultInboundUUID: c.DefaultInboundUUID,
		SubscriptionURL:    c.SubscriptionURL,
		TokenTTL:           c.TokenTTL,
		RequestDelay:       c.RequestDelay,
		MaxRetries:         c.MaxRetries,
		RetryBaseDelay:     c.RetryBaseDelay,
		LoginMaxAttempts:   c.LoginMaxAttempts,
		LoginCooldown:      c.LoginCooldown,
	}
}

// envelope is the {response: ...} wrapper every panel endpoint uses.
type envelope[T any] struct {
	Response *T `json:"response"`
}

// Client is the provisioning client. Every public call goes through the
// request queue, so the panel never sees more than one request at a time.
type Client struct {
	opts  Options
	http  *http.Client
	auth  *AuthClient
	queue *Queue
	retry RetryPolicy
	log   *zerolog.Logger

	inboundMu   sync.Mutex
	inboundUUID string
}

func NewClient(opts Options, log *zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return newClient(opts, httpClient, log)
}

func newClient(opts Options, httpClient *http.Client, log *zerolog.Logger) *Client {
	l := log.With().Str("component", "panel").Logger()
	return &Client{
		opts:  opts,
		http:  httpClient,
		auth:  NewAuthClient(opts, httpClient, log),
		queue: NewQueue(opts.RequestDelay, log),
		retry: NewRetryPolicy(opts.MaxRetries, opts.RetryBaseDelay, &l),
		log:   &l,
	}
}

func (c *Client) Auth() *AuthClient { return c.auth }

// Close stops the request queue.
func (c *Client) Close() { c.queue.Stop() }

// TestConnection queues a status probe.
func (c *Client) TestConnection(ctx context.Context) bool {
	ok, err := Submit(ctx, c.queue, "status", func(ctx context.Context) (bool, error) {
		return c.auth.TestConnection(ctx), nil
	})
	return err == nil && ok
}

// call performs one authenticated request and decodes the response envelope
// into out. A rejected token is dropped so the next attempt logs in again.
func (c *Client) call(ctx context.Context, op, method, path string, timeout time.Duration, in, out any) error {
	token, err := c.auth.GetToken(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindValidation, Op: op, Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return Classify(op, nil, nil, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.Cookie != "" {
		req.Header.Set("Cookie", c.opts.Cookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		perr := Classify(op, nil, nil, err)
		metrics.ObservePanelRequest(op, perr.Kind.String(), time.Since(start))
		return perr
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		perr := Classify(op, nil, nil, err)
		metrics.ObservePanelRequest(op, perr.Kind.String(), time.Since(start))
		return perr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := Classify(op, resp, raw, nil)
		metrics.ObservePanelRequest(op, perr.Kind.String(), time.Since(start))
		if perr.Kind == KindAuth {
			c.auth.Invalidate()
		}
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("details", string(perr.Details)).Msg("panel call rejected")
		return perr
	}
	metrics.ObservePanelRequest(op, "ok", time.Since(start))

	if err := json.Unmarshal(raw, out); err != nil {
		return malformed(op, err)
	}
	return nil
}

// fetch wraps call in the retry policy and the request queue.
func fetch[T any](ctx context.Context, c *Client, op, method, path string, timeout time.Duration, in any) (*T, error) {
	return Submit(ctx, c.queue, op, func(ctx context.Context) (*T, error) {
		return Retry(ctx, c.retry, op, func(ctx context.Context) (*T, error) {
			var env envelope[T]
			if err := c.call(ctx, op, method, path, timeout, in, &env); err != nil {
				return nil, err
			}
			if env.Response == nil {
				return nil, malformed(op, errors.New("missing response field"))
			}
			return env.Response, nil
		})
	})
}
