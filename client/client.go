// Package client provides an HTTP client that signs every request with a
// DCI credential and retries transient failures.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/vitalvas/dciauth/dcisig"
)

// ErrNoBaseURL is returned by New when Config.BaseURL is empty.
var ErrNoBaseURL = errors.New("client: base URL must not be empty")

// Config configures a Client.
type Config struct {
	// BaseURL is the scheme and host requests are sent to. Required.
	BaseURL string

	// Credential signs every request.
	Credential dcisig.Credential

	// Signer defaults to dcisig.NewSigner(dcisig.SignerConfig{}).
	Signer *dcisig.Signer

	// Base is the transport used after signing. Defaults to a clone of
	// http.DefaultTransport.
	Base http.RoundTripper

	// RetryMax is the number of retries after the first attempt.
	RetryMax int

	// RetryWaitMin and RetryWaitMax bound the backoff between attempts.
	// Zero keeps the retryablehttp defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Timeout bounds a single attempt. Zero means no timeout.
	Timeout time.Duration

	// Logger receives retry and request logs. Defaults to a logger that
	// discards everything.
	Logger logrus.FieldLogger
}

// Client sends signed requests to a DCI API.
type Client struct {
	base   *url.URL
	http   *retryablehttp.Client
	logger logrus.FieldLogger
}

// New creates a Client. Every attempt, retries included, goes through a
// dcisig.Transport and is signed with a fresh timestamp.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("client: base URL: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Transport: dcisig.NewTransport(cfg.Base, dcisig.TransportConfig{
			Signer:     cfg.Signer,
			Credential: cfg.Credential,
		}),
		Timeout: cfg.Timeout,
	}
	rc.Logger = leveledLogger{logger: logger}
	rc.RetryMax = cfg.RetryMax

	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}

	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}

	return &Client{base: base, http: rc, logger: logger}, nil
}

// Do sends method endpoint?params with payload as a JSON body. The body is
// encoded exactly as it is signed, so the server can verify it verbatim.
// An empty payload sends no body.
func (c *Client) Do(ctx context.Context, method dcisig.Method, endpoint string, params url.Values, payload map[string]any) (*http.Response, error) {
	m, err := dcisig.ParseMethod(string(method))
	if err != nil {
		return nil, err
	}

	body, err := dcisig.CanonicalPayload(payload, "")
	if err != nil {
		return nil, err
	}

	target := c.base.ResolveReference(&url.URL{Path: endpoint, RawQuery: dcisig.CanonicalQuery(params)})

	var raw any
	if body != "" {
		raw = []byte(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, string(m), target.String(), raw)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.WithFields(logrus.Fields{
		"method":   m,
		"endpoint": endpoint,
	}).Debug("sending signed request")

	return c.http.Do(req)
}

// StandardClient returns an *http.Client that signs and retries.
func (c *Client) StandardClient() *http.Client {
	return c.http.StandardClient()
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger logrus.FieldLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.logger.WithFields(fields(keysAndValues)).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.logger.WithFields(fields(keysAndValues)).Info(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.WithFields(fields(keysAndValues)).Warn(msg)
}

func fields(keysAndValues []any) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}

		f[key] = keysAndValues[i+1]
	}

	return f
}
