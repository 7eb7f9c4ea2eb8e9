// Package pinata implements a minimal client for the Pinata IPFS pinning API.
//
// The core hands completed chunk files and manifests to this client as opaque
// blobs; pinning knows nothing about chunk semantics.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the production Pinata API endpoint.
const DefaultBaseURL = "https://api.pinata.cloud"

// Common errors.
var (
	ErrUnauthorized = errors.New("pinata: unauthorized")
	ErrServerError  = errors.New("pinata: server error")
)

// Options configures the Pinata client.
type Options struct {
	// APIKey and APISecret authenticate requests. Required.
	APIKey    string
	APISecret string

	// BaseURL overrides the API endpoint, mainly for tests.
	// Default: DefaultBaseURL
	BaseURL string

	// Timeout for individual requests.
	// Default: 2m (pin uploads can be large)
	Timeout time.Duration

	// RetryAttempts is the maximum number of retry attempts.
	// Default: 3
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 1s
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration
}

// OptionsFromEnv builds Options from the PINATA_API_KEY and PINATA_API_SECRET
// environment variables.
func OptionsFromEnv() (Options, error) {
	key := os.Getenv("PINATA_API_KEY")
	if key == "" {
		return Options{}, errors.New("pinata: PINATA_API_KEY not set")
	}
	secret := os.Getenv("PINATA_API_SECRET")
	if secret == "" {
		return Options{}, errors.New("pinata: PINATA_API_SECRET not set")
	}
	return Options{APIKey: key, APISecret: secret}, nil
}

// PinResponse is the API response for a successful pin.
type PinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Client is a Pinata API client with retry support.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new Pinata client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.RetryMaxBackoff == 0 {
		opts.RetryMaxBackoff = 30 * time.Second
	}

	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// TestAuthentication verifies the configured credentials against the API.
func (c *Client) TestAuthentication(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.opts.BaseURL+"/data/testAuthentication", nil)
		if err != nil {
			return fmt.Errorf("pinata: create request: %w", err)
		}
		c.auth(req)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: %s", ErrServerError, resp.Status)
			continue
		default:
			return fmt.Errorf("pinata: unexpected status %s", resp.Status)
		}
	}

	return fmt.Errorf("pinata: authentication failed after %d attempts: %w",
		c.opts.RetryAttempts+1, lastErr)
}

// PinFile uploads one blob to the pinning endpoint under the given name and
// returns the pin response. The reader is consumed fully; for retry support
// the caller passes a fresh reader per call, so PinFile itself retries only
// by re-reading a buffered copy.
func (c *Client) PinFile(ctx context.Context, r io.Reader, name string) (*PinResponse, error) {
	// Buffer the multipart body once so retries don't re-consume r.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("pinata: create form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("pinata: read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("pinata: close form: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.opts.BaseURL+"/pinning/pinFileToIPFS", bytes.NewReader(body.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("pinata: create request: %w", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		c.auth(req)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %s", ErrServerError, resp.Status)
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("pinata: pin %s: %s: %s", name, resp.Status, bytes.TrimSpace(msg))
		}

		var pr PinResponse
		err = json.NewDecoder(resp.Body).Decode(&pr)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("pinata: decode response: %w", err)
		}
		return &pr, nil
	}

	return nil, fmt.Errorf("pinata: pin %s failed after %d attempts: %w",
		name, c.opts.RetryAttempts+1, lastErr)
}

func (c *Client) auth(req *http.Request) {
	req.Header.Set("pinata_api_key", c.opts.APIKey)
	req.Header.Set("pinata_secret_api_key", c.opts.APISecret)
}

// backoff waits with exponential backoff and jitter before a retry.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	d := c.opts.RetryBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.opts.RetryMaxBackoff {
			d = c.opts.RetryMaxBackoff
			break
		}
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
