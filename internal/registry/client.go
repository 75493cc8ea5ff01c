package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/factorio-modupdate/internal/config"
	"github.com/oshokin/factorio-modupdate/internal/domain/mod"
	"github.com/oshokin/factorio-modupdate/internal/version"
)

// DownloadChunkSize is the buffer size used to stream archives to disk.
const DownloadChunkSize = 8192

var (
	// ErrNoReleases is returned when the portal knows the mod but lists no releases.
	ErrNoReleases = errors.New("no releases found")
	// ErrUnexpectedStatus matches every *StatusError.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// errTokenRequired is returned when the client is built without credentials.
	errTokenRequired = errors.New("token must be provided")
	// errNameRequired is returned for an empty mod name.
	errNameRequired = errors.New("mod name must be provided")
	// errBadDownloadURL is returned for a release whose download path is not portal-relative.
	errBadDownloadURL = errors.New("download url must be an absolute path")
)

// StatusError reports a non-200 response from the portal.
type StatusError struct {
	// URL is the requested address.
	URL string
	// StatusCode is the HTTP status code returned.
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// fullResponse is the part of /api/mods/{name}/full used here.
type fullResponse struct {
	Releases []mod.Release `json:"releases"`
}

// Client talks to the Factorio mod portal.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client
	// baseURL is the portal root without a trailing slash.
	baseURL string
	// token is sent as a bearer credential on every request.
	token string

	// callTimeout limits a whole call including the body. Zero means no limit.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL points the client at another portal, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets a limit for every call. Non-positive values keep calls unbounded.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// New creates a portal client authenticated with token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		httpClient: http.DefaultClient,
		baseURL:    config.DefaultPortalURL,
		token:      token,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// LatestRelease returns the last release listed by the portal for the mod.
// The portal lists releases oldest first, so the last element is treated as latest.
func (c *Client) LatestRelease(ctx context.Context, name string) (*mod.Release, error) {
	if name == "" {
		return nil, errNameRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.get(callCtx, c.baseURL+"/api/mods/"+url.PathEscape(name)+"/full")
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var payload fullResponse
	if err = json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode releases of %s: %w", name, err)
	}

	if len(payload.Releases) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoReleases)
	}

	latest := payload.Releases[len(payload.Releases)-1]

	return &latest, nil
}

// Download streams the release archive into w in DownloadChunkSize chunks
// and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, release mod.Release, w io.Writer) (int64, error) {
	if !strings.HasPrefix(release.DownloadURL, "/") {
		return 0, fmt.Errorf("%q: %w", release.DownloadURL, errBadDownloadURL)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.get(callCtx, c.baseURL+release.DownloadURL)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var (
		written int64
		buffer  = make([]byte, DownloadChunkSize)
	)

	for {
		n, readErr := response.Body.Read(buffer)
		if n > 0 {
			if _, err = w.Write(buffer[:n]); err != nil {
				return written, fmt.Errorf("write %s: %w", release.FileName, err)
			}

			written += int64(n)
		}

		if errors.Is(readErr, io.EOF) {
			return written, nil
		}

		if readErr != nil {
			return written, fmt.Errorf("read %s: %w", release.FileName, readErr)
		}
	}
}

// get performs an authenticated GET and fails on any status other than 200.
// The caller closes the body of a successful response.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", version.UserAgent())

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, &StatusError{URL: target, StatusCode: response.StatusCode}
	}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
