// Package blob is the high-level client for Tidal object storage: it
// initiates resumable upload sessions, opens validated download streams and
// provides file-oriented convenience operations on top of them.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/tidalstore/tidal-go/blob/credentials"
	"github.com/tidalstore/tidal-go/blob/hashes"
	"github.com/tidalstore/tidal-go/blob/protocol"
	"github.com/tidalstore/tidal-go/blob/resumable"
	"github.com/tidalstore/tidal-go/blob/stream"
)

// ErrObjectNotFound is returned when the requested object does not exist.
// It is surfaced before any stream is constructed; a zero-byte object is not
// an error.
var ErrObjectNotFound = errors.New("blob: object not found")

// ClientParams configures a Client.
type ClientParams struct {
	// APIBaseURL is the service endpoint, e.g. "https://storage.tidalstore.io/v1".
	APIBaseURL string

	// Credentials supplies the Authorization header for API calls.
	// Session URLs are self-authorizing and need no header.
	Credentials credentials.Provider

	// HTTPClient performs all requests. When nil a retrying client is
	// built with retryhttp.NewClient.
	HTTPClient *retryablehttp.Client

	// Logger receives debug traces. When nil a default logger is used.
	Logger log.Logger
}

// Client talks to the Tidal API. Safe for concurrent use; the streams it
// hands out are not.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	creds      credentials.Provider
	logger     log.Logger
}

// NewClient validates params and builds a client.
func NewClient(params ClientParams) (*Client, error) {
	if params.APIBaseURL == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}
	logger := params.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = retryhttp.NewClient(logger)
	}
	creds := params.Credentials
	if creds == nil {
		creds = credentials.Static("")
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    params.APIBaseURL,
		creds:      creds,
		logger:     logger,
	}, nil
}

// UploadOptions configures one streaming upload.
type UploadOptions struct {
	Bucket string
	Object string

	ContentType     string
	ContentEncoding string

	// DisableCRC32C and DisableMD5 select which integrity checks run on
	// the uploaded bytes.
	DisableCRC32C bool
	DisableMD5    bool

	// MaxBufferSize caps the writer's pending buffer; rounded up to the
	// chunk quantum.
	MaxBufferSize int
}

// NewWriter initiates a resumable upload session and returns a streaming
// writer over it. The writer must be closed to commit the object; abandoning
// it leaves the server-side session resumable via its session id.
func (c *Client) NewWriter(ctx context.Context, opts UploadOptions) (*stream.Writer, error) {
	sessionURL, err := c.initiateSession(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("initiate upload session: %w", err)
	}
	c.logger.Debugf("Upload session: %s", sessionURL)

	session := resumable.NewHTTPSession(ctx, resumable.HTTPSessionParams{
		Client:     c.httpClient,
		SessionURL: sessionURL,
	})
	return stream.NewWriter(stream.WriterParams{
		Session:       resumable.NewLoggingSession(session, c.logger),
		Validator:     hashes.New(hashes.Options{DisableCRC32C: opts.DisableCRC32C, DisableMD5: opts.DisableMD5}),
		MaxBufferSize: opts.MaxBufferSize,
	}), nil
}

// ResumeWriter rehydrates an interrupted upload from a persisted session
// URL. The server is queried for the commit point before any data is sent.
// Hash validation is disabled: the bytes committed by the earlier attempt
// are not available to re-digest.
func (c *Client) ResumeWriter(ctx context.Context, sessionURL string, opts UploadOptions) (*stream.Writer, error) {
	session := resumable.NewHTTPSession(ctx, resumable.HTTPSessionParams{
		Client:     c.httpClient,
		SessionURL: sessionURL,
	})
	if _, err := session.Reset(); err != nil {
		return nil, fmt.Errorf("reset upload session: %w", err)
	}
	c.logger.Debugf("Resumed upload session at byte %d", session.NextExpectedByte())

	return stream.NewWriter(stream.WriterParams{
		Session:       resumable.NewLoggingSession(session, c.logger),
		Validator:     hashes.NewNull(),
		MaxBufferSize: opts.MaxBufferSize,
	}), nil
}

// initiateSession performs the uploadType=resumable POST and returns the
// session URL from the Location header.
func (c *Client) initiateSession(ctx context.Context, opts UploadOptions) (string, error) {
	meta := map[string]string{"name": opts.Object}
	if opts.ContentType != "" {
		meta["contentType"] = opts.ContentType
	}
	if opts.ContentEncoding != "" {
		meta["contentEncoding"] = opts.ContentEncoding
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	initiateURL := fmt.Sprintf("%s/b/%s/o?uploadType=resumable&name=%s",
		c.baseURL, url.PathEscape(opts.Bucket), url.QueryEscape(opts.Object))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, initiateURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if err := c.authorize(ctx, req); err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return "", protocol.APIErrorFromResponse(resp)
	}
	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", fmt.Errorf("no session URL in response")
	}
	return sessionURL, nil
}

// ReadOptions configures one streaming download.
type ReadOptions struct {
	Bucket string
	Object string

	// Offset and Length select a byte range. Length zero means "to the
	// end". Ranged reads skip hash validation: a digest over the full
	// object cannot be checked against a partial read.
	Offset int64
	Length int64

	DisableCRC32C bool
	DisableMD5    bool
}

// NewReader opens a validated download stream. A missing object returns
// ErrObjectNotFound; a zero-byte object returns a valid empty stream.
func (c *Client) NewReader(ctx context.Context, opts ReadOptions) (*stream.Reader, error) {
	mediaURL := fmt.Sprintf("%s/b/%s/o/%s?alt=media",
		c.baseURL, url.PathEscape(opts.Bucket), url.PathEscape(opts.Object))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	ranged := opts.Offset > 0 || opts.Length > 0
	if ranged {
		if opts.Length > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", opts.Offset, opts.Offset+opts.Length-1))
		} else {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", opts.Offset))
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode >= 300 {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, protocol.APIErrorFromResponse(resp)
	}

	validator := hashes.New(hashes.Options{DisableCRC32C: opts.DisableCRC32C, DisableMD5: opts.DisableMD5})
	if ranged {
		validator = hashes.NewNull()
	}
	return stream.NewReader(stream.ReaderParams{
		Source:    stream.NewHTTPReadSource(resp),
		Validator: validator,
	}), nil
}

func (c *Client) authorize(ctx context.Context, req *retryablehttp.Request) error {
	header, err := c.creds.AuthorizationHeader(ctx)
	if err != nil {
		return fmt.Errorf("authorize request: %w", err)
	}
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return nil
}
