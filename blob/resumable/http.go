package resumable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

// invocationIDHeader correlates all requests of one upload attempt in the
// service's logs.
const invocationIDHeader = "X-Tidal-Invocation-Id"

// HTTPSessionParams configures a session talking to a live session URL.
type HTTPSessionParams struct {
	// Client performs the requests. Its retry policy governs transport
	// retries; the session itself never retries.
	Client *retryablehttp.Client

	// SessionURL is the URL issued when the upload was initiated, or a
	// persisted URL when rehydrating an interrupted upload.
	SessionURL string

	// NextExpectedByte seeds the commit cursor when rehydrating. Leave
	// zero for a fresh session; call Reset to reconcile with the server.
	NextExpectedByte uint64
}

// HTTPSession is the HTTP-backed UploadSession. Not safe for concurrent use;
// one upload stream drives one session.
type HTTPSession struct {
	ctx          context.Context
	client       *retryablehttp.Client
	sessionURL   string
	nextExpected uint64
	invocationID string
}

// NewHTTPSession creates a session bound to ctx for the lifetime of the
// upload.
func NewHTTPSession(ctx context.Context, params HTTPSessionParams) *HTTPSession {
	return &HTTPSession{
		ctx:          ctx,
		client:       params.Client,
		sessionURL:   params.SessionURL,
		nextExpected: params.NextExpectedByte,
		invocationID: uuid.NewString(),
	}
}

// UploadChunk ...
func (s *HTTPSession) UploadChunk(p []byte) (*protocol.UploadResponse, error) {
	req := protocol.NewUploadChunkRequest(s.sessionURL, s.nextExpected, p)
	resp, err := s.put(req.RangeHeader(), p)
	if err != nil {
		return nil, fmt.Errorf("upload chunk: %w", err)
	}
	s.update(resp)
	return resp, nil
}

// UploadFinalChunk ...
func (s *HTTPSession) UploadFinalChunk(p []byte, uploadSize uint64) (*protocol.UploadResponse, error) {
	req := protocol.NewUploadFinalChunkRequest(s.sessionURL, s.nextExpected, p, uploadSize)
	resp, err := s.put(req.RangeHeader(), p)
	if err != nil {
		return nil, fmt.Errorf("upload final chunk: %w", err)
	}
	s.update(resp)
	return resp, nil
}

// Reset ...
func (s *HTTPSession) Reset() (*protocol.UploadResponse, error) {
	req := protocol.QueryUploadRequest{SessionURL: s.sessionURL}
	resp, err := s.put(req.RangeHeader(), nil)
	if err != nil {
		return nil, fmt.Errorf("query upload session: %w", err)
	}
	s.update(resp)
	return resp, nil
}

// NextExpectedByte ...
func (s *HTTPSession) NextExpectedByte() uint64 { return s.nextExpected }

// SessionID returns the current session URL; the server may reissue it.
func (s *HTTPSession) SessionID() string { return s.sessionURL }

// put sends one request to the session URL and normalizes the response.
// State is never mutated here; update runs only after a success.
func (s *HTTPSession) put(rangeHeader string, body []byte) (*protocol.UploadResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(s.ctx, http.MethodPut, s.sessionURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Range", rangeHeader)
	req.Header.Set(invocationIDHeader, s.invocationID)
	req.ContentLength = int64(len(body))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	env := protocol.ResponseEnvelope{
		StatusCode: resp.StatusCode,
		Payload:    payload,
		Headers:    flattenHeaders(resp.Header),
	}
	// 308 on the session URL means "chunk accepted, upload incomplete"
	// and carries the committed range; everything else >= 300 is an error.
	if env.StatusCode >= 300 && env.StatusCode != protocol.StatusResumeIncomplete {
		return nil, protocol.NewAPIError(env)
	}
	return protocol.ParseUploadResponse(env), nil
}

// update applies a successful response to the session state. A committed
// byte of zero means nothing is committed yet, so the next expected byte
// stays at the start of the object.
func (s *HTTPSession) update(resp *protocol.UploadResponse) {
	if resp.LastCommittedByte == 0 {
		s.nextExpected = 0
	} else {
		s.nextExpected = resp.LastCommittedByte + 1
	}
	if resp.SessionURL != "" {
		s.sessionURL = resp.SessionURL
	}
}

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k := range h {
		headers[k] = h.Get(k)
	}
	return headers
}
