package stream

import (
	"errors"
	"io"
	"net/http"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

// defaultReadSize is how many payload bytes an HTTP read source pulls from
// the response body per refill.
const defaultReadSize = 128 * 1024

// ReadSource yields the payload of one object download, one buffer at a
// time, together with the response status and headers.
type ReadSource interface {
	// IsOpen reports whether more payload may still arrive. Once false,
	// the stream has reached its genuine end.
	IsOpen() bool

	// Read returns the next buffer of payload bytes. An envelope with an
	// empty payload signals end-of-stream.
	Read() (protocol.ResponseEnvelope, error)

	// Close releases the underlying transport resources.
	Close() error
}

// HTTPReadSource adapts an object media GET response into a ReadSource.
type HTTPReadSource struct {
	resp     *http.Response
	readSize int
	open     bool
}

// NewHTTPReadSource wraps resp; the caller keeps ownership of nothing, the
// source closes the body on Close.
func NewHTTPReadSource(resp *http.Response) *HTTPReadSource {
	return &HTTPReadSource{resp: resp, readSize: defaultReadSize, open: true}
}

// IsOpen ...
func (s *HTTPReadSource) IsOpen() bool { return s.open }

// Read pulls up to readSize bytes from the response body. Response headers
// are attached to every envelope so digest headers are seen regardless of
// when the caller starts reading.
func (s *HTTPReadSource) Read() (protocol.ResponseEnvelope, error) {
	env := protocol.ResponseEnvelope{
		StatusCode: s.resp.StatusCode,
		Headers:    flattenHeaders(s.resp.Header),
	}
	if !s.open {
		return env, nil
	}

	buf := make([]byte, s.readSize)
	n, err := io.ReadFull(s.resp.Body, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// Short read means the body is exhausted; the next refill takes
		// the end-of-stream path.
		s.open = false
	default:
		return protocol.ResponseEnvelope{}, err
	}
	env.Payload = buf[:n]
	return env, nil
}

// Close ...
func (s *HTTPReadSource) Close() error {
	s.open = false
	return s.resp.Body.Close()
}

// errorReadSource represents a download that could never be opened. It is
// permanently closed; the owning reader surfaces the stored error instead of
// reading.
type errorReadSource struct {
	err error
}

func (s *errorReadSource) IsOpen() bool { return false }

func (s *errorReadSource) Read() (protocol.ResponseEnvelope, error) {
	return protocol.ResponseEnvelope{}, s.err
}

func (s *errorReadSource) Close() error { return nil }

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k := range h {
		headers[k] = h.Get(k)
	}
	return headers
}
