package stream

import (
	"fmt"
	"io"

	"github.com/tidalstore/tidal-go/blob/hashes"
	"github.com/tidalstore/tidal-go/blob/protocol"
)

type readerState int

const (
	readerOpen readerState = iota
	readerEOF
	readerError
)

// Reader streams an object's payload from a ReadSource, validating its
// digest incrementally. When the source is exhausted the validator's verdict
// is checked: a mismatch surfaces as *HashMismatchError, distinct from the
// ordinary io.EOF. Not safe for concurrent use.
type Reader struct {
	source    ReadSource
	validator hashes.Validator

	buf     []byte
	off     int
	headers map[string]string

	state  readerState
	err    error
	result *hashes.Result
}

// ReaderParams configures a Reader.
type ReaderParams struct {
	Source ReadSource
	// Validator may be nil, in which case no validation is performed.
	Validator hashes.Validator
}

// NewReader creates a reader over params.Source. A source that is already
// closed (an empty object, or a request that correctly represents "no
// content") yields a valid, checksum-validated, empty stream.
func NewReader(params ReaderParams) *Reader {
	v := params.Validator
	if v == nil {
		v = hashes.NewNull()
	}
	return &Reader{
		source:    params.Source,
		validator: v,
		headers:   map[string]string{},
	}
}

// NewErrorReader creates a reader that reports err on every read. It stands
// in for a download that failed before any stream could be opened.
func NewErrorReader(err error) *Reader {
	return &Reader{
		source:    &errorReadSource{err: err},
		validator: hashes.NewNull(),
		headers:   map[string]string{},
		state:     readerError,
		err:       err,
	}
}

// Read implements io.Reader. After the final byte it returns io.EOF only if
// the stream's digest checks out; otherwise it returns *HashMismatchError.
// Any error is cached and returned from all subsequent reads.
func (r *Reader) Read(p []byte) (int, error) {
	switch r.state {
	case readerError:
		return 0, r.err
	case readerEOF:
		return 0, io.EOF
	}

	if r.off >= len(r.buf) {
		if err := r.refill(); err != nil {
			return 0, err
		}
		if r.state == readerEOF {
			return 0, io.EOF
		}
	}

	n := copy(p, r.buf[r.off:])
	r.off += n
	return n, nil
}

// refill requests the next buffer from the source, or runs the end-of-stream
// validation when the source has nothing left.
func (r *Reader) refill() error {
	if !r.source.IsOpen() {
		// No object was ever opened, or the previous refill drained the
		// body. Either way this is the genuine end of the stream.
		return r.finishValidation()
	}

	env, err := r.source.Read()
	if err != nil {
		return r.fail(fmt.Errorf("read object: %w", err))
	}

	// Digest headers may arrive before all payload bytes are read.
	for name, value := range env.Headers {
		r.validator.ProcessHeader(name, value)
		r.headers[name] = value
	}

	if env.StatusCode >= 300 {
		return r.fail(protocol.NewAPIError(env))
	}

	if len(env.Payload) > 0 {
		r.validator.Update(env.Payload)
		r.buf = env.Payload
		r.off = 0
		return nil
	}

	return r.finishValidation()
}

func (r *Reader) finishValidation() error {
	result := r.validator.Finish()
	r.result = &result
	if result.IsMismatch {
		r.state = readerError
		r.err = &HashMismatchError{Computed: result.Computed, Received: result.Received}
		return r.err
	}
	r.state = readerEOF
	r.buf = nil
	r.off = 0
	return nil
}

func (r *Reader) fail(err error) error {
	r.state = readerError
	r.err = err
	return err
}

// Close closes the underlying source. A close failure is reported both as
// the return value and through the reader's cached error.
func (r *Reader) Close() error {
	if err := r.source.Close(); err != nil {
		if r.state != readerError {
			r.fail(fmt.Errorf("close object source: %w", err))
		}
		return err
	}
	return nil
}

// Headers returns the response headers observed so far.
func (r *Reader) Headers() map[string]string { return r.headers }

// HashResult returns the validation verdict, or nil before end-of-stream.
func (r *Reader) HashResult() *hashes.Result { return r.result }
