package stream

import (
	"fmt"

	"github.com/tidalstore/tidal-go/blob/hashes"
	"github.com/tidalstore/tidal-go/blob/protocol"
	"github.com/tidalstore/tidal-go/blob/resumable"
)

// Writer buffers application writes into quantum-aligned chunks and flushes
// them through a resumable upload session. Every non-final network call sends
// an exact multiple of protocol.ChunkSizeQuantum; the remainder is carried
// forward and committed by Close. Not safe for concurrent use.
type Writer struct {
	session   resumable.UploadSession
	validator hashes.Validator
	maxBuffer int

	pending      []byte
	lastResponse *protocol.UploadResponse
	meta         *protocol.ObjectMetadata
	result       *hashes.Result

	closed   bool
	err      error
	closeErr error
}

// WriterParams configures a Writer.
type WriterParams struct {
	Session resumable.UploadSession
	// Validator may be nil, in which case no validation is performed.
	Validator hashes.Validator
	// MaxBufferSize caps the pending buffer; it is rounded up to the
	// nearest quantum multiple. Zero means one quantum.
	MaxBufferSize int
}

// NewWriter creates a writer over params.Session.
func NewWriter(params WriterParams) *Writer {
	v := params.Validator
	if v == nil {
		v = hashes.NewNull()
	}
	size := params.MaxBufferSize
	if size <= 0 {
		size = protocol.ChunkSizeQuantum
	}
	return &Writer{
		session:   params.Session,
		validator: v,
		maxBuffer: protocol.RoundUpToQuantum(size),
	}
}

// Write implements io.Writer. Once the pending buffer reaches the configured
// cap, all complete quanta are flushed; the remainder stays buffered in
// write order. After a failed flush the writer is unusable and every call
// returns the cached error.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.closed {
		return 0, ErrClosed
	}

	w.pending = append(w.pending, p...)
	if len(w.pending) >= w.maxBuffer {
		if err := w.flush(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush pushes any buffered data that forms complete quanta. It never sends
// a partial quantum; that is Close's job.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	return w.flush()
}

func (w *Writer) flush() error {
	chunkSize := (len(w.pending) / protocol.ChunkSizeQuantum) * protocol.ChunkSizeQuantum
	if chunkSize == 0 {
		return nil
	}

	chunk := w.pending[:chunkSize]
	// The validator sees exactly the transmitted ranges, in transmission
	// order, so the computed digest matches what the server received.
	w.validator.Update(chunk)

	resp, err := w.session.UploadChunk(chunk)
	if err != nil {
		w.err = fmt.Errorf("flush chunk: %w", err)
		return w.err
	}
	w.lastResponse = resp

	remainder := make([]byte, len(w.pending)-chunkSize)
	copy(remainder, w.pending[chunkSize:])
	w.pending = remainder
	return nil
}

// Close commits the upload with a final chunk. The final chunk is sent even
// when the remainder is empty, so zero-byte uploads and streams ending
// exactly on a quantum boundary still finalize the session. The total size
// is computed from server-acknowledged progress, which keeps it correct
// across retries and resumption. Closing an already-closed writer returns
// the cached result without further I/O.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return w.closeErr
	}

	uploadSize := w.session.NextExpectedByte() + uint64(len(w.pending))
	w.validator.Update(w.pending)

	resp, err := w.session.UploadFinalChunk(w.pending, uploadSize)
	if err != nil {
		w.err = fmt.Errorf("upload final chunk: %w", err)
		return w.err
	}
	w.closed = true
	w.pending = nil
	w.lastResponse = resp

	if resp.Payload != "" {
		if meta, err := protocol.ParseObjectMetadata([]byte(resp.Payload)); err == nil {
			w.meta = meta
			w.validator.ProcessMetadata(meta)
		}
	}

	result := w.validator.Finish()
	w.result = &result
	if result.IsMismatch {
		w.closeErr = &HashMismatchError{Computed: result.Computed, Received: result.Received}
	}
	return w.closeErr
}

// LastResponse returns the response of the most recent successful session
// call, or nil before the first flush.
func (w *Writer) LastResponse() *protocol.UploadResponse { return w.lastResponse }

// Metadata returns the object metadata reported when the upload finalized,
// or nil before Close.
func (w *Writer) Metadata() *protocol.ObjectMetadata { return w.meta }

// HashResult returns the validation verdict, or nil before Close.
func (w *Writer) HashResult() *hashes.Result { return w.result }
