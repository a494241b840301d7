package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidalstore/tidal-go/blob/hashes"
	"github.com/tidalstore/tidal-go/blob/protocol"
)

type fakeSession struct {
	chunks       [][]byte
	finalChunk   []byte
	finalSize    uint64
	finalized    bool
	finalCalls   int
	finalPayload string
	nextExpected uint64
	chunkErr     error
	finalErr     error
}

func (s *fakeSession) UploadChunk(p []byte) (*protocol.UploadResponse, error) {
	if s.chunkErr != nil {
		return nil, s.chunkErr
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	s.chunks = append(s.chunks, chunk)
	s.nextExpected += uint64(len(p))
	return &protocol.UploadResponse{LastCommittedByte: s.nextExpected - 1}, nil
}

func (s *fakeSession) UploadFinalChunk(p []byte, uploadSize uint64) (*protocol.UploadResponse, error) {
	s.finalCalls++
	if s.finalErr != nil {
		return nil, s.finalErr
	}
	s.finalChunk = make([]byte, len(p))
	copy(s.finalChunk, p)
	s.finalSize = uploadSize
	s.finalized = true
	s.nextExpected += uint64(len(p))
	return &protocol.UploadResponse{Payload: s.finalPayload}, nil
}

func (s *fakeSession) Reset() (*protocol.UploadResponse, error) {
	return &protocol.UploadResponse{}, nil
}

func (s *fakeSession) NextExpectedByte() uint64 { return s.nextExpected }

func (s *fakeSession) SessionID() string { return "fake-session" }

func (s *fakeSession) received() []byte {
	var all []byte
	for _, chunk := range s.chunks {
		all = append(all, chunk...)
	}
	return append(all, s.finalChunk...)
}

func TestWriter_smallWritesStayBuffered(t *testing.T) {
	session := &fakeSession{}
	writer := NewWriter(WriterParams{Session: session})

	n, err := writer.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Empty(t, session.chunks)

	require.NoError(t, writer.Close())
	assert.Equal(t, []byte("hello"), session.finalChunk)
	assert.Equal(t, uint64(5), session.finalSize)
}

func TestWriter_flushesWholeQuantaOnly(t *testing.T) {
	session := &fakeSession{}
	writer := NewWriter(WriterParams{Session: session})

	payload := bytes.Repeat([]byte("x"), protocol.ChunkSizeQuantum+5)
	_, err := writer.Write(payload)
	require.NoError(t, err)

	require.Len(t, session.chunks, 1)
	assert.Len(t, session.chunks[0], protocol.ChunkSizeQuantum)

	require.NoError(t, writer.Close())
	assert.Len(t, session.finalChunk, 5)
	assert.Equal(t, uint64(protocol.ChunkSizeQuantum+5), session.finalSize)
	assert.Equal(t, payload, session.received())
}

func TestWriter_byteAtATimeMatchesBulkWrite(t *testing.T) {
	payload := bytes.Repeat([]byte("abcde"), protocol.ChunkSizeQuantum/2)

	bulk := &fakeSession{}
	bulkWriter := NewWriter(WriterParams{Session: bulk})
	_, err := bulkWriter.Write(payload)
	require.NoError(t, err)
	require.NoError(t, bulkWriter.Close())

	single := &fakeSession{}
	singleWriter := NewWriter(WriterParams{Session: single})
	for _, b := range payload {
		_, err := singleWriter.Write([]byte{b})
		require.NoError(t, err)
	}
	require.NoError(t, singleWriter.Close())

	for _, session := range []*fakeSession{bulk, single} {
		for _, chunk := range session.chunks {
			assert.Zero(t, len(chunk)%protocol.ChunkSizeQuantum)
		}
		assert.Equal(t, payload, session.received())
		assert.Equal(t, uint64(len(payload)), session.finalSize)
	}
}

func TestWriter_emptyUpload(t *testing.T) {
	session := &fakeSession{}
	writer := NewWriter(WriterParams{Session: session})

	require.NoError(t, writer.Close())
	assert.True(t, session.finalized)
	assert.Empty(t, session.finalChunk)
	assert.Equal(t, uint64(0), session.finalSize)
}

func TestWriter_quantumBoundaryEndsWithEmptyFinalChunk(t *testing.T) {
	session := &fakeSession{}
	writer := NewWriter(WriterParams{Session: session})

	_, err := writer.Write(bytes.Repeat([]byte("x"), protocol.ChunkSizeQuantum))
	require.NoError(t, err)
	require.Len(t, session.chunks, 1)

	require.NoError(t, writer.Close())
	assert.True(t, session.finalized)
	assert.Empty(t, session.finalChunk)
	assert.Equal(t, uint64(protocol.ChunkSizeQuantum), session.finalSize)
}

func TestWriter_largerBufferDelaysFlush(t *testing.T) {
	session := &fakeSession{}
	writer := NewWriter(WriterParams{
		Session:       session,
		MaxBufferSize: 3 * protocol.ChunkSizeQuantum,
	})

	_, err := writer.Write(bytes.Repeat([]byte("x"), 2*protocol.ChunkSizeQuantum))
	require.NoError(t, err)
	assert.Empty(t, session.chunks)

	_, err = writer.Write(bytes.Repeat([]byte("x"), protocol.ChunkSizeQuantum))
	require.NoError(t, err)
	require.Len(t, session.chunks, 1)
	assert.Len(t, session.chunks[0], 3*protocol.ChunkSizeQuantum)
}

func TestWriter_failedFlushIsSticky(t *testing.T) {
	session := &fakeSession{chunkErr: errors.New("connection reset")}
	writer := NewWriter(WriterParams{Session: session})

	_, err := writer.Write(bytes.Repeat([]byte("x"), protocol.ChunkSizeQuantum))
	require.Error(t, err)

	_, writeErr := writer.Write([]byte("more"))
	assert.Equal(t, err, writeErr)
	assert.Equal(t, err, writer.Flush())
	assert.Equal(t, err, writer.Close())
	assert.False(t, session.finalized)
}

func TestWriter_writeAfterClose(t *testing.T) {
	session := &fakeSession{}
	writer := NewWriter(WriterParams{Session: session})
	require.NoError(t, writer.Close())

	_, err := writer.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, writer.Flush(), ErrClosed)
	assert.NoError(t, writer.Close())
	assert.Equal(t, 1, session.finalCalls)
}

func TestWriter_hashValidation(t *testing.T) {
	tests := []struct {
		name         string
		metadata     string
		wantMismatch bool
	}{
		{
			name:         "matching checksum",
			metadata:     `{"name":"object","crc32c":"4waSgw=="}`,
			wantMismatch: false,
		},
		{
			name:         "mismatching checksum",
			metadata:     `{"name":"object","crc32c":"AAAAAA=="}`,
			wantMismatch: true,
		},
		{
			name:         "no checksum in metadata",
			metadata:     `{"name":"object"}`,
			wantMismatch: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{finalPayload: tt.metadata}
			writer := NewWriter(WriterParams{
				Session:   session,
				Validator: hashes.NewCRC32C(),
			})

			_, err := writer.Write([]byte("123456789"))
			require.NoError(t, err)

			closeErr := writer.Close()
			if !tt.wantMismatch {
				require.NoError(t, closeErr)
				assert.Equal(t, "object", writer.Metadata().Name)
				return
			}

			var mismatch *HashMismatchError
			require.True(t, errors.As(closeErr, &mismatch))
			assert.Equal(t, "4waSgw==", mismatch.Computed)
			assert.Equal(t, "AAAAAA==", mismatch.Received)

			// The verdict is cached, closing again must not re-finalize.
			assert.Equal(t, closeErr, writer.Close())
			assert.Equal(t, 1, session.finalCalls)
		})
	}
}
