package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// UploadChunkRequest describes one chunk sent to a resumable upload session
// URL. Non-final chunks advertise an unknown total size ("*"); the final chunk
// carries the authoritative total.
type UploadChunkRequest struct {
	SessionURL string
	RangeBegin uint64
	Payload    []byte
	UploadSize uint64
	LastChunk  bool
}

// NewUploadChunkRequest creates a non-final chunk request. The payload length
// must be a multiple of ChunkSizeQuantum; the session does not re-chunk.
func NewUploadChunkRequest(sessionURL string, rangeBegin uint64, payload []byte) UploadChunkRequest {
	return UploadChunkRequest{
		SessionURL: sessionURL,
		RangeBegin: rangeBegin,
		Payload:    payload,
	}
}

// NewUploadFinalChunkRequest creates the request that commits the upload.
// The payload may be empty; uploadSize is the total object size.
func NewUploadFinalChunkRequest(sessionURL string, rangeBegin uint64, payload []byte, uploadSize uint64) UploadChunkRequest {
	return UploadChunkRequest{
		SessionURL: sessionURL,
		RangeBegin: rangeBegin,
		Payload:    payload,
		UploadSize: uploadSize,
		LastChunk:  true,
	}
}

// RangeEnd returns the offset of the last byte in the payload.
func (r UploadChunkRequest) RangeEnd() uint64 {
	return r.RangeBegin + uint64(len(r.Payload)) - 1
}

// RangeHeader renders the Content-Range value for this chunk:
// "bytes {begin}-{end}/*" for non-final chunks, "bytes {begin}-{end}/{total}"
// for the final chunk, and "bytes */{total}" for an empty final chunk.
func (r UploadChunkRequest) RangeHeader() string {
	if len(r.Payload) == 0 {
		// An empty final chunk finalizes an upload whose bytes are all
		// committed already.
		return fmt.Sprintf("bytes */%d", r.UploadSize)
	}
	if r.LastChunk {
		return fmt.Sprintf("bytes %d-%d/%d", r.RangeBegin, r.RangeEnd(), r.UploadSize)
	}
	return fmt.Sprintf("bytes %d-%d/*", r.RangeBegin, r.RangeEnd())
}

// QueryUploadRequest asks a session URL for its current commit point without
// sending data.
type QueryUploadRequest struct {
	SessionURL string
}

// RangeHeader renders the Content-Range value for a status query.
func (r QueryUploadRequest) RangeHeader() string {
	return "bytes */*"
}

// UploadResponse is the parsed result of a chunk upload or a status query.
type UploadResponse struct {
	// SessionURL is non-empty when the server (re)issued a session URL.
	SessionURL string
	// LastCommittedByte is the offset of the last byte the server has
	// durably committed. Zero is overloaded to mean "nothing committed".
	LastCommittedByte uint64
	// Payload is the response body; for a finalized upload it contains the
	// object metadata JSON.
	Payload string
}

// ParseUploadResponse extracts the session URL and committed range from a
// response envelope. A missing or malformed Range header yields a committed
// byte of zero, the protocol's encoding for "nothing committed yet".
func ParseUploadResponse(env ResponseEnvelope) *UploadResponse {
	return &UploadResponse{
		SessionURL:        HeaderValue(env.Headers, "Location"),
		LastCommittedByte: parseRangeHeader(HeaderValue(env.Headers, "Range")),
		Payload:           string(env.Payload),
	}
}

// parseRangeHeader extracts N from a "bytes=0-N" committed-range header.
func parseRangeHeader(value string) uint64 {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "bytes=") {
		return 0
	}
	parts := strings.SplitN(strings.TrimPrefix(value, "bytes="), "-", 2)
	if len(parts) != 2 {
		return 0
	}
	last, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	return last
}
