// Package resumable implements the client side of Tidal's resumable upload
// session protocol. A session tracks the server-acknowledged commit point
// (the next expected byte) and the session URL, which the server may reissue
// during an upload.
package resumable

import (
	"github.com/tidalstore/tidal-go/blob/protocol"
)

// UploadSession is the wire-protocol abstraction for one resumable upload.
// Implementations update their internal state only after a successful call;
// a failed call leaves the session unchanged so the caller can retry or
// query status via Reset.
type UploadSession interface {
	// UploadChunk sends p as a non-final chunk. len(p) must be a positive
	// multiple of protocol.ChunkSizeQuantum; the session does not re-chunk.
	UploadChunk(p []byte) (*protocol.UploadResponse, error)

	// UploadFinalChunk sends the last (possibly empty) chunk together with
	// the authoritative total object size. On success the session is
	// finalized and the response payload carries the object metadata.
	UploadFinalChunk(p []byte, uploadSize uint64) (*protocol.UploadResponse, error)

	// Reset queries the server for the current commit point without
	// sending data. This is the recovery mechanism after an ambiguous
	// failure, such as a connection dropped mid-chunk.
	Reset() (*protocol.UploadResponse, error)

	// NextExpectedByte is the offset of the first byte the server has not
	// committed, reflecting the latest successful call.
	NextExpectedByte() uint64

	// SessionID identifies the session; it may change over the session's
	// life when the server reissues URLs.
	SessionID() string
}
