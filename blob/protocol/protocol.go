// Package protocol contains the wire-level value objects of the Tidal object
// storage HTTP API: chunk upload requests, upload session responses and the
// normalized shape of every HTTP interaction.
package protocol

import (
	"strings"
)

// ChunkSizeQuantum is the size granularity mandated by the resumable upload
// protocol. Every non-final chunk must have a length that is an exact multiple
// of this value.
const ChunkSizeQuantum = 256 * 1024

// StatusResumeIncomplete is returned by the upload session URL after a
// successful non-final chunk. The committed range is carried in the Range
// response header.
const StatusResumeIncomplete = 308

// RoundUpToQuantum rounds size up to the nearest multiple of ChunkSizeQuantum.
func RoundUpToQuantum(size int) int {
	if size%ChunkSizeQuantum == 0 {
		return size
	}
	n := size / ChunkSizeQuantum
	return (n + 1) * ChunkSizeQuantum
}

// ResponseEnvelope is the normalized shape of an HTTP interaction with the
// service: a status code, the payload bytes and the response headers.
type ResponseEnvelope struct {
	StatusCode int
	Payload    []byte
	Headers    map[string]string
}

// HeaderValue performs a case-insensitive header lookup in an envelope's
// header map. Returns "" when the header is absent.
func HeaderValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
