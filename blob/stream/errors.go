package stream

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when writing to a writer that was already closed.
var ErrClosed = errors.New("stream: writer is closed")

// HashMismatchError reports that the digest computed over a stream does not
// match the value advertised by the service. It is deliberately distinct from
// ordinary I/O errors: the caller should re-download or re-upload the object
// rather than retry the transport call.
type HashMismatchError struct {
	Computed string
	Received string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("stream: mismatched hashes, computed=%s, received=%s", e.Computed, e.Received)
}
