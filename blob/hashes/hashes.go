// Package hashes implements incremental integrity validation for object
// streams. A Validator accumulates a running digest over the bytes of a
// stream, learns the server-advertised value from response headers (downloads)
// or object metadata (uploads), and reports a verdict exactly once.
package hashes

import (
	"github.com/tidalstore/tidal-go/blob/protocol"
)

// HashHeader is the response header carrying server-computed digests. Its
// value is a comma-separated list of "<algorithm>=<base64>" entries.
const HashHeader = "X-Tidal-Hash"

// Result is the final verdict of a validator.
type Result struct {
	IsMismatch bool
	Computed   string
	Received   string
}

// Validator computes a running digest over a byte stream and compares it with
// the value advertised by the service. A validator is single-use: after
// Finish it must not be fed more data.
type Validator interface {
	// Update feeds the next range of stream bytes into the running digest.
	Update(p []byte)

	// ProcessHeader lets the validator learn the expected digest from a
	// response header. Used on the download path; headers may arrive
	// before all payload bytes do.
	ProcessHeader(name, value string)

	// ProcessMetadata lets the validator learn the expected digest from
	// object metadata. Used on the upload path once the final chunk
	// commits.
	ProcessMetadata(meta *protocol.ObjectMetadata)

	// Finish consumes the validator and returns the verdict. Calling
	// Update after Finish is a programming error and panics.
	Finish() Result
}

// Null is a validator that performs no validation and never reports a
// mismatch. Used when checksumming is disabled or inapplicable, for example
// on ranged reads or error placeholder streams.
type Null struct{}

// NewNull returns a no-op validator.
func NewNull() *Null { return &Null{} }

// Update ...
func (*Null) Update([]byte) {}

// ProcessHeader ...
func (*Null) ProcessHeader(string, string) {}

// ProcessMetadata ...
func (*Null) ProcessMetadata(*protocol.ObjectMetadata) {}

// Finish ...
func (*Null) Finish() Result { return Result{} }

// Options selects which checks a stream performs.
type Options struct {
	DisableCRC32C bool
	DisableMD5    bool
}

// New builds the validator configured by opts. With both checks enabled the
// result is a composite that reports the first mismatching pair in a fixed
// order: CRC32C first, then MD5.
func New(opts Options) Validator {
	switch {
	case opts.DisableCRC32C && opts.DisableMD5:
		return NewNull()
	case opts.DisableMD5:
		return NewCRC32C()
	case opts.DisableCRC32C:
		return NewMD5()
	default:
		return NewComposite(NewCRC32C(), NewMD5())
	}
}
