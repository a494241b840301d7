package hashes

import (
	"strings"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

// Composite fans bytes, headers and metadata out to several validators. The
// verdict is a mismatch if any child reports one; the Computed/Received pair
// of the first mismatching child (in construction order) is reported, so the
// outcome is deterministic when multiple checks fail.
type Composite struct {
	children []Validator
}

// NewComposite combines validators; order fixes mismatch reporting priority.
func NewComposite(children ...Validator) *Composite {
	return &Composite{children: children}
}

// Update ...
func (v *Composite) Update(p []byte) {
	for _, c := range v.children {
		c.Update(p)
	}
}

// ProcessHeader ...
func (v *Composite) ProcessHeader(name, value string) {
	for _, c := range v.children {
		c.ProcessHeader(name, value)
	}
}

// ProcessMetadata ...
func (v *Composite) ProcessMetadata(meta *protocol.ObjectMetadata) {
	for _, c := range v.children {
		c.ProcessMetadata(meta)
	}
}

// Finish ...
func (v *Composite) Finish() Result {
	var computed, received []string
	for _, c := range v.children {
		r := c.Finish()
		if r.IsMismatch {
			return r
		}
		computed = append(computed, r.Computed)
		received = append(received, r.Received)
	}
	return Result{
		Computed: strings.Join(computed, ", "),
		Received: strings.Join(received, ", "),
	}
}
