package hashes

import (
	"crypto/md5"
	"encoding/base64"
	"hash"
	"strings"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

// MD5 validates a stream against its MD5 digest, encoded as base64.
type MD5 struct {
	hash     hash.Hash
	received string
	finished bool
}

// NewMD5 returns an MD5 validator.
func NewMD5() *MD5 {
	return &MD5{hash: md5.New()}
}

// Update ...
func (v *MD5) Update(p []byte) {
	if v.finished {
		panic("hashes: Update called after Finish")
	}
	_, _ = v.hash.Write(p)
}

// ProcessHeader picks the md5 entry out of a hash header value.
func (v *MD5) ProcessHeader(name, value string) {
	if !strings.EqualFold(name, HashHeader) {
		return
	}
	if encoded, ok := hashHeaderEntry(value, "md5"); ok {
		v.received = encoded
	}
}

// ProcessMetadata ...
func (v *MD5) ProcessMetadata(meta *protocol.ObjectMetadata) {
	if meta != nil && meta.MD5Hash != "" {
		v.received = meta.MD5Hash
	}
}

// Finish ...
func (v *MD5) Finish() Result {
	v.finished = true
	computed := base64.StdEncoding.EncodeToString(v.hash.Sum(nil))
	return Result{
		IsMismatch: v.received != "" && v.received != computed,
		Computed:   computed,
		Received:   v.received,
	}
}
