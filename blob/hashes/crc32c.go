package hashes

import (
	"encoding/base64"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"strings"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C validates a stream against its CRC32C (Castagnoli) checksum, encoded
// as the base64 of the big-endian 32-bit value.
type CRC32C struct {
	hash     hash.Hash32
	received string
	finished bool
}

// NewCRC32C returns a CRC32C validator.
func NewCRC32C() *CRC32C {
	return &CRC32C{hash: crc32.New(castagnoli)}
}

// Update ...
func (v *CRC32C) Update(p []byte) {
	if v.finished {
		panic("hashes: Update called after Finish")
	}
	_, _ = v.hash.Write(p)
}

// ProcessHeader picks the crc32c entry out of a hash header value.
func (v *CRC32C) ProcessHeader(name, value string) {
	if !strings.EqualFold(name, HashHeader) {
		return
	}
	if encoded, ok := hashHeaderEntry(value, "crc32c"); ok {
		v.received = encoded
	}
}

// ProcessMetadata ...
func (v *CRC32C) ProcessMetadata(meta *protocol.ObjectMetadata) {
	if meta != nil && meta.CRC32C != "" {
		v.received = meta.CRC32C
	}
}

// Finish ...
func (v *CRC32C) Finish() Result {
	v.finished = true
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], v.hash.Sum32())
	computed := base64.StdEncoding.EncodeToString(sum[:])
	return Result{
		IsMismatch: v.received != "" && v.received != computed,
		Computed:   computed,
		Received:   v.received,
	}
}

// hashHeaderEntry extracts the value of one "<algorithm>=<base64>" entry from
// a comma-separated hash header value. Base64 payloads may themselves contain
// '=' padding, so only the first '=' separates the algorithm name.
func hashHeaderEntry(value, algorithm string) (string, bool) {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		idx := strings.Index(entry, "=")
		if idx < 0 {
			continue
		}
		if strings.EqualFold(entry[:idx], algorithm) {
			return entry[idx+1:], true
		}
	}
	return "", false
}
