package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ObjectMetadata is the subset of the object resource this library consumes:
// identity, size and the server-computed hashes used for upload validation.
type ObjectMetadata struct {
	Name        string    `json:"name"`
	Bucket      string    `json:"bucket"`
	Generation  int64     `json:"generation,string"`
	Size        int64     `json:"size,string"`
	ContentType string    `json:"contentType"`
	CRC32C      string    `json:"crc32c"`
	MD5Hash     string    `json:"md5Hash"`
	Updated     time.Time `json:"updated"`
}

// ParseObjectMetadata decodes the object resource JSON returned when an
// upload is finalized or an object is stat'ed.
func ParseObjectMetadata(payload []byte) (*ObjectMetadata, error) {
	var meta ObjectMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("parse object metadata: %w", err)
	}
	return &meta, nil
}
