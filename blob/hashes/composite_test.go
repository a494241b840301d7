package hashes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

func TestComposite_allMatching(t *testing.T) {
	v := NewComposite(NewCRC32C(), NewMD5())
	v.Update([]byte("123456789"))
	v.ProcessHeader(HashHeader, "crc32c="+crc32cOf123456789+",md5="+md5Of123456789)

	result := v.Finish()
	require.False(t, result.IsMismatch)
	assert.Equal(t, crc32cOf123456789+", "+md5Of123456789, result.Computed)
	assert.Equal(t, crc32cOf123456789+", "+md5Of123456789, result.Received)
}

func TestComposite_firstMismatchWins(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		wantComputed string
		wantReceived string
	}{
		{
			name:         "crc32c mismatch reported first",
			header:       "crc32c=AAAAAA==,md5=BBBBBBBBBBBBBBBBBBBBBB==",
			wantComputed: crc32cOf123456789,
			wantReceived: "AAAAAA==",
		},
		{
			name:         "md5 mismatch alone",
			header:       "crc32c=" + crc32cOf123456789 + ",md5=BBBBBBBBBBBBBBBBBBBBBB==",
			wantComputed: md5Of123456789,
			wantReceived: "BBBBBBBBBBBBBBBBBBBBBB==",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewComposite(NewCRC32C(), NewMD5())
			v.Update([]byte("123456789"))
			v.ProcessHeader(HashHeader, tt.header)

			result := v.Finish()
			require.True(t, result.IsMismatch)
			assert.Equal(t, tt.wantComputed, result.Computed)
			assert.Equal(t, tt.wantReceived, result.Received)
		})
	}
}

func TestComposite_metadataFansOut(t *testing.T) {
	v := NewComposite(NewCRC32C(), NewMD5())
	v.Update([]byte("123456789"))
	v.ProcessMetadata(&protocol.ObjectMetadata{
		CRC32C:  crc32cOf123456789,
		MD5Hash: md5Of123456789,
	})

	result := v.Finish()
	assert.False(t, result.IsMismatch)
	assert.Equal(t, crc32cOf123456789+", "+md5Of123456789, result.Received)
}
