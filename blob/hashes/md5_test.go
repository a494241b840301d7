package hashes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

const md5Of123456789 = "JfnnlDI7RTiF9RgfG2JNCw=="

func TestMD5_computed(t *testing.T) {
	v := NewMD5()
	v.Update([]byte("12345"))
	v.Update([]byte("6789"))

	assert.Equal(t, md5Of123456789, v.Finish().Computed)
}

func TestMD5_Finish(t *testing.T) {
	tests := []struct {
		name         string
		received     string
		wantMismatch bool
	}{
		{
			name:         "matching digest",
			received:     md5Of123456789,
			wantMismatch: false,
		},
		{
			name:         "mismatching digest",
			received:     "AAAAAAAAAAAAAAAAAAAAAA==",
			wantMismatch: true,
		},
		{
			name:         "no received value is not a mismatch",
			received:     "",
			wantMismatch: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMD5()
			v.Update([]byte("123456789"))
			if tt.received != "" {
				v.ProcessHeader(HashHeader, "md5="+tt.received)
			}

			result := v.Finish()
			assert.Equal(t, tt.wantMismatch, result.IsMismatch)
			assert.Equal(t, md5Of123456789, result.Computed)
		})
	}
}

func TestMD5_ProcessMetadata(t *testing.T) {
	v := NewMD5()
	v.Update([]byte("123456789"))
	v.ProcessMetadata(&protocol.ObjectMetadata{MD5Hash: md5Of123456789})

	result := v.Finish()
	require.False(t, result.IsMismatch)
	assert.Equal(t, md5Of123456789, result.Received)
}

func TestMD5_updateAfterFinishPanics(t *testing.T) {
	v := NewMD5()
	v.Finish()

	require.Panics(t, func() {
		v.Update([]byte("more"))
	})
}
