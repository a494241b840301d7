package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadChunkRequest_RangeHeader(t *testing.T) {
	tests := []struct {
		name    string
		request UploadChunkRequest
		want    string
	}{
		{
			name:    "first chunk",
			request: NewUploadChunkRequest("url", 0, make([]byte, ChunkSizeQuantum)),
			want:    "bytes 0-262143/*",
		},
		{
			name:    "chunk at offset",
			request: NewUploadChunkRequest("url", ChunkSizeQuantum, make([]byte, 2*ChunkSizeQuantum)),
			want:    "bytes 262144-786431/*",
		},
		{
			name:    "final chunk",
			request: NewUploadFinalChunkRequest("url", ChunkSizeQuantum, make([]byte, 100), ChunkSizeQuantum+100),
			want:    "bytes 262144-262243/262244",
		},
		{
			name:    "empty final chunk",
			request: NewUploadFinalChunkRequest("url", ChunkSizeQuantum, nil, ChunkSizeQuantum),
			want:    "bytes */262144",
		},
		{
			name:    "zero byte object",
			request: NewUploadFinalChunkRequest("url", 0, nil, 0),
			want:    "bytes */0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.request.RangeHeader())
		})
	}
}

func TestQueryUploadRequest_RangeHeader(t *testing.T) {
	request := QueryUploadRequest{SessionURL: "url"}
	assert.Equal(t, "bytes */*", request.RangeHeader())
}

func TestParseUploadResponse(t *testing.T) {
	tests := []struct {
		name string
		env  ResponseEnvelope
		want UploadResponse
	}{
		{
			name: "chunk accepted",
			env: ResponseEnvelope{
				StatusCode: StatusResumeIncomplete,
				Headers:    map[string]string{"Range": "bytes=0-262143"},
			},
			want: UploadResponse{LastCommittedByte: 262143},
		},
		{
			name: "session url reissued",
			env: ResponseEnvelope{
				StatusCode: StatusResumeIncomplete,
				Headers: map[string]string{
					"Range":    "bytes=0-524287",
					"Location": "https://storage.example.com/upload/session-2",
				},
			},
			want: UploadResponse{
				SessionURL:        "https://storage.example.com/upload/session-2",
				LastCommittedByte: 524287,
			},
		},
		{
			name: "nothing committed yet",
			env: ResponseEnvelope{
				StatusCode: StatusResumeIncomplete,
				Headers:    map[string]string{},
			},
			want: UploadResponse{LastCommittedByte: 0},
		},
		{
			name: "finalized upload carries payload",
			env: ResponseEnvelope{
				StatusCode: 200,
				Payload:    []byte(`{"name":"object"}`),
			},
			want: UploadResponse{Payload: `{"name":"object"}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUploadResponse(tt.env)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func Test_parseRangeHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  uint64
	}{
		{name: "committed range", value: "bytes=0-262143", want: 262143},
		{name: "single byte", value: "bytes=0-0", want: 0},
		{name: "missing header", value: "", want: 0},
		{name: "wrong unit", value: "chunks=0-100", want: 0},
		{name: "malformed range", value: "bytes=100", want: 0},
		{name: "non numeric end", value: "bytes=0-abc", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRangeHeader(tt.value))
		})
	}
}
