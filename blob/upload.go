package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/docker/go-units"
	"github.com/klauspost/compress/zstd"

	"github.com/tidalstore/tidal-go/blob/protocol"
)

// UploadParams describes one file upload.
type UploadParams struct {
	Bucket     string
	Object     string
	SourcePath string

	ContentType string
	// Compress transcodes the payload with zstd; the object is stored
	// with Content-Encoding "zstd" and its hashes cover the compressed
	// bytes, which is what travels on the wire.
	Compress bool

	DisableCRC32C bool
	DisableMD5    bool
	MaxBufferSize int
}

// UploadFile streams a local file into an object and returns the committed
// object's metadata.
func (c *Client) UploadFile(ctx context.Context, params UploadParams) (*protocol.ObjectMetadata, error) {
	file, err := os.Open(params.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			c.logger.Errorf("failed to close file: %s", err)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	c.logger.Debugf("Uploading %s (%s) to %s/%s",
		params.SourcePath, units.HumanSize(float64(info.Size())), params.Bucket, params.Object)

	opts := UploadOptions{
		Bucket:        params.Bucket,
		Object:        params.Object,
		ContentType:   params.ContentType,
		DisableCRC32C: params.DisableCRC32C,
		DisableMD5:    params.DisableMD5,
		MaxBufferSize: params.MaxBufferSize,
	}
	if params.Compress {
		opts.ContentEncoding = "zstd"
	}

	writer, err := c.NewWriter(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := copyPayload(writer, file, params.Compress); err != nil {
		// A final-chunk call is still owed to the session, but the
		// stream is broken; leave the session resumable and report.
		return nil, fmt.Errorf("upload payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}
	return writer.Metadata(), nil
}

func copyPayload(dst io.Writer, src io.Reader, compress bool) error {
	if !compress {
		_, err := io.Copy(dst, src)
		return err
	}
	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// GlobUploadParams describes a bulk upload of local files selected by glob
// patterns.
type GlobUploadParams struct {
	Bucket string
	// ObjectPrefix is prepended to each file's slash-separated relative
	// path to form the object name.
	ObjectPrefix string
	// Patterns are doublestar globs, e.g. "build/**/*.tar".
	Patterns []string

	Compress      bool
	DisableCRC32C bool
	DisableMD5    bool
}

// UploadGlob uploads every file matched by the patterns and returns the
// committed metadata in upload order.
func (c *Client) UploadGlob(ctx context.Context, params GlobUploadParams) ([]*protocol.ObjectMetadata, error) {
	var paths []string
	seen := map[string]bool{}
	for _, pattern := range params.Patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files matched the provided patterns")
	}
	c.logger.Debugf("Uploading %d files", len(paths))

	var uploaded []*protocol.ObjectMetadata
	for _, path := range paths {
		object := params.ObjectPrefix + filepath.ToSlash(path)
		object = strings.TrimLeft(object, "/")
		meta, err := c.UploadFile(ctx, UploadParams{
			Bucket:        params.Bucket,
			Object:        object,
			SourcePath:    path,
			Compress:      params.Compress,
			DisableCRC32C: params.DisableCRC32C,
			DisableMD5:    params.DisableMD5,
		})
		if err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", path, err)
		}
		uploaded = append(uploaded, meta)
	}
	return uploaded, nil
}
