package config

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/filedownloader"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

const fileScheme = "file://"

// FileProvider resolves a credentials source to readable content. The source
// is either a local path using the `file://` scheme or a remote URL, in which
// case the file is fetched with automatic retries.
type FileProvider interface {
	// LocalPath returns a local filesystem path for the given source,
	// downloading remote sources to a temporary directory first.
	LocalPath(ctx context.Context, path string) (string, error)

	// Contents returns a streaming reader for the source. The caller is
	// responsible for closing it.
	Contents(ctx context.Context, srcPath string) (io.ReadCloser, error)
}

type fileProvider struct {
	downloader   filedownloader.Downloader
	fileManager  fileutil.FileManager
	pathProvider pathutil.PathProvider
	pathModifier pathutil.PathModifier
}

// NewFileProvider ...
func NewFileProvider(downloader filedownloader.Downloader, fileManager fileutil.FileManager, pathProvider pathutil.PathProvider, pathModifier pathutil.PathModifier) FileProvider {
	return &fileProvider{
		downloader:   downloader,
		fileManager:  fileManager,
		pathProvider: pathProvider,
		pathModifier: pathModifier,
	}
}

// NewDefaultFileProvider builds a provider with the default downloader and
// filesystem helpers.
func NewDefaultFileProvider(logger log.Logger) FileProvider {
	return NewFileProvider(
		filedownloader.NewDownloader(logger),
		fileutil.NewFileManager(),
		pathutil.NewPathProvider(),
		pathutil.NewPathModifier(),
	)
}

// LocalPath ...
func (f *fileProvider) LocalPath(ctx context.Context, path string) (string, error) {
	if strings.HasPrefix(path, fileScheme) {
		return f.trimmedFilePath(path)
	}

	return f.downloadToLocalPath(ctx, path)
}

// Contents ...
func (f *fileProvider) Contents(ctx context.Context, srcPath string) (io.ReadCloser, error) {
	if strings.HasPrefix(srcPath, fileScheme) {
		trimmedPath, err := f.trimmedFilePath(srcPath)
		if err != nil {
			return nil, err
		}

		return f.fileManager.Open(trimmedPath)
	}

	return f.downloader.Get(ctx, srcPath)
}

func (f *fileProvider) trimmedFilePath(path string) (string, error) {
	pth := strings.TrimPrefix(path, fileScheme)
	return f.pathModifier.AbsPath(pth)
}

func (f *fileProvider) downloadToLocalPath(ctx context.Context, urlPath string) (string, error) {
	tmpDir, err := f.pathProvider.CreateTempDir("credentials")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	fileName, err := fileNameFromURL(urlPath)
	if err != nil {
		return "", fmt.Errorf("failed to extract filename from URL %s: %w", urlPath, err)
	}

	localPath := filepath.Join(tmpDir, fileName)
	if err := f.downloader.Download(ctx, localPath, urlPath); err != nil {
		return "", fmt.Errorf("failed to download file from %s: %w", urlPath, err)
	}

	return localPath, nil
}

func fileNameFromURL(urlPath string) (string, error) {
	parsedURL, err := url.Parse(urlPath)
	if err != nil {
		return "", err
	}

	return filepath.Base(parsedURL.Path), nil
}
