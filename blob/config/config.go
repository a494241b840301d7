// Package config assembles a blob.Client from the process environment, the
// way deployments typically inject endpoint and credential settings.
package config

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"

	"github.com/tidalstore/tidal-go/blob"
	"github.com/tidalstore/tidal-go/blob/credentials"
)

// Config holds the client settings read from the environment.
type Config struct {
	// APIBaseURL is the service endpoint. Required.
	APIBaseURL string

	// AccessToken is a fixed bearer token. Mutually exclusive with
	// CredentialsSource; when both are set the token wins.
	AccessToken string

	// CredentialsSource locates an authorized-user credentials JSON file,
	// either as a file:// path or a remote URL.
	CredentialsSource string

	DisableCRC32C bool
	DisableMD5    bool
}

// Load reads the configuration from envRepo.
func Load(envRepo env.Repository) (Config, error) {
	apiBaseURL := envRepo.Get("TIDAL_API_BASE_URL")
	if apiBaseURL == "" {
		return Config{}, fmt.Errorf("the variable 'TIDAL_API_BASE_URL' is not defined")
	}

	return Config{
		APIBaseURL:        apiBaseURL,
		AccessToken:       envRepo.Get("TIDAL_ACCESS_TOKEN"),
		CredentialsSource: envRepo.Get("TIDAL_CREDENTIALS_SOURCE"),
		DisableCRC32C:     boolEnv(envRepo, "TIDAL_DISABLE_CRC32C"),
		DisableMD5:        boolEnv(envRepo, "TIDAL_DISABLE_MD5"),
	}, nil
}

func boolEnv(envRepo env.Repository, key string) bool {
	value, err := strconv.ParseBool(envRepo.Get(key))
	return err == nil && value
}

// NewClient builds a client from cfg. A credentials source is fetched through
// files; the token endpoint is not contacted until a request needs a header.
func NewClient(ctx context.Context, cfg Config, files FileProvider, logger log.Logger) (*blob.Client, error) {
	httpClient := retryhttp.NewClient(logger)

	provider, err := credentialsProvider(ctx, cfg, files, logger)
	if err != nil {
		return nil, err
	}

	return blob.NewClient(blob.ClientParams{
		APIBaseURL:  cfg.APIBaseURL,
		Credentials: provider,
		HTTPClient:  httpClient,
		Logger:      logger,
	})
}

func credentialsProvider(ctx context.Context, cfg Config, files FileProvider, logger log.Logger) (credentials.Provider, error) {
	if cfg.AccessToken != "" {
		return credentials.Static(cfg.AccessToken), nil
	}
	if cfg.CredentialsSource == "" {
		return credentials.Static(""), nil
	}

	contents, err := files.Contents(ctx, cfg.CredentialsSource)
	if err != nil {
		return nil, fmt.Errorf("fetch credentials: %w", err)
	}
	defer func() {
		if err := contents.Close(); err != nil {
			logger.Warnf("failed to close credentials source: %s", err)
		}
	}()

	raw, err := io.ReadAll(contents)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	info, err := credentials.ParseAuthorizedUserInfo(raw, cfg.CredentialsSource)
	if err != nil {
		return nil, err
	}
	return credentials.NewAuthorizedUser(info, retryhttp.NewClient(logger)), nil
}
