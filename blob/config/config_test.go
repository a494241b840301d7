package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	return repo.envVars[key]
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	delete(repo.envVars, key)
	return nil
}

func (repo fakeEnvRepo) List() []string {
	var values []string
	for key, value := range repo.envVars {
		values = append(values, key+"="+value)
	}
	return values
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    Config
		wantErr bool
	}{
		{
			name: "full configuration",
			envVars: map[string]string{
				"TIDAL_API_BASE_URL":       "https://storage.example.com/v1",
				"TIDAL_ACCESS_TOKEN":       "token-123",
				"TIDAL_CREDENTIALS_SOURCE": "file:///etc/tidal/credentials.json",
				"TIDAL_DISABLE_CRC32C":     "true",
				"TIDAL_DISABLE_MD5":        "false",
			},
			want: Config{
				APIBaseURL:        "https://storage.example.com/v1",
				AccessToken:       "token-123",
				CredentialsSource: "file:///etc/tidal/credentials.json",
				DisableCRC32C:     true,
				DisableMD5:        false,
			},
		},
		{
			name: "minimal configuration",
			envVars: map[string]string{
				"TIDAL_API_BASE_URL": "https://storage.example.com/v1",
			},
			want: Config{APIBaseURL: "https://storage.example.com/v1"},
		},
		{
			name: "invalid boolean treated as false",
			envVars: map[string]string{
				"TIDAL_API_BASE_URL":   "https://storage.example.com/v1",
				"TIDAL_DISABLE_CRC32C": "maybe",
			},
			want: Config{APIBaseURL: "https://storage.example.com/v1"},
		},
		{
			name:    "missing base URL",
			envVars: map[string]string{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(fakeEnvRepo{envVars: tt.envVars})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClient_staticToken(t *testing.T) {
	client, err := NewClient(context.Background(), Config{
		APIBaseURL:  "https://storage.example.com/v1",
		AccessToken: "token-123",
	}, NewDefaultFileProvider(log.NewLogger()), log.NewLogger())

	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClient_credentialsFile(t *testing.T) {
	dir := t.TempDir()
	credentialsPath := filepath.Join(dir, "credentials.json")
	content := `{"client_id":"id","client_secret":"secret","refresh_token":"refresh"}`
	require.NoError(t, os.WriteFile(credentialsPath, []byte(content), 0600))

	client, err := NewClient(context.Background(), Config{
		APIBaseURL:        "https://storage.example.com/v1",
		CredentialsSource: "file://" + credentialsPath,
	}, NewDefaultFileProvider(log.NewLogger()), log.NewLogger())

	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClient_invalidCredentialsFile(t *testing.T) {
	dir := t.TempDir()
	credentialsPath := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(credentialsPath, []byte(`{"client_id":"id"}`), 0600))

	_, err := NewClient(context.Background(), Config{
		APIBaseURL:        "https://storage.example.com/v1",
		CredentialsSource: "file://" + credentialsPath,
	}, NewDefaultFileProvider(log.NewLogger()), log.NewLogger())

	assert.Error(t, err)
}
