package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, StoreMongo, cfg.StoreBackend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, 168*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, 6*time.Hour, cfg.UserTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RegistrationTokenTTL)
	assert.Equal(t, 15*time.Second, cfg.MailTimeout)
	assert.Equal(t, "$300", cfg.AmountDue)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, MediaLocal, cfg.MediaBackend)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("USER_TOKEN_TTL", "30m")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.UserTokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigins)
}

func TestParse_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"bad store", map[string]string{"JWT_SECRET": "s", "STORE_BACKEND": "redis"}, "STORE_BACKEND"},
		{"bad media", map[string]string{"JWT_SECRET": "s", "MEDIA_BACKEND": "ftp"}, "MEDIA_BACKEND"},
		{"s3 without bucket", map[string]string{"JWT_SECRET": "s", "MEDIA_BACKEND": "s3"}, "S3_BUCKET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nMONGO_DB=conftest\n"), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("MONGO_DB", "")
	os.Unsetenv("MONGO_DB")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "conftest", cfg.MongoDB)
}
