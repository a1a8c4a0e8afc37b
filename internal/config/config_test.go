package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.API.Port)
	assert.Equal(t, "minio", cfg.Storage.Driver)
	assert.Equal(t, "generative", cfg.Extractor.Strategy)
	assert.Equal(t, "http", cfg.Extractor.FetcherMode)
	assert.Equal(t, 10*time.Second, cfg.Extractor.FetchTimeout)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins())
	assert.Equal(t, 10, cfg.Worker.Concurrency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("API_PORT", "8081")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("EXTRACTOR_STRATEGY", "summarize")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.API.Port)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "summarize", cfg.Extractor.Strategy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins())
}

func TestLoad_RejectsUnknownStrategy(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("EXTRACTOR_STRATEGY", "magic")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extractor strategy")
}

func TestLoad_S3DriverSkipsMinIOCredentials(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "cv", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cv sslmode=disable", d.DSN())
}

func TestLoad_TrustedProxies(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.API.Proxies())

	t.Setenv("API_TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.API.Proxies())

	t.Setenv("API_TRUSTED_PROXIES", "not-an-ip")
	_, err = Load()
	assert.Error(t, err)
}
