package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "PORT", "INGEST_CHUNK_SIZE", "INGEST_MAX_RETRIES",
		"INGEST_RETRY_INTERVAL_MS", "INVOICE_POLICY", "LOG_LEVEL", "LOG_FORMAT", "DB_LOG_LEVEL", "DB_MAX_OPEN_CONNS"} {
		t.Setenv(k, "")
	}

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.ChunkSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryInterval)
	assert.Equal(t, InvoicePolicyAppend, cfg.InvoicePolicy)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Error(t, cfg.RequireDatabase())
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/flowbit")
	t.Setenv("INGEST_CHUNK_SIZE", "250")
	t.Setenv("INVOICE_POLICY", "skip-existing")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, InvoicePolicySkipExisting, cfg.InvoicePolicy)
	assert.NoError(t, cfg.RequireDatabase())
}

func TestNew_InvalidValues(t *testing.T) {
	t.Run("Expect: error for non-integer chunk size", func(t *testing.T) {
		t.Setenv("INGEST_CHUNK_SIZE", "lots")
		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INGEST_CHUNK_SIZE")
	})

	t.Run("Expect: error for zero chunk size", func(t *testing.T) {
		t.Setenv("INGEST_CHUNK_SIZE", "0")
		_, err := New()
		assert.Error(t, err)
	})

	t.Run("Expect: error for unknown invoice policy", func(t *testing.T) {
		t.Setenv("INGEST_CHUNK_SIZE", "")
		t.Setenv("INVOICE_POLICY", "upsert")
		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVOICE_POLICY")
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logg := newLogger(&buf, "debug", "json")
	assert.Equal(t, logrus.DebugLevel, logg.GetLevel())

	LogError(logg, "ingest", "PersistChunk", "record failed", map[string]string{"record_id": "r1"}, errors.New("boom"))
	assert.Contains(t, buf.String(), `"module":"ingest"`)
	assert.Contains(t, buf.String(), `"msg":"boom"`)

	fallback := newLogger(&buf, "chatty", "text")
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
}
