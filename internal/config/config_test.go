package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "banking.db", cfg.DatabaseURL)
	assert.Equal(t, "987654", cfg.SortCode)
	assert.Equal(t, 5, cfg.CreditAgencies)
	assert.Equal(t, 10*time.Second, cfg.CreditTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BANK_ADDR", ":9999")
	t.Setenv("BANK_SORT_CODE", "123456")
	t.Setenv("CREDIT_AGENCIES", "3")
	t.Setenv("CREDIT_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "123456", cfg.SortCode)
	assert.Equal(t, 3, cfg.CreditAgencies)
	assert.Equal(t, 250*time.Millisecond, cfg.CreditTimeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("malformed timeout", func(t *testing.T) {
		t.Setenv("CREDIT_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("short sortcode", func(t *testing.T) {
		t.Setenv("BANK_SORT_CODE", "12345")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-numeric sortcode", func(t *testing.T) {
		t.Setenv("BANK_SORT_CODE", "98765x")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Addr:           ":8080",
		DatabaseURL:    "banking.db",
		SortCode:       "987654",
		CreditAgencies: 5,
		CreditTimeout:  time.Second,
	}
	assert.NoError(t, valid.Validate())

	noAgencies := *valid
	noAgencies.CreditAgencies = 0
	assert.Error(t, noAgencies.Validate())

	noTimeout := *valid
	noTimeout.CreditTimeout = 0
	assert.Error(t, noTimeout.Validate())

	noDB := *valid
	noDB.DatabaseURL = ""
	assert.Error(t, noDB.Validate())
}
