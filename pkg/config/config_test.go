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

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "M", cfg.DefaultSize)
	assert.Equal(t, 5*24*time.Hour, cfg.DeliveryOffset)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.NotEqual(t, cfg.GRPCAddr, cfg.PaymentGRPCAddr)
	assert.Equal(t, 3, cfg.OutboxParts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DELIVERY_OFFSET", "72h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, 72*time.Hour, cfg.DeliveryOffset)
}

func TestLoadErrors(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "soon")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "mongo")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestSeedProducts(t *testing.T) {
	t.Setenv("SEED_PRODUCTS", "X=199.00,Y=75.50")
	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.SeedProducts, 2)

	id, price, err := SplitSeed(cfg.SeedProducts[1])
	require.NoError(t, err)
	assert.Equal(t, "Y", id)
	assert.Equal(t, "75.50", price)

	t.Setenv("SEED_PRODUCTS", "X")
	_, err = Load()
	assert.Error(t, err)
}
