package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/config"
	apperrors "agrimarket/internal/errors"
	"agrimarket/internal/logging"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	for _, cfg := range []config.DatabaseConfig{
		{Driver: config.DriverMemory},
		{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "prices.db")},
	} {
		t.Run(cfg.Driver, func(t *testing.T) {
			store, err := Open(ctx, cfg, logging.Nop())
			require.NoError(t, err)
			defer store.Close()

			n, err := store.CountPrices(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mongo"}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConfig))
}
