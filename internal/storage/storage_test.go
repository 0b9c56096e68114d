package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.DriverMemory}}

	repos, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, repos.Bookings)
	assert.NotNil(t, repos.Patients)
	assert.NotNil(t, repos.Outbox)
	assert.NoError(t, closeFn())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "mongo"}})
	assert.ErrorContains(t, err, "unknown storage driver")
}
