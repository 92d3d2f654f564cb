package bootstrap

import (
	"context"
	"testing"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryStorage(t *testing.T) {
	s, err := OpenStorage(context.Background(), &config.Config{StoreBackend: BackendMemory})
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &moderation.MemBackend{}, s.Backend)
	assert.Nil(t, s.Policies)
	assert.Nil(t, s.Warnings)

	status, ok := s.Status()
	assert.True(t, ok)
	assert.NotEmpty(t, status)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := OpenStorage(context.Background(), &config.Config{StoreBackend: "redis"})
	assert.Error(t, err)
}
