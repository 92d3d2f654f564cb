// Package bootstrap opens the storage both binaries share.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/config"
	"github.com/Defausha/warnbot/pkg/database"
	"github.com/Defausha/warnbot/pkg/logger"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Storage is the opened persistence layer.
type Storage struct {
	Backend moderation.Backend
	// Policies is nil for the memory backend.
	Policies moderation.PolicyStore
	// Warnings is the Mongo backend, nil when running in memory.
	Warnings *database.WarningBackend
	DB       *database.Database
}

// OpenStorage connects the configured backend. Mongo indexes are created
// before the first write.
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.StoreBackend {
	case BackendMemory:
		logger.Warn("Usando almacenamiento en memoria: las advertencias se perderán al reiniciar", "Storage")
		return &Storage{Backend: moderation.NewMemBackend()}, nil
	case BackendMongo, "":
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	warnings, err := database.NewWarningBackend(db)
	if err != nil {
		return nil, err
	}

	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := warnings.EnsureIndexes(ictx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	settings, err := database.NewSettingsStore(db)
	if err != nil {
		return nil, err
	}
	return &Storage{Backend: warnings, Policies: settings, Warnings: warnings, DB: db}, nil
}

// Status reports the database status; the memory backend is always up.
func (s *Storage) Status() (string, bool) {
	if s.DB == nil {
		return "🟡 En memoria", true
	}
	return s.DB.GetStatus()
}

// Close disconnects from the database, if any.
func (s *Storage) Close() {
	if s.DB == nil {
		return
	}
	if err := s.DB.Disconnect(); err != nil {
		logger.Error(fmt.Sprintf("Error al cerrar la base de datos: %v", err), "Storage")
	}
}
