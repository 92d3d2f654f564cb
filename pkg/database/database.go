// Package database provides the MongoDB connection and the collections the
// bot persists warnings, quarantined entries and settings in.
package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotConnected is returned when a collection is requested before Connect.
var ErrNotConnected = errors.New("database not connected")

// Database manages the MongoDB connection
type Database struct {
	client      *mongo.Client
	db          *mongo.Database
	IsConnected bool
	mu          sync.RWMutex
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a new Database instance
func NewDatabase() *Database {
	return &Database{}
}

// Connect establishes a connection to MongoDB and verifies it with a ping.
// Writes are never queued while offline: callers get the error.
func (d *Database) Connect(mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.IsConnected {
		return nil
	}

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos.", "DB")
		return err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical("Fallo al verificar conexión con la base de datos.", "DB")
		_ = client.Disconnect(context.Background())
		return err
	}

	d.client = client
	d.db = client.Database(dbName)
	d.IsConnected = true

	logger.Success("Conectado exitosamente a la base de datos.", "DB")
	return nil
}

// Disconnect closes the database connection
func (d *Database) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d.IsConnected = false
	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	logger.System("Conexión a la base de datos cerrada.", "DB")
	return nil
}

// Collection returns a handle to the named collection.
func (d *Database) Collection(name string) (*mongo.Collection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, ErrNotConnected
	}
	return d.db.Collection(name), nil
}

// Ping checks the server is still reachable.
func (d *Database) Ping(ctx context.Context) error {
	d.mu.RLock()
	client := d.client
	d.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}
	return client.Ping(ctx, readpref.Primary())
}

// GetStatus returns a human readable status and whether the database is up.
func (d *Database) GetStatus() (string, bool) {
	if d == nil {
		return "🔴 Desconectada", false
	}
	d.mu.RLock()
	connected := d.IsConnected
	d.mu.RUnlock()
	if !connected {
		return "🔴 Desconectada", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Ping(ctx); err != nil {
		return "🟠 Sin respuesta", false
	}
	return "🟢 Conectada", true
}
