package storage

import (
	"database/sql"
	"encoding/json"
	"errors"

	"procurement-tracker/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// Keys under which each collection is persisted. They match the
// localStorage keys of the legacy front end, so an exported dump of that
// data loads unchanged.
const (
	KeyPurchases = "compras"
	KeySuppliers = "fornecedores"
	KeyUsers     = "users"
	KeySession   = "currentUser"
)

// Store wraps a sql.DB connection holding a single key-value table. Each
// collection is serialized as one JSON document under its key; there are
// no partial or incremental writes.
type Store struct {
	conn *sql.DB
}

// NewStore opens the database and creates the key-value table.
func NewStore(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	return err
}

// Get returns the raw value stored under key, reporting whether it exists.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set writes value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	_, err := s.conn.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// loadJSON reads and decodes the document under key. An absent key or
// undecodable content yields the zero value rather than an error; only
// storage failures are reported.
func loadJSON[T any](s *Store, key string) (T, error) {
	var zero T
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return zero, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, nil
	}
	return v, nil
}

func (s *Store) saveJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, string(b))
}

// LoadSuppliers returns the suppliers collection in stored order.
func (s *Store) LoadSuppliers() ([]models.Supplier, error) {
	return loadJSON[[]models.Supplier](s, KeySuppliers)
}

// LoadPurchases returns the purchases collection in stored order.
func (s *Store) LoadPurchases() ([]models.Purchase, error) {
	return loadJSON[[]models.Purchase](s, KeyPurchases)
}

// LoadUsers returns the users collection in stored order.
func (s *Store) LoadUsers() ([]models.User, error) {
	return loadJSON[[]models.User](s, KeyUsers)
}

// LoadSession returns the session singleton, or nil when signed out.
func (s *Store) LoadSession() (*models.Session, error) {
	return loadJSON[*models.Session](s, KeySession)
}

// SaveAll serializes the full suppliers and purchases collections under
// their respective keys. Users and the session are persisted by their own
// operations.
func (s *Store) SaveAll(suppliers []models.Supplier, purchases []models.Purchase) error {
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}
	if purchases == nil {
		purchases = []models.Purchase{}
	}
	if err := s.saveJSON(KeySuppliers, suppliers); err != nil {
		return err
	}
	return s.saveJSON(KeyPurchases, purchases)
}

// SaveUsers serializes the full users collection.
func (s *Store) SaveUsers(users []models.User) error {
	if users == nil {
		users = []models.User{}
	}
	return s.saveJSON(KeyUsers, users)
}

// SaveSession replaces the session singleton.
func (s *Store) SaveSession(session models.Session) error {
	return s.saveJSON(KeySession, session)
}

// ClearSession removes the session singleton.
func (s *Store) ClearSession() error {
	return s.Delete(KeySession)
}
