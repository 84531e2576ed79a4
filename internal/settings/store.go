package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strconv"
	"sync"

	"github.com/nerrad567/aerion-control/internal/infrastructure/jsonfile"
)

const (
	// PortKey holds the OPC-UA server's listening port.
	PortKey = "Port"

	// DefaultPort is the OPC-UA default used when Port is unset.
	DefaultPort = 4840
)

// Logger defines the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type document map[string]json.RawMessage

// Store reads and writes server.json.
type Store struct {
	path   string
	mu     sync.Mutex
	logger Logger
}

// NewStore creates a store for the document at path. Nothing is touched
// on disk until the first access.
func NewStore(path string) *Store {
	return &Store{path: path, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (s *Store) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Path returns the location of the document.
func (s *Store) Path() string {
	return s.path
}

// Read returns the value of key rendered as text of type t.
// Numbers must be integers; arrays come back as compact JSON.
func (s *Store) Read(key string, t ValueType) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	raw, ok := doc[key]
	if !ok {
		s.logger.Warn("setting not found", "key", key)
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	value, err := decode(raw, t)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", key, err)
	}
	s.logger.Debug("setting read", "key", key, "value", value)
	return value, nil
}

// Write stores value under key as type t, creating or replacing the key.
func (s *Store) Write(key, value string, t ValueType) error {
	encoded, err := encode(value, t)
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc[key] = encoded
	if err := jsonfile.Write(s.path, doc); err != nil {
		return err
	}
	s.logger.Debug("setting written", "key", key, "value", value)
	return nil
}

// Delete removes key. Deleting a missing key returns ErrKeyNotFound.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	delete(doc, key)
	return jsonfile.Write(s.path, doc)
}

// All returns every stored value as raw JSON.
func (s *Store) All() (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return maps.Clone(map[string]json.RawMessage(doc)), nil
}

// Port returns the configured server port, or DefaultPort when the key
// is missing or not a valid port number.
func (s *Store) Port() int {
	v, err := s.Read(PortKey, Number)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("invalid server port setting, using default", "error", err, "default", DefaultPort)
		}
		return DefaultPort
	}
	port, err := strconv.Atoi(v)
	if err != nil || port < 1 || port > 65535 {
		s.logger.Warn("server port out of range, using default", "port", v, "default", DefaultPort)
		return DefaultPort
	}
	return port
}

func (s *Store) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := document{}
		if err := jsonfile.Write(s.path, doc); err != nil {
			return nil, err
		}
		s.logger.Info("created settings document", "path", s.path)
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptDocument, s.path)
	}
	return doc, nil
}
