package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and keeps an in-memory copy of the document,
// replaced wholesale after every successful write.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Record
	order   []string // document order, preserved for listings
	cacheMu sync.RWMutex

	// writeMu orders document writes with the cache swaps that follow them.
	writeMu sync.Mutex

	logger Logger
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Record),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads the document into the cache. It is called on
// startup and whenever a lookup misses, since the document may have been
// edited by hand while the server was stopped.
func (r *Registry) RefreshCache(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	doc, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	r.replaceCache(doc)
	r.logger.Debug("device cache refreshed", "count", len(doc.Clients))
	return nil
}

func (r *Registry) replaceCache(doc *Document) {
	cache := make(map[string]*Record, len(doc.Clients))
	order := make([]string, 0, len(doc.Clients))
	for i := range doc.Clients {
		rec := &doc.Clients[i]
		if _, dup := cache[rec.Name]; dup {
			r.logger.Warn("duplicate device name in registry document, keeping first", "name", rec.Name)
			continue
		}
		cache[rec.Name] = rec.DeepCopy()
		order = append(order, rec.Name)
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.order = order
	r.cacheMu.Unlock()
}

// GetDevice returns a snapshot of the named device, or ErrDeviceNotFound.
// The returned record is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, name string) (*Record, error) {
	if rec, ok := r.cached(name); ok {
		return rec, nil
	}

	if err := r.RefreshCache(ctx); err != nil {
		return nil, err
	}
	if rec, ok := r.cached(name); ok {
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
}

func (r *Registry) cached(name string) (*Record, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	rec, ok := r.cache[name]
	if !ok {
		return nil, false
	}
	return rec.DeepCopy(), true
}

// ListDevices returns every device in document order.
// The returned records are deep copies.
func (r *Registry) ListDevices(_ context.Context) []Record {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.cache[name].DeepCopy())
	}
	return out
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// AddDevice validates rec and appends it to the document.
// Returns ErrDeviceExists for a name already in use and ErrReservedName
// for the server's status node name.
func (r *Registry) AddDevice(ctx context.Context, rec *Record) error {
	if err := ValidateRecord(rec); err != nil {
		return err
	}

	// Validated user nodes must also be unique among themselves.
	for i, n := range rec.UserNodes {
		for _, m := range rec.UserNodes[:i] {
			if n == m {
				return fmt.Errorf("%w: %s/%s", ErrUserNodeExists, n.Parent, n.Name)
			}
		}
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	doc, err := r.repo.Update(ctx, func(doc *Document) error {
		if doc.index(rec.Name) >= 0 {
			return fmt.Errorf("%w: %s", ErrDeviceExists, rec.Name)
		}
		doc.Clients = append(doc.Clients, *rec.DeepCopy())
		return nil
	})
	if err != nil {
		r.logger.Warn("adding device failed", "name", rec.Name, "error", err)
		return err
	}

	r.replaceCache(doc)
	r.logger.Info("device added", "name", rec.Name, "type", rec.Type, "address", rec.Address())
	return nil
}

// RemoveDevice deletes the named device from the document.
func (r *Registry) RemoveDevice(ctx context.Context, name string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	doc, err := r.repo.Update(ctx, func(doc *Document) error {
		i := doc.index(name)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
		}
		doc.Clients = append(doc.Clients[:i], doc.Clients[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	r.replaceCache(doc)
	r.logger.Info("device removed", "name", name)
	return nil
}

// AddUserNode attaches a user node to the named device.
// Returns ErrUserNodeExists if the (name, parent) pair is already present.
func (r *Registry) AddUserNode(ctx context.Context, deviceName string, node UserNode) error {
	if err := ValidateUserNode(node); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	doc, err := r.repo.Update(ctx, func(doc *Document) error {
		i := doc.index(deviceName)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceName)
		}
		rec := &doc.Clients[i]
		if rec.HasUserNode(node.Name, node.Parent) {
			return fmt.Errorf("%w: '%s'", ErrUserNodeExists, node.Name)
		}
		rec.UserNodes = append(rec.UserNodes, node)
		return nil
	})
	if err != nil {
		r.logger.Warn("adding user node failed", "device", deviceName, "node", node.Name, "error", err)
		return err
	}

	r.replaceCache(doc)
	r.logger.Debug("user node added", "device", deviceName, "node", node.Name, "parent", node.Parent)
	return nil
}

// RemoveUserNode detaches the user node identified by name and parent.
func (r *Registry) RemoveUserNode(ctx context.Context, deviceName string, node UserNode) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	doc, err := r.repo.Update(ctx, func(doc *Document) error {
		i := doc.index(deviceName)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceName)
		}
		rec := &doc.Clients[i]
		j := rec.userNodeIndex(node.Name, node.Parent)
		if j < 0 {
			return fmt.Errorf("%w: %s/%s", ErrUserNodeNotFound, node.Parent, node.Name)
		}
		rec.UserNodes = append(rec.UserNodes[:j], rec.UserNodes[j+1:]...)
		if len(rec.UserNodes) == 0 {
			rec.UserNodes = nil
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.replaceCache(doc)
	r.logger.Debug("user node removed", "device", deviceName, "node", node.Name, "parent", node.Parent)
	return nil
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int          `json:"total_devices"`
	ByType       map[Type]int `json:"by_type"`
	UserNodes    int          `json:"user_nodes"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByType:       make(map[Type]int),
	}
	for _, rec := range r.cache {
		stats.ByType[rec.Type]++
		stats.UserNodes += len(rec.UserNodes)
	}
	return stats
}
