package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/nerrad567/aerion-control/internal/infrastructure/jsonfile"
)

// Repository defines the persistence operations the Registry needs.
type Repository interface {
	// Load returns the current document. A missing document is created
	// empty and returned.
	Load(ctx context.Context) (*Document, error)

	// Update loads the document, applies fn and writes the result, as one
	// step with respect to other Update calls. If fn returns an error
	// nothing is written and the error is returned unchanged.
	Update(ctx context.Context, fn func(*Document) error) (*Document, error)
}

// JSONFileRepository implements Repository over a JSON file.
type JSONFileRepository struct {
	path string
	mu   sync.Mutex
}

// NewJSONFileRepository creates a repository for the document at path.
func NewJSONFileRepository(path string) *JSONFileRepository {
	return &JSONFileRepository{path: path}
}

// Path returns the location of the document.
func (r *JSONFileRepository) Path() string {
	return r.path
}

// Load reads the document, creating it when it does not exist.
func (r *JSONFileRepository) Load(ctx context.Context) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Update performs a locked read-modify-write of the document.
func (r *JSONFileRepository) Update(ctx context.Context, fn func(*Document) error) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := r.write(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *JSONFileRepository) load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := &Document{Clients: []Record{}}
		if err := r.write(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRegistry, r.path, err)
	}
	if doc.Clients == nil {
		doc.Clients = []Record{}
	}
	return &doc, nil
}

// write rewrites the document in place; the OPC-UA server only reloads
// clients.json on a modify event. Callers hold r.mu.
func (r *JSONFileRepository) write(doc *Document) error {
	return jsonfile.Write(r.path, doc)
}
