// Package panel tracks the preview panels produced by generation commands.
// A panel is created once per generation and never reused.
package panel

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixelforge/internal/preview"
)

var ErrNotFound = errors.New("panel: not found")

// Panel is one rendered preview document.
type Panel struct {
	ID        string
	Title     string
	HTML      string
	CSP       string
	CreatedAt time.Time
}

// New wraps a rendered document in a panel with a fresh identifier.
func New(title string, r preview.Rendered) *Panel {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "PixelForge"
	}
	return &Panel{
		ID:        uuid.NewString(),
		Title:     title,
		HTML:      r.HTML,
		CSP:       r.CSP,
		CreatedAt: time.Now().UTC(),
	}
}

// Registry holds the open panels of a long-running host.
type Registry struct {
	mu     sync.RWMutex
	panels map[string]*Panel
}

func NewRegistry() *Registry {
	return &Registry{panels: make(map[string]*Panel)}
}

// Add registers p. Adding a panel whose ID is already open is an error.
func (r *Registry) Add(p *Panel) error {
	if p == nil || p.ID == "" {
		return errors.New("panel: id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.panels[p.ID]; ok {
		return errors.New("panel: duplicate id " + p.ID)
	}
	r.panels[p.ID] = p
	return nil
}

func (r *Registry) Get(id string) (*Panel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.panels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// Close removes the panel. Closing an unknown panel returns ErrNotFound.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.panels[id]; !ok {
		return ErrNotFound
	}
	delete(r.panels, id)
	return nil
}

// List returns the open panels, newest first.
func (r *Registry) List() []*Panel {
	r.mu.RLock()
	out := make([]*Panel, 0, len(r.panels))
	for _, p := range r.panels {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.panels)
}
