package handlers

import (
	"context"
	"sync"

	"pixelforge/internal/host"
	"pixelforge/internal/panel"
)

// requestHost is the host seen by a command running inside one HTTP request.
// Input was already collected by the form, so prompts report dismissal.
type requestHost struct {
	registry *panel.Registry

	mu       sync.Mutex
	infos    []string
	errs     []string
	panel    *panel.Panel
	location string
	revealed bool
}

var _ host.Host = (*requestHost)(nil)

func newRequestHost(registry *panel.Registry) *requestHost {
	return &requestHost{registry: registry}
}

func (h *requestHost) PromptText(context.Context, host.PromptOptions) (string, bool, error) {
	return "", false, nil
}

func (h *requestHost) PromptSecret(context.Context, host.PromptOptions) (string, bool, error) {
	return "", false, nil
}

func (h *requestHost) Info(_ context.Context, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.infos = append(h.infos, msg)
}

func (h *requestHost) Error(_ context.Context, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, msg)
}

// WithProgress runs fn inline; the browser shows its own loading state while
// the form request is pending.
func (h *requestHost) WithProgress(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

func (h *requestHost) ShowPanel(_ context.Context, p *panel.Panel, reveal bool) (string, error) {
	if err := h.registry.Add(p); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panel = p
	h.location = panelPath(p.ID)
	h.revealed = reveal
	return h.location, nil
}

func (h *requestHost) messages() (infos, errs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.infos...), append([]string(nil), h.errs...)
}

func panelPath(id string) string {
	return "/panels/" + id
}
