package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"pixelforge/internal/panel"
)

// Panel serves a panel document under the policy it was rendered for.
func (a *App) Panel(w http.ResponseWriter, r *http.Request) {
	p, err := a.Panels.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", p.CSP)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	_, _ = io.WriteString(w, p.HTML)
}

func (a *App) ListPanels(w http.ResponseWriter, r *http.Request) {
	list := a.Panels.List()
	out := make([]panelLink, 0, len(list))
	for _, p := range list {
		out = append(out, linkFor(p))
	}
	a.json(w, http.StatusOK, out)
}

// ClosePanel disposes of a panel. Form posts are redirected back to the index.
func (a *App) ClosePanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Panels.Close(id)
	if errors.Is(err, panel.ErrNotFound) {
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		a.error(w, http.StatusNotFound, "not_found", "panel not found")
		return
	}
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	a.Logger.Debug().Str("panel_id", id).Msg("panel closed")
	if r.Method == http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return sonic.ConfigStd.Unmarshal(data, v)
}
