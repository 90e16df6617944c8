package handlers

import (
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"pixelforge/internal/domain"
	"pixelforge/internal/panel"
)

const indexCSP = "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'; base-uri 'none'; frame-ancestors 'none'"

var (
	//go:embed index.html.tmpl
	indexTemplateSource string

	indexTemplate = template.Must(template.New("index").Parse(indexTemplateSource))
)

type panelLink struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Path      string `json:"path"`
	CreatedAt string `json:"created_at"`
}

type indexPage struct {
	Infos    []string
	Errors   []string
	Latest   *panelLink
	Prompt   string
	HasKey   bool
	NeedsKey bool
	Panels   []panelLink
}

type generateResponse struct {
	PanelID  string   `json:"panel_id,omitempty"`
	Location string   `json:"location,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func linkFor(p *panel.Panel) panelLink {
	return panelLink{
		ID:        p.ID,
		Title:     p.Title,
		Path:      panelPath(p.ID),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	a.renderIndex(w, r, http.StatusOK, indexPage{})
}

// Generate runs the generate flow for the submitted prompt. A revealed panel
// is answered with a redirect to it.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	prompt, ok := a.formValue(w, r, "prompt")
	if !ok {
		return
	}
	rh := newRequestHost(a.Panels)
	p, err := a.Commands.WithHost(rh).Generate(r.Context(), prompt)
	infos, errs := rh.messages()
	code := statusFor(err)

	if wantsJSON(r) {
		resp := generateResponse{Messages: infos}
		if err != nil {
			resp.Error = strings.Join(errs, "; ")
		} else {
			resp.PanelID = p.ID
			resp.Location = rh.location
		}
		if err == nil {
			code = http.StatusCreated
		}
		a.json(w, code, resp)
		return
	}

	if err == nil && rh.revealed {
		http.Redirect(w, r, rh.location, http.StatusSeeOther)
		return
	}
	page := indexPage{Infos: infos, Errors: errs}
	if err != nil {
		page.Prompt = prompt
		page.NeedsKey = errors.Is(err, domain.ErrMissingAPIKey)
	} else {
		link := linkFor(p)
		page.Latest = &link
	}
	a.renderIndex(w, r, code, page)
}

// SetAPIKey stores the submitted key.
func (a *App) SetAPIKey(w http.ResponseWriter, r *http.Request) {
	key, ok := a.formValue(w, r, "api_key")
	if !ok {
		return
	}
	rh := newRequestHost(a.Panels)
	err := a.Commands.WithHost(rh).SaveAPIKey(r.Context(), key)
	infos, errs := rh.messages()

	code := http.StatusOK
	if err != nil {
		code = http.StatusInternalServerError
		if errors.Is(err, domain.ErrMissingAPIKey) {
			code = http.StatusBadRequest
		}
	}
	if wantsJSON(r) {
		a.json(w, code, generateResponse{Messages: infos, Error: strings.Join(errs, "; ")})
		return
	}
	a.renderIndex(w, r, code, indexPage{Infos: infos, Errors: errs, NeedsKey: err != nil})
}

func (a *App) formValue(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]string
		if err := decodeJSON(r, &body); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return "", false
		}
		return body[name], true
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return "", false
	}
	return r.PostFormValue(name), true
}

func (a *App) renderIndex(w http.ResponseWriter, r *http.Request, code int, page indexPage) {
	if a.Commands != nil {
		hasKey, err := a.Commands.HasAPIKey(r.Context())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("check stored api key")
		}
		page.HasKey = hasKey
	}
	for _, p := range a.Panels.List() {
		page.Panels = append(page.Panels, linkFor(p))
	}

	var b strings.Builder
	if err := indexTemplate.Execute(&b, page); err != nil {
		a.Logger.Error().Err(err).Msg("render index")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", indexCSP)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(b.String()))
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingAPIKey):
		return http.StatusPreconditionRequired
	default:
		return http.StatusBadGateway
	}
}
