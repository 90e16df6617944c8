package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"pixelforge/internal/commands"
	"pixelforge/internal/panel"
)

const maxFormBytes = 64 << 10

// App serves the browser host. Every request runs the commands against its
// own requestHost, so concurrent generations never share messages or panels.
type App struct {
	Commands *commands.Commands
	Panels   *panel.Registry
	DB       *sql.DB
	Logger   zerolog.Logger
	Version  string
}

func NewApp(cmds *commands.Commands, panels *panel.Registry, db *sql.DB, logger zerolog.Logger) *App {
	if panels == nil {
		panels = panel.NewRegistry()
	}
	return &App{Commands: cmds, Panels: panels, DB: db, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		a.Logger.Error().Err(err).Msg("encode json response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(data, '\n'))
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorResponse{Error: kind, Message: message})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
