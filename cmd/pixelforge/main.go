package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"pixelforge/internal/commands"
	"pixelforge/internal/host"
	"pixelforge/internal/http/handlers"
	httpapi "pixelforge/internal/http/httpapi"
	"pixelforge/internal/infra"
	"pixelforge/internal/infra/credentials"
	"pixelforge/internal/panel"
	"pixelforge/internal/providers/genai"
)

var version = "dev"

const usage = `Usage: pixelforge <command> [flags]

Commands:
  generate   ask for a description and show the generated image
  set-key    store the Gemini API key
  serve      run the browser UI
  version    print the version
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	name, rest := args[0], args[1:]
	switch name {
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, "pixelforge "+version)
		return 0
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	case "generate", "set-key", "serve":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	infra.LoadDotEnv()
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", name).Logger()

	env, err := openEnvironment(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		fmt.Fprintf(stderr, "startup failed: %v\n", err)
		return 1
	}
	defer env.Close()

	switch name {
	case "generate":
		return runGenerate(ctx, env, rest, stdin, stdout, stderr)
	case "set-key":
		return runSetKey(ctx, env, rest, stdin, stdout, stderr)
	default:
		return runServe(ctx, env, rest, stderr)
	}
}

// environment is what every command needs: the state store, the single
// credential slot and the Gemini client.
type environment struct {
	cfg    *infra.Config
	logger zerolog.Logger
	db     *sql.DB
	creds  *credentials.Store
	client *genai.Client
}

func openEnvironment(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*environment, error) {
	db, dialect, err := infra.OpenStateDB(ctx, cfg.StateDSN)
	if err != nil {
		return nil, err
	}
	creds := credentials.NewStore(infra.NewSQLRunner(db, dialect, logger))
	migrateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := creds.Migrate(migrateCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare state store: %w", err)
	}

	client, err := genai.NewClient(genai.Options{
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Logger:  &logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug().Str("dialect", string(dialect)).Str("model", client.Model()).Msg("environment ready")
	return &environment{cfg: cfg, logger: logger, db: db, creds: creds, client: client}, nil
}

func (e *environment) Close() {
	if err := e.db.Close(); err != nil {
		e.logger.Warn().Err(err).Msg("close state store")
	}
}

func (e *environment) commands(h host.Host) *commands.Commands {
	return commands.New(h, e.creds, e.client, commands.Settings{
		DefaultFormat: e.cfg.Preview.DefaultDownloadFormat,
		AutoDownload:  e.cfg.Preview.AutoDownload,
		ShowPreview:   e.cfg.Preview.ShowPreview,
	}, &e.logger)
}

func (e *environment) terminal(stdin io.Reader, stdout, stderr io.Writer) (*host.Terminal, error) {
	store, err := panel.NewFileStore(e.cfg.PanelDir)
	if err != nil {
		return nil, err
	}
	return host.NewTerminal(host.TerminalOptions{
		In:     stdin,
		Out:    stdout,
		ErrOut: stderr,
		Panels: store,
		Logger: &e.logger,
	})
}

func runGenerate(ctx context.Context, env *environment, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	prompt := fs.String("prompt", "", "image description; asked for interactively when empty")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	term, err := env.terminal(stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	cmds := env.commands(term)

	if strings.TrimSpace(*prompt) == "" && len(fs.Args()) > 0 {
		*prompt = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(*prompt) == "" {
		err = cmds.GenerateImage(ctx)
	} else {
		_, err = cmds.Generate(ctx, *prompt)
	}
	if err != nil {
		return 1
	}
	return 0
}

func runSetKey(ctx context.Context, env *environment, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("set-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyFlag := fs.String("key", "", "Gemini API key (falls back to GEMINI_API_KEY, then an interactive prompt)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	term, err := env.terminal(stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	cmds := env.commands(term)

	key := strings.TrimSpace(*keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key != "" {
		err = cmds.SaveAPIKey(ctx, key)
	} else {
		err = cmds.SetAPIKey(ctx)
	}
	if err != nil {
		return 1
	}
	return 0
}

func runServe(ctx context.Context, env *environment, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", env.cfg.Addr, "listen address")
	open := fs.Bool("open", false, "open the UI in the system browser")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg := *env.cfg
	cfg.Addr = *addr

	app := handlers.NewApp(env.commands(nil), panel.NewRegistry(), env.db, env.logger)
	app.Version = version
	server := infra.NewHTTPServer(&cfg, httpapi.NewRouter(app))

	ln, err := server.Listen()
	if err != nil {
		env.logger.Error().Err(err).Str("addr", cfg.Addr).Msg("listen failed")
		fmt.Fprintf(stderr, "listen on %s: %v\n", cfg.Addr, err)
		return 1
	}
	url := "http://" + ln.Addr().String() + "/"
	env.logger.Info().Str("url", url).Msg("pixelforge listening")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()

	if *open {
		if err := browser.OpenURL(url); err != nil {
			env.logger.Warn().Err(err).Msg("open browser failed")
		}
	}

	select {
	case err := <-errCh:
		if err != nil {
			env.logger.Error().Err(err).Msg("http server failed")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		env.logger.Error().Err(err).Msg("failed to shutdown server")
		return 1
	}
	env.logger.Info().Msg("server stopped")
	return 0
}
