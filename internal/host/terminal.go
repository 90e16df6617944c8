package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"pixelforge/internal/panel"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// TerminalOptions configure a Terminal host.
type TerminalOptions struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
	Panels *panel.FileStore
	// Open shows a written panel file; it defaults to the system browser.
	Open   func(path string) error
	Logger *zerolog.Logger
	// SpinInterval is the spinner frame period; zero uses 120ms.
	SpinInterval time.Duration
}

// Terminal is a Host on top of a line-oriented terminal.
type Terminal struct {
	in       *bufio.Reader
	inFile   *os.File
	out      io.Writer
	errOut   io.Writer
	panels   *panel.FileStore
	open     func(string) error
	logger   zerolog.Logger
	interval time.Duration
}

func NewTerminal(opts TerminalOptions) (*Terminal, error) {
	if opts.Panels == nil {
		return nil, errors.New("host: panel store is required")
	}
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.ErrOut
	if errOut == nil {
		errOut = os.Stderr
	}
	open := opts.Open
	if open == nil {
		open = browser.OpenFile
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	interval := opts.SpinInterval
	if interval <= 0 {
		interval = 120 * time.Millisecond
	}
	t := &Terminal{
		in:       bufio.NewReader(in),
		out:      out,
		errOut:   errOut,
		panels:   opts.Panels,
		open:     open,
		logger:   logger,
		interval: interval,
	}
	if f, ok := in.(*os.File); ok {
		t.inFile = f
	}
	return t, nil
}

func (t *Terminal) PromptText(ctx context.Context, opts PromptOptions) (string, bool, error) {
	t.printPrompt(opts)
	return t.readLine(ctx)
}

// PromptSecret hides the input when stdin is a terminal.
func (t *Terminal) PromptSecret(ctx context.Context, opts PromptOptions) (string, bool, error) {
	t.printPrompt(opts)
	if t.inFile != nil && term.IsTerminal(int(t.inFile.Fd())) {
		raw, err := term.ReadPassword(int(t.inFile.Fd()))
		fmt.Fprintln(t.out)
		if err != nil {
			return "", false, fmt.Errorf("host: read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), true, nil
	}
	return t.readLine(ctx)
}

func (t *Terminal) Info(_ context.Context, msg string) {
	fmt.Fprintln(t.out, msg)
}

func (t *Terminal) Error(_ context.Context, msg string) {
	fmt.Fprintln(t.errOut, "Error: "+msg)
}

// WithProgress draws a spinner on the error stream while fn runs. The
// spinner has no cancel control.
func (t *Terminal) WithProgress(ctx context.Context, title string, fn func(context.Context) error) error {
	if !t.errIsTerminal() {
		fmt.Fprintln(t.errOut, title+"...")
		return fn(ctx)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(t.errOut, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], title)
			select {
			case <-done:
				fmt.Fprintf(t.errOut, "\r%s\r", strings.Repeat(" ", len(title)+2))
				return
			case <-ticker.C:
			}
		}
	}()

	err := fn(ctx)
	close(done)
	wg.Wait()
	return err
}

// ShowPanel writes p to the panel directory and opens it when reveal is set.
func (t *Terminal) ShowPanel(ctx context.Context, p *panel.Panel, reveal bool) (string, error) {
	path, err := t.panels.Write(ctx, p)
	if err != nil {
		return "", err
	}
	t.logger.Debug().Str("panel_id", p.ID).Str("path", path).Bool("reveal", reveal).Msg("panel written")
	if !reveal {
		return path, nil
	}
	if err := t.open(path); err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("open panel failed")
		fmt.Fprintf(t.out, "Open %s in a browser to view the image.\n", path)
	}
	return path, nil
}

func (t *Terminal) printPrompt(opts PromptOptions) {
	label := opts.Title
	if opts.Placeholder != "" {
		label += " (" + opts.Placeholder + ")"
	}
	fmt.Fprint(t.out, label+": ")
}

// readLine returns ok=false when input ends before anything was typed.
func (t *Terminal) readLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", false, nil
			}
		} else {
			return "", false, fmt.Errorf("host: read input: %w", err)
		}
	}
	return strings.TrimSpace(line), true, nil
}

func (t *Terminal) errIsTerminal() bool {
	f, ok := t.errOut.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
