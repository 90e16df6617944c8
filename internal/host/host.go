// Package host abstracts the environment a command runs in: where prompts
// are answered, where messages go and where preview panels are shown.
package host

import (
	"context"

	"pixelforge/internal/panel"
)

// PromptOptions describe a single input request.
type PromptOptions struct {
	Title       string
	Placeholder string
}

// Host is implemented by the terminal and browser front ends.
//
// PromptText and PromptSecret report ok=false when the user dismissed the
// prompt. WithProgress runs fn while a non-cancellable indicator is shown and
// returns fn's error. ShowPanel makes p available and returns where it can be
// reached; reveal=false registers the panel without bringing it to the front.
type Host interface {
	PromptText(ctx context.Context, opts PromptOptions) (value string, ok bool, err error)
	PromptSecret(ctx context.Context, opts PromptOptions) (value string, ok bool, err error)
	Info(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
	WithProgress(ctx context.Context, title string, fn func(context.Context) error) error
	ShowPanel(ctx context.Context, p *panel.Panel, reveal bool) (location string, err error)
}
