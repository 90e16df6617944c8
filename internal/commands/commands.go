// Package commands implements the "generate image" and "set API key" flows
// against a host.
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pixelforge/internal/domain"
	"pixelforge/internal/host"
	"pixelforge/internal/imagegen"
	"pixelforge/internal/metrics"
	"pixelforge/internal/panel"
	"pixelforge/internal/preview"
	"pixelforge/internal/providers/genai"
)

const (
	progressTitle    = "Generating image..."
	msgNoAPIKey      = "No API key set. Please set your Gemini API key first."
	msgAPIKeySaved   = "API key saved successfully."
	msgAPIKeyEmpty   = "API key not saved: the key is empty."
	promptTitle      = "Enter a description of the image to generate"
	promptHint       = "e.g. a watercolor fox in the snow"
	apiKeyTitle      = "Enter your Gemini API key"
	apiKeyHint       = "stored locally and sent only to the Gemini API"
	msgPreviewHidden = "Image generated. Preview saved to %s"
)

// Generator sends one generation request.
type Generator interface {
	Generate(ctx context.Context, prompt, apiKey string) (*genai.Response, error)
}

// CredentialStore is the single API key slot.
type CredentialStore interface {
	APIKey(ctx context.Context) (string, bool, error)
	SetAPIKey(ctx context.Context, key string) error
}

// Settings are the pass-through preview settings.
type Settings struct {
	DefaultFormat string
	AutoDownload  bool
	ShowPreview   bool
}

// Commands binds the generation flow to a host.
type Commands struct {
	host     host.Host
	creds    CredentialStore
	gen      Generator
	settings Settings
	logger   zerolog.Logger
}

func New(h host.Host, creds CredentialStore, gen Generator, settings Settings, logger *zerolog.Logger) *Commands {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Commands{host: h, creds: creds, gen: gen, settings: settings, logger: l}
}

// WithHost returns a copy of c that talks to h.
func (c *Commands) WithHost(h host.Host) *Commands {
	cp := *c
	cp.host = h
	return &cp
}

// GenerateImage asks for a prompt and shows the generated image in a new
// panel. Without a stored API key it runs the set API key flow instead.
// An empty or dismissed prompt ends the command without a message.
func (c *Commands) GenerateImage(ctx context.Context) error {
	key, ok, err := c.apiKey(ctx)
	if err != nil {
		return err
	}
	if !ok {
		metrics.GenerationTotal(metrics.OutcomeMissingKey)
		c.host.Info(ctx, msgNoAPIKey)
		return c.SetAPIKey(ctx)
	}

	prompt, ok, err := c.host.PromptText(ctx, host.PromptOptions{Title: promptTitle, Placeholder: promptHint})
	if err != nil {
		c.host.Error(ctx, "Could not read the prompt: "+err.Error())
		return err
	}
	prompt = strings.TrimSpace(prompt)
	if !ok || prompt == "" {
		return nil
	}
	_, err = c.run(ctx, key, prompt)
	return err
}

// Generate runs the flow for a prompt that was collected elsewhere.
func (c *Commands) Generate(ctx context.Context, prompt string) (*panel.Panel, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		c.host.Error(ctx, UserMessage(domain.ErrEmptyPrompt))
		return nil, domain.ErrEmptyPrompt
	}
	key, ok, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.GenerationTotal(metrics.OutcomeMissingKey)
		c.host.Info(ctx, msgNoAPIKey)
		return nil, domain.ErrMissingAPIKey
	}
	return c.run(ctx, key, prompt)
}

// SetAPIKey prompts for the key with masked input and stores it.
func (c *Commands) SetAPIKey(ctx context.Context) error {
	key, ok, err := c.host.PromptSecret(ctx, host.PromptOptions{Title: apiKeyTitle, Placeholder: apiKeyHint})
	if err != nil {
		c.host.Error(ctx, "Could not read the API key: "+err.Error())
		return err
	}
	if !ok {
		return nil
	}
	return c.SaveAPIKey(ctx, key)
}

// SaveAPIKey stores a key collected elsewhere.
func (c *Commands) SaveAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		c.host.Error(ctx, msgAPIKeyEmpty)
		return domain.ErrMissingAPIKey
	}
	if err := c.creds.SetAPIKey(ctx, key); err != nil {
		c.logger.Error().Err(err).Msg("store api key")
		c.host.Error(ctx, "Could not save the API key: "+err.Error())
		return err
	}
	c.logger.Info().Msg("api key updated")
	c.host.Info(ctx, msgAPIKeySaved)
	return nil
}

// HasAPIKey reports whether a key is stored without showing anything.
func (c *Commands) HasAPIKey(ctx context.Context) (bool, error) {
	_, ok, err := c.creds.APIKey(ctx)
	return ok, err
}

func (c *Commands) apiKey(ctx context.Context) (string, bool, error) {
	key, ok, err := c.creds.APIKey(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("load api key")
		c.host.Error(ctx, "Could not read the stored API key: "+err.Error())
		return "", false, err
	}
	return key, ok, nil
}

// run performs request, extraction and rendering under a progress indicator
// that cannot be cancelled, then shows the resulting panel.
func (c *Commands) run(ctx context.Context, key, prompt string) (*panel.Panel, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	var p *panel.Panel
	err := c.host.WithProgress(ctx, progressTitle, func(ctx context.Context) error {
		resp, err := c.gen.Generate(ctx, prompt, key)
		if err != nil {
			return err
		}
		result, err := imagegen.Extract(resp)
		if err != nil {
			return err
		}
		rendered, err := preview.Render(preview.Document{
			ImageData:   result.ImageData,
			MIMEType:    result.MIMEType,
			Prompt:      prompt,
			Description: result.Description,
			Options: preview.Options{
				DefaultFormat: c.settings.DefaultFormat,
				AutoDownload:  c.settings.AutoDownload,
			},
		})
		if err != nil {
			return err
		}
		p = panel.New(preview.Title(prompt), rendered)
		return nil
	})

	outcome := Outcome(err)
	metrics.GenerationTotal(outcome)
	metrics.GenerationDuration(outcome, time.Since(start))

	if err != nil {
		c.logger.Warn().Err(err).Str("outcome", outcome).Dur("elapsed", time.Since(start)).Msg("image generation failed")
		c.host.Error(ctx, UserMessage(err))
		return nil, err
	}

	location, err := c.host.ShowPanel(ctx, p, c.settings.ShowPreview)
	if err != nil {
		c.logger.Error().Err(err).Str("panel_id", p.ID).Msg("show panel")
		c.host.Error(ctx, "Could not show the preview: "+err.Error())
		return nil, err
	}
	if !c.settings.ShowPreview {
		c.host.Info(ctx, fmt.Sprintf(msgPreviewHidden, location))
	}
	c.logger.Info().Str("panel_id", p.ID).Dur("elapsed", time.Since(start)).Msg("image generated")
	return p, nil
}

// UserMessage turns a generation error into the text shown to the user.
func UserMessage(err error) string {
	var (
		statusErr    *genai.StatusError
		malformedErr *domain.MalformedResponseError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrMissingAPIKey):
		return msgNoAPIKey
	case errors.Is(err, domain.ErrEmptyPrompt):
		return "Please enter a description of the image to generate."
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Gemini API returned status %d: %s", statusErr.StatusCode, statusErr.Body)
	case errors.As(err, &malformedErr):
		msg := "Invalid response structure: missing " + malformedErr.Field
		if malformedErr.Err != nil {
			msg = "Invalid response structure: " + malformedErr.Field + " could not be decoded"
		}
		if malformedErr.BlockReason != "" {
			msg += " (prompt blocked: " + malformedErr.BlockReason + ")"
		}
		return msg
	case errors.Is(err, domain.ErrNoImage):
		return "No image in response: the model returned no image data"
	case errors.Is(err, preview.ErrNoImageData), errors.Is(err, preview.ErrInvalidMIMEType):
		return "Could not render the preview: " + err.Error()
	default:
		return "Request failed: " + err.Error()
	}
}

// Outcome classifies err for metrics.
func Outcome(err error) string {
	var (
		statusErr *genai.StatusError
		urlErr    *url.Error
	)
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrMissingAPIKey):
		return metrics.OutcomeMissingKey
	case errors.As(err, &statusErr):
		return metrics.OutcomeStatusError
	case errors.Is(err, domain.ErrMalformedResponse):
		return metrics.OutcomeMalformed
	case errors.Is(err, domain.ErrNoImage):
		return metrics.OutcomeNoImage
	case errors.As(err, &urlErr):
		return metrics.OutcomeRequestFailed
	case errors.Is(err, preview.ErrNoImageData), errors.Is(err, preview.ErrInvalidMIMEType):
		return metrics.OutcomeRenderFailed
	default:
		return metrics.OutcomeRequestFailed
	}
}
