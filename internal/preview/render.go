// Package preview renders the self-contained HTML document shown in a
// preview panel. The document embeds the image as a data URI, shows the
// prompt and description as escaped text and carries the script behind the
// PNG/JPG download buttons. It never fetches anything over the network.
package preview

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	FormatPNG = "png"
	FormatJPG = "jpg"

	defaultMIMEType = "image/png"
	maxTitlePrompt  = 48
)

var (
	//go:embed panel.html.tmpl
	panelTemplateSource string

	//go:embed panel.js
	panelScript string

	panelTemplate = template.Must(template.New("panel").Parse(panelTemplateSource))

	mimeTypeRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.+-]*/[a-z0-9][a-z0-9!#$&^_.+-]*$`)

	ErrNoImageData     = errors.New("preview: image data is empty")
	ErrInvalidMIMEType = errors.New("preview: invalid mime type")
)

// Options carry the pass-through panel settings.
type Options struct {
	DefaultFormat string
	AutoDownload  bool
}

// Document is the input of Render. ImageData is the base64 payload exactly as
// the API returned it.
type Document struct {
	ImageData   string
	MIMEType    string
	Prompt      string
	Description string
	Options     Options
}

// Rendered is a finished panel document together with the policy it was
// rendered for.
type Rendered struct {
	HTML  string
	Nonce string
	CSP   string
}

type panelData struct {
	Title         string
	Prompt        string
	Description   string
	ImageURL      template.URL
	DefaultFormat string
	AutoDownload  bool
	Nonce         string
	CSP           string
	Script        template.JS
}

// Render produces the panel HTML. The base64 payload is embedded without
// decoding; a corrupt payload surfaces in the panel as a load error.
func Render(doc Document) (Rendered, error) {
	data := strings.TrimSpace(doc.ImageData)
	if data == "" {
		return Rendered{}, ErrNoImageData
	}
	mime, err := normalizeMIMEType(doc.MIMEType)
	if err != nil {
		return Rendered{}, err
	}

	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	csp := ContentSecurityPolicy(nonce)
	pd := panelData{
		Title:         Title(doc.Prompt),
		Prompt:        doc.Prompt,
		Description:   strings.TrimSpace(doc.Description),
		ImageURL:      template.URL(DataURI(mime, data)),
		DefaultFormat: normalizeFormat(doc.Options.DefaultFormat),
		AutoDownload:  doc.Options.AutoDownload,
		Nonce:         nonce,
		CSP:           csp,
		Script:        template.JS(panelScript),
	}

	var b strings.Builder
	if err := panelTemplate.Execute(&b, pd); err != nil {
		return Rendered{}, fmt.Errorf("preview: render panel: %w", err)
	}
	return Rendered{HTML: b.String(), Nonce: nonce, CSP: csp}, nil
}

// DataURI builds the data: URL for an already base64-encoded payload.
func DataURI(mime, base64Data string) string {
	return "data:" + mime + ";base64," + base64Data
}

// ContentSecurityPolicy allows only the nonce'd style and script and data:
// images.
func ContentSecurityPolicy(nonce string) string {
	return fmt.Sprintf("default-src 'none'; img-src data:; style-src 'nonce-%s'; script-src 'nonce-%s'; base-uri 'none'; form-action 'none'", nonce, nonce)
}

// Title is the panel title for a prompt.
func Title(prompt string) string {
	prompt = strings.Join(strings.Fields(prompt), " ")
	if prompt == "" {
		return "PixelForge"
	}
	runes := []rune(prompt)
	if len(runes) > maxTitlePrompt {
		prompt = string(runes[:maxTitlePrompt]) + "…"
	}
	return "PixelForge: " + prompt
}

func normalizeMIMEType(mime string) (string, error) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return defaultMIMEType, nil
	}
	if !mimeTypeRegexp.MatchString(mime) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMIMEType, mime)
	}
	return mime, nil
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJPG, "jpeg":
		return FormatJPG
	default:
		return FormatPNG
	}
}
