package imagegen

import (
	"encoding/base64"

	"pixelforge/internal/providers/genai"
)

// Part is one fragment of a candidate's content. The set of variants is
// closed: InlineData, Text and Other.
type Part interface {
	isPart()
}

// InlineData is a base64 payload embedded in the response.
type InlineData struct {
	Data     string
	MIMEType string
}

// Text is a plain text fragment.
type Text struct {
	Value string
}

// Other stands for any part kind the extractor does not consume.
type Other struct{}

func (InlineData) isPart() {}
func (Text) isPart()       {}
func (Other) isPart()      {}

// PartsOf converts wire parts into variants, preserving order. A wire part
// carrying both a payload and text yields InlineData followed by Text at the
// same position, so it can serve as both the image and the description.
func PartsOf(raw []genai.Part) []Part {
	out := make([]Part, 0, len(raw))
	for _, p := range raw {
		matched := false
		if p.InlineData != nil {
			out = append(out, InlineData{Data: p.InlineData.Data, MIMEType: p.InlineData.MimeType})
			matched = true
		}
		if p.Text != "" {
			out = append(out, Text{Value: p.Text})
			matched = true
		}
		if !matched {
			out = append(out, Other{})
		}
	}
	return out
}

// Result is what the preview needs from a response.
type Result struct {
	ImageData   string
	MIMEType    string
	Description string
}

// Bytes decodes the base64 image payload.
func (r *Result) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.ImageData)
}
