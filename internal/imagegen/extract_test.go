package imagegen

import (
	"encoding/json"
	"errors"
	"testing"

	"pixelforge/internal/domain"
	"pixelforge/internal/providers/genai"
)

func decodeResponse(t *testing.T, raw string) *genai.Response {
	t.Helper()
	var resp genai.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return &resp
}

func TestExtractMalformed(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "no candidates field", raw: `{}`, field: "candidates"},
		{name: "empty candidates", raw: `{"candidates":[]}`, field: "candidates"},
		{name: "no content", raw: `{"candidates":[{"finishReason":"SAFETY"}]}`, field: "candidates[0].content"},
		{name: "no parts", raw: `{"candidates":[{"content":{"role":"model"}}]}`, field: "candidates[0].content.parts"},
		{name: "empty parts", raw: `{"candidates":[{"content":{"parts":[]}}]}`, field: "candidates[0].content.parts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(decodeResponse(t, tc.raw))
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("expected malformed response error, got %v", err)
			}
			var malformed *domain.MalformedResponseError
			if !errors.As(err, &malformed) || malformed.Field != tc.field {
				t.Fatalf("field = %#v, want %q", malformed, tc.field)
			}
		})
	}
}

func TestExtractNilResponse(t *testing.T) {
	if _, err := Extract(nil); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestExtractReportsBlockReason(t *testing.T) {
	_, err := Extract(decodeResponse(t, `{"promptFeedback":{"blockReason":"SAFETY"}}`))
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) || malformed.BlockReason != "SAFETY" {
		t.Fatalf("expected block reason, got %v", err)
	}
}

func TestExtractTextOnlyIsNoImage(t *testing.T) {
	_, err := Extract(decodeResponse(t, `{"candidates":[{"content":{"parts":[{"text":"I cannot draw that."},{"text":"Sorry."}]}}]}`))
	if !errors.Is(err, domain.ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatal("no-image must be distinct from malformed response")
	}
}

func TestExtractFirstOfEachKind(t *testing.T) {
	raw := `{"candidates":[{"content":{"parts":[
		{"text":"A"},
		{"inlineData":{"data":"X","mimeType":"image/png"}},
		{"text":"B"},
		{"inlineData":{"data":"Y","mimeType":"image/jpeg"}}
	]}}]}`
	result, err := Extract(decodeResponse(t, raw))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if result.ImageData != "X" || result.MIMEType != "image/png" {
		t.Fatalf("image = (%q, %q), want (X, image/png)", result.ImageData, result.MIMEType)
	}
	if result.Description != "A" {
		t.Fatalf("description = %q, want A", result.Description)
	}
}

func TestExtractTextAfterImage(t *testing.T) {
	raw := `{"candidates":[{"content":{"parts":[
		{"inlineData":{"data":"X","mimeType":"image/png"}},
		{"text":"described later"}
	]}}]}`
	result, err := Extract(decodeResponse(t, raw))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if result.Description != "described later" {
		t.Fatalf("description = %q", result.Description)
	}
}

func TestExtractMissingTextDefaultsEmpty(t *testing.T) {
	result, err := Extract(decodeResponse(t, `{"candidates":[{"content":{"parts":[{"inlineData":{"data":"X","mimeType":"image/png"}}]}}]}`))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if result.Description != "" {
		t.Fatalf("description = %q, want empty", result.Description)
	}
}

func TestExtractOnlyFirstCandidate(t *testing.T) {
	raw := `{"candidates":[
		{"content":{"parts":[{"text":"no image here"}]}},
		{"content":{"parts":[{"inlineData":{"data":"X","mimeType":"image/png"}}]}}
	]}`
	if _, err := Extract(decodeResponse(t, raw)); !errors.Is(err, domain.ErrNoImage) {
		t.Fatalf("expected ErrNoImage from first candidate, got %v", err)
	}
}

func TestExtractPartWithBothRoles(t *testing.T) {
	raw := `{"candidates":[{"content":{"parts":[
		{"text":"both","inlineData":{"data":"X","mimeType":"image/png"}},
		{"text":"later"}
	]}}]}`
	result, err := Extract(decodeResponse(t, raw))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if result.ImageData != "X" || result.Description != "both" {
		t.Fatalf("result = %#v", result)
	}
}

func TestExtractSkipsUnknownParts(t *testing.T) {
	raw := `{"candidates":[{"content":{"parts":[
		{"functionCall":{"name":"noop"}},
		{"inlineData":{"data":"X","mimeType":"image/webp"}}
	]}}]}`
	result, err := Extract(decodeResponse(t, raw))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if result.MIMEType != "image/webp" {
		t.Fatalf("mime = %q", result.MIMEType)
	}
}

func TestPartsOfPreservesOrder(t *testing.T) {
	parts := PartsOf([]genai.Part{
		{Text: "a"},
		{},
		{InlineData: &genai.InlineData{Data: "X", MimeType: "image/png"}, Text: "b"},
	})
	want := []Part{Text{Value: "a"}, Other{}, InlineData{Data: "X", MIMEType: "image/png"}, Text{Value: "b"}}
	if len(parts) != len(want) {
		t.Fatalf("len = %d, want %d", len(parts), len(want))
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Fatalf("parts[%d] = %#v, want %#v", i, parts[i], want[i])
		}
	}
}

func TestResultBytesRoundTrip(t *testing.T) {
	result := &Result{ImageData: "iVBORw0KGgo="}
	data, err := result.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if string(data[1:4]) != "PNG" {
		t.Fatalf("unexpected bytes: %v", data)
	}
}
