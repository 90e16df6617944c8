package imagegen

import (
	"fmt"

	"pixelforge/internal/domain"
	"pixelforge/internal/providers/genai"
)

// Extract picks the image and description out of the first candidate. The
// image is the first InlineData part and the description is the first Text
// part, each found independently in a single pass. A response without an
// image fails with domain.ErrNoImage; a missing description is left empty.
func Extract(resp *genai.Response) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &domain.MalformedResponseError{Field: "candidates", BlockReason: blockReason(resp)}
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil, &domain.MalformedResponseError{Field: "candidates[0].content"}
	}
	if len(content.Parts) == 0 {
		return nil, &domain.MalformedResponseError{Field: "candidates[0].content.parts"}
	}

	var (
		image *InlineData
		text  *Text
	)
	for _, part := range PartsOf(content.Parts) {
		switch p := part.(type) {
		case InlineData:
			if image == nil {
				image = &p
			}
		case Text:
			if text == nil {
				text = &p
			}
		case Other:
		default:
			panic(fmt.Sprintf("imagegen: unhandled part type %T", part))
		}
	}

	if image == nil {
		return nil, domain.ErrNoImage
	}

	result := &Result{
		ImageData: image.Data,
		MIMEType:  image.MIMEType,
	}
	if text != nil {
		result.Description = text.Value
	}
	return result, nil
}

func blockReason(resp *genai.Response) string {
	if resp == nil || resp.PromptFeedback == nil {
		return ""
	}
	return resp.PromptFeedback.BlockReason
}
