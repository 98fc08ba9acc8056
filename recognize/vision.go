package recognize

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultVisionPrompt asks the model for a faithful transcription with
// lightweight section markup that downstream reference resolution can use.
const DefaultVisionPrompt = `Transcribe all text in this page image exactly as it appears, top to bottom.
Prefix section or chart titles with "■ " on their own line. Do not describe the image or add commentary.`

// Vision recognizes page images with a multimodal chat model.
type Vision struct {
	client *openai.Client
	model  string
	prompt string
}

// VisionOption configures a Vision recognizer.
type VisionOption func(*Vision)

// WithVisionModel overrides the chat model.
func WithVisionModel(model string) VisionOption {
	return func(v *Vision) { v.model = model }
}

// WithVisionPrompt overrides the transcription prompt.
func WithVisionPrompt(prompt string) VisionOption {
	return func(v *Vision) { v.prompt = prompt }
}

// NewVision returns a model-backed recognizer. An empty apiKey is allowed
// at construction; calls will fail with an authentication error.
func NewVision(apiKey string, opts ...VisionOption) *Vision {
	v := &Vision{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
		prompt: DefaultVisionPrompt,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Recognize sends the image inline as a data URL and returns the model's
// transcription. Rate limits and backend errors come back wrapped as
// transient so WithRetry can handle them.
func (v *Vision) Recognize(ctx context.Context, image []byte) (string, error) {
	dataURL := "data:" + sniffMIME(image) + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: v.prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		if isRetryableAPIError(err) {
			return "", Transient(fmt.Errorf("vision request: %w", err))
		}
		return "", fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Transient(errors.New("vision response had no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func isRetryableAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	// Network-level failures are worth retrying too.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sniffMIME(image []byte) string {
	switch {
	case len(image) >= 8 && string(image[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(image) >= 3 && image[0] == 0xFF && image[1] == 0xD8 && image[2] == 0xFF:
		return "image/jpeg"
	default:
		return "image/png"
	}
}
