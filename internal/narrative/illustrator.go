package narrative

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Illustrator turns a text prompt into an image URL.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) (string, error)
}

// OpenAIIllustrator renders images with DALL-E 3.
type OpenAIIllustrator struct {
	client openai.Client
}

// NewOpenAIIllustrator creates an image generator. The API key falls back to
// OPENAI_API_KEY.
func NewOpenAIIllustrator(apiKey string) (*OpenAIIllustrator, error) {
	key, err := openAIKey(apiKey)
	if err != nil {
		return nil, err
	}
	return &OpenAIIllustrator{client: openai.NewClient(option.WithAPIKey(key))}, nil
}

// Illustrate generates one 1024x1024 HD image and returns its URL.
func (o *OpenAIIllustrator) Illustrate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:  "A high-quality illustration for a story: " + prompt,
		Model:   openai.ImageModelDallE3,
		Size:    openai.ImageGenerateParamsSize1024x1024,
		Quality: openai.ImageGenerateParamsQualityHD,
		N:       openai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("%w: no image generated", ErrLLMFailed)
	}

	return resp.Data[0].URL, nil
}
