package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Captioner is one synchronous vision-description call: an instruction
// plus inline image bytes in, the provider's free-form text answer out.
type Captioner interface {
	Describe(ctx context.Context, instruction, mimeType string, image []byte) (string, error)
}

// GeminiCaptioner implements Captioner over the Gemini API.
type GeminiCaptioner struct {
	client *genai.Client
	model  string
}

// NewGeminiCaptioner creates a captioner for the given API key and model.
func NewGeminiCaptioner(ctx context.Context, apiKey, model string) (*GeminiCaptioner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiCaptioner{client: client, model: model}, nil
}

// Describe sends the instruction and image to Gemini in one call and
// returns the first candidate's text. A missing or empty envelope is an
// error; the caller treats it as a per-file parse failure.
func (g *GeminiCaptioner) Describe(ctx context.Context, instruction, mimeType string, image []byte) (string, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: instruction},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		},
	}}

	callStart := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	duration := time.Since(callStart)
	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("Gemini call failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("received empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in Gemini response")
	}

	log.Debug().
		Str("model", g.model).
		Int("response_length", len(text)).
		Dur("duration", duration).
		Msg("Gemini response received")
	return text, nil
}
