package place

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for lookups.
var DefaultModel = "gemini-2.5-flash"

// APIKeyEnv names the environment variable holding the API key.
const APIKeyEnv = "GOOGLE_AI_API_KEY"

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no API key")

// Gemini asks a Gemini model for the place nearest to a coordinate.
type Gemini struct {
	model    string
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGemini creates a client using the API key in GOOGLE_AI_API_KEY.
func NewGemini(ctx context.Context) (*Gemini, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s: %w", APIKeyEnv, ErrNoAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	g := &Gemini{model: DefaultModel}
	g.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

func prompt(lat, lon float64) string {
	return fmt.Sprintf("Name the place at latitude %.5f, longitude %.5f as a short label "+
		"suitable for a photo caption, in the form \"City, Country\" or \"Landmark, City\". "+
		"Reply with the label only, no punctuation at the end, at most 40 characters.", lat, lon)
}

// Lookup implements Lookup.
func (g *Gemini) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	text, err := g.generate(ctx, prompt(lat, lon))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	label := clean(text)
	if label == "" {
		return "", fmt.Errorf("empty reply for %.4f,%.4f", lat, lon)
	}
	return label, nil
}
