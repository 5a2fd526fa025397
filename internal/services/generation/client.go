package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/replicate/replicate-go"
	"github.com/rs/zerolog"
)

var (
	ErrMissingCredential = errors.New("missing API token - please configure REPLICATE_API_TOKEN")
	ErrEmptyPrompt       = errors.New("prompt is required")
	ErrExtraction        = errors.New("failed to extract image URL from generation result")
	ErrContentPolicy     = errors.New("prompt rejected by the provider's content policy")
	ErrProviderTimeout   = errors.New("image generation timed out")
)

// ProviderError wraps a failed provider call. Its message is the provider's own.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

const negativePrompt = "ugly, deformed, noisy, blurry, distorted, text, watermark, username, badly drawn face"

// contentPolicyMarkers are substrings the provider uses when it refuses a prompt.
var contentPolicyMarkers = []string{"nsfw", "content policy", "safety", "flagged", "inappropriate"}

// Generator turns a prompt into exactly one image URL.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RunFunc runs a model to completion and returns its raw output.
type RunFunc func(ctx context.Context, model string, input map[string]any) (any, error)

// Client generates emojis on Replicate. It never retries.
type Client struct {
	run     RunFunc
	model   string
	timeout time.Duration
}

// NewClient builds a Replicate-backed client. An empty token is not an error
// here: every Generate call then fails with ErrMissingCredential so the server
// still boots and reports the misconfiguration per request.
func NewClient(token, model string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return NewClientWithRunner(nil, model, timeout), nil
	}

	r8, err := replicate.NewClient(replicate.WithToken(token))
	if err != nil {
		return nil, fmt.Errorf("failed to create replicate client: %w", err)
	}

	run := func(ctx context.Context, model string, input map[string]any) (any, error) {
		return r8.Run(ctx, model, input, nil)
	}
	return NewClientWithRunner(run, model, timeout), nil
}

// NewClientWithRunner wires a custom run function. A nil run behaves like a
// missing token.
func NewClientWithRunner(run RunFunc, model string, timeout time.Duration) *Client {
	return &Client{run: run, model: model, timeout: timeout}
}

// Input is the fixed parameter set sent with every prompt.
func Input(prompt string) map[string]any {
	return map[string]any{
		"prompt":              "A TOK Emoji of " + prompt,
		"width":               1024,
		"height":              1024,
		"refine":              "no_refiner",
		"scheduler":           "K_EULER",
		"lora_scale":          0.6,
		"num_outputs":         1,
		"guidance_scale":      7.5,
		"apply_watermark":     false,
		"high_noise_frac":     0.8,
		"negative_prompt":     negativePrompt,
		"prompt_strength":     0.8,
		"num_inference_steps": 50,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.run == nil {
		return "", ErrMissingCredential
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	logger := zerolog.Ctx(ctx)

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.run(runCtx, c.model, Input(prompt))
	if err != nil {
		err = c.providerError(runCtx, err)
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Image generation failed")
		return "", err
	}

	imageURL, err := Normalize(runCtx, result)
	if err != nil {
		logger.Warn().Str("shape", describeShape(result)).Msg("Unrecognized generation output")
		return "", err
	}

	logger.Info().Dur("elapsed", time.Since(start)).Str("imageUrl", imageURL).Msg("Image generated")
	return imageURL, nil
}

func (c *Client) providerError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ProviderError{Err: fmt.Errorf("%w after %s", ErrProviderTimeout, c.timeout)}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range contentPolicyMarkers {
		if strings.Contains(msg, marker) {
			return &ProviderError{Err: fmt.Errorf("%w: %w", ErrContentPolicy, err)}
		}
	}
	return &ProviderError{Err: err}
}

// StaticGenerator returns a fixed image without calling any provider. It backs
// GENERATION_MOCK for local development.
type StaticGenerator struct {
	URL string
}

const PlaceholderURL = "https://placehold.co/200x200/FFD700/FFF.png?text=%F0%9F%98%80"

func (g StaticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	if g.URL == "" {
		return PlaceholderURL, nil
	}
	return g.URL, nil
}
