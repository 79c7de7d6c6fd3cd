package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/MikeSquared-Agency/wayfarer/internal/completion"
)

const DefaultModel = "gemini-2.0-flash"

// Provider implements completion.Completer using Google's Gemini models.
type Provider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewProvider(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (*Provider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Provider{client: client, model: model, timeout: timeout, logger: logger}, nil
}

func (p *Provider) Close() error {
	return p.client.Close()
}

// Complete generates one response. A fresh model handle is built per call so
// concurrent sessions never share generation settings.
func (p *Provider) Complete(ctx context.Context, req completion.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		f := classify(ctx, err)
		p.logger.Error("gemini completion failed",
			"kind", string(f.Kind),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", f
	}

	text := responseText(resp)
	if text == "" {
		f := completion.Remote(0, "empty candidates")
		p.logger.Error("gemini completion failed", "kind", string(f.Kind), "error", f)
		return "", f
	}

	p.logger.Info("completion received", "provider", "gemini", "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok || strings.TrimSpace(string(txt)) == "" {
			continue
		}
		parts = append(parts, string(txt))
	}
	return strings.Join(parts, "\n")
}

func classify(ctx context.Context, err error) *completion.Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return completion.Timeout("gemini request timed out", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		f := completion.Remote(gerr.Code, completion.Truncate(gerr.Message, 200))
		f.Err = err
		return f
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return completion.Timeout("gemini request timed out", err)
		}
		return completion.Transport(err)
	}

	f := completion.Remote(0, completion.Truncate(err.Error(), 200))
	f.Err = err
	return f
}
