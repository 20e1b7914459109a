// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/localchat/internal/model"
)

// NoResponseText replaces an empty reply from the server.
const NoResponseText = "No response received"

// FallbackDigest marks placeholder models that did not come from a server.
const FallbackDigest = "mock"

// FallbackResponse is the deterministic reply used when generation fails.
// It always contains the model name and the prompt verbatim.
func FallbackResponse(modelName, prompt string) string {
	return fmt.Sprintf("Fallback response from %s: I received your message %q. "+
		"This is a placeholder reply because the Ollama server is not reachable.", modelName, prompt)
}

// FallbackModels returns the built-in placeholder listing.
func FallbackModels(now time.Time) []model.ModelInfo {
	return []model.ModelInfo{
		{Name: "llama2", Size: 3_800_000_000, Digest: FallbackDigest, ModifiedAt: now},
		{Name: "codellama", Size: 3_800_000_000, Digest: FallbackDigest, ModifiedAt: now},
		{Name: "mistral", Size: 4_100_000_000, Digest: FallbackDigest, ModifiedAt: now},
	}
}

// Service is the inference backend used by the chat store. None of its
// methods return an error: failures degrade to placeholder data.
type Service struct {
	client *Client
	logger *zap.Logger
	now    func() time.Time
}

// NewService wraps client. A nil logger discards diagnostics.
func NewService(client *Client, logger *zap.Logger) *Service {
	if client == nil {
		client = NewClient(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		logger: logger.Named("ollama"),
		now:    time.Now,
	}
}

// Client exposes the raw client for health checks.
func (s *Service) Client() *Client {
	return s.client
}

// ListModels returns the installed models, or FallbackModels when the
// server cannot be reached, answers garbage or has nothing installed.
func (s *Service) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	tags, err := s.client.ListModels(ctx)
	if err != nil {
		s.logger.Warn("listing models failed, using placeholders",
			zap.String("url", s.client.BaseURL()),
			zap.Error(err))
		return FallbackModels(s.now()), nil
	}
	if len(tags) == 0 {
		s.logger.Warn("server has no models installed, using placeholders",
			zap.String("url", s.client.BaseURL()))
		return FallbackModels(s.now()), nil
	}

	models := make([]model.ModelInfo, 0, len(tags))
	for _, t := range tags {
		models = append(models, t.Info())
	}
	s.logger.Debug("listed models", zap.Int("count", len(models)))
	return models, nil
}

// Generate returns the model's reply to prompt, NoResponseText for an empty
// reply, or FallbackResponse on any failure.
func (s *Service) Generate(ctx context.Context, prompt, modelName string) (string, error) {
	start := s.now()
	resp, err := s.client.Generate(ctx, modelName, prompt)
	if err != nil {
		s.logger.Warn("generation failed, using fallback reply",
			zap.String("model", modelName),
			zap.Stringer("kind", errorType(err)),
			zap.Error(err))
		return FallbackResponse(modelName, prompt), nil
	}
	if resp.Response == "" {
		s.logger.Warn("empty generation", zap.String("model", modelName))
		return NoResponseText, nil
	}

	s.logger.Debug("generated reply",
		zap.String("model", modelName),
		zap.Duration("elapsed", s.now().Sub(start)),
		zap.Int("eval_count", resp.EvalCount),
		zap.Float64("tokens_per_sec", resp.TokensPerSecond()))
	return resp.Response, nil
}

func errorType(err error) ErrorType {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrTypeUnknown
}
