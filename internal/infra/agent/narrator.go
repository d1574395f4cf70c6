// Package agent drives a deterministic research workflow against the
// seismology tool server and narrates the results with an LLM.
package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"seismcp/internal/infra/config"
	"seismcp/internal/infra/telemetry"
)

const narratorSystemPrompt = `You are a seismology research assistant. You receive a JSON
summary of an automated waveform acquisition run: the selected event,
the stations used, limit checks, downloads, and phase picks. Write a
short plain-language report for a geophysicist: what was fetched, what
was rejected and why, pick quality, and any caveats. Do not invent
numbers that are not in the summary.`

// Narrator wraps the chat model used to summarize workflow runs.
type Narrator struct {
	model   model.ToolCallingChatModel
	name    string
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewNarrator builds the narration model from config. The API key may
// come directly from config or from the named environment variable.
func NewNarrator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger, metrics *telemetry.Metrics) (*Narrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envVar := strings.TrimSpace(cfg.APIKeyEnvVar)
		if envVar == "" {
			return nil, fmt.Errorf("narrator: API key required: set llm.apiKey or llm.apiKeyEnvVar")
		}
		apiKey = os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("narrator: API key not found in env var %s", envVar)
		}
	}

	modelCfg := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: apiKey,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}
	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("narrator: %w", err)
	}
	return &Narrator{
		model:   chatModel,
		name:    cfg.Model,
		logger:  logger.Named("narrator"),
		metrics: metrics,
	}, nil
}

// Narrate turns the run summary JSON into a prose report.
func (n *Narrator) Narrate(ctx context.Context, summaryJSON string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(narratorSystemPrompt),
		schema.UserMessage(summaryJSON),
	}

	started := time.Now()
	response, err := n.model.Generate(ctx, messages)
	elapsed := time.Since(started)
	if err != nil {
		return "", fmt.Errorf("narrator: %w", err)
	}

	n.observeUsage(response, elapsed)
	return response.Content, nil
}

func (n *Narrator) observeUsage(response *schema.Message, elapsed time.Duration) {
	if n.metrics != nil {
		n.metrics.LLMDuration.Observe(elapsed.Seconds())
	}
	if response == nil || response.ResponseMeta == nil || response.ResponseMeta.Usage == nil {
		return
	}
	tokens := response.ResponseMeta.Usage.TotalTokens
	if tokens <= 0 {
		return
	}
	if n.metrics != nil {
		n.metrics.LLMTokens.Add(float64(tokens))
	}
	n.logger.Debug("narration complete",
		zap.String("model", n.name),
		zap.Int("total_tokens", tokens),
		zap.Duration("elapsed", elapsed))
}
