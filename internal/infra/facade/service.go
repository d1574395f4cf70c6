// Package facade exposes the seismology toolbox over MCP. Every tool
// accepts JSON arguments, returns a JSON document, and never lets an
// error escape as a protocol failure: rejections and upstream problems
// come back as structured {ok:false} payloads the calling agent can
// read.
package facade

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"seismcp/internal/domain"
	"seismcp/internal/infra/artifact"
	"seismcp/internal/infra/config"
	"seismcp/internal/infra/fdsn"
	"seismcp/internal/infra/telemetry"
)

// Service wires the FDSN clients, artifact store, and processing
// pipeline behind the MCP tool surface.
type Service struct {
	cfg     config.Config
	logger  *zap.Logger
	namer   *artifact.Namer
	index   *artifact.Index
	metrics *telemetry.Metrics
}

// New builds a Service. index and metrics may be nil.
func New(cfg config.Config, logger *zap.Logger, index *artifact.Index, metrics *telemetry.Metrics) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Service{
		cfg:     cfg,
		logger:  logger.Named("facade"),
		namer:   artifact.NewNamer(cfg.DataDir),
		index:   index,
		metrics: metrics,
	}, nil
}

// Limits returns the configured request limits.
func (s *Service) Limits() domain.Limits {
	return s.cfg.Limits
}

// clientFor resolves the provider argument, falling back to the
// configured default.
func (s *Service) clientFor(provider string) (*fdsn.Client, error) {
	if provider == "" {
		provider = s.cfg.Provider
	}
	return fdsn.NewClient(provider, time.Duration(s.cfg.TimeoutSeconds)*time.Second, s.logger)
}

func (s *Service) observeTool(tool, status string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTool(tool, status, elapsed)
}

func (s *Service) observeRejection(code domain.ErrorCode) {
	if s.metrics == nil {
		return
	}
	s.metrics.Rejections.WithLabelValues(string(code)).Inc()
}

func (s *Service) observeBytes(n int) {
	if s.metrics == nil {
		return
	}
	s.metrics.BytesFetched.Add(float64(n))
}

func (s *Service) observeArtifact(kind domain.ArtifactKind) {
	if s.metrics == nil {
		return
	}
	s.metrics.ArtifactsSaved.WithLabelValues(string(kind)).Inc()
}

// recordArtifact registers a written artifact in the bbolt index.
func (s *Service) recordArtifact(kind domain.ArtifactKind, tool, provider, id, path, manifestPath string) {
	s.observeArtifact(kind)
	if s.index == nil {
		return
	}
	err := s.index.Put(artifact.Entry{
		ID:        id,
		Kind:      kind,
		Tool:      tool,
		Provider:  provider,
		Path:      path,
		Manifest:  manifestPath,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("artifact index write failed", zap.String("id", id), zap.Error(err))
	}
}

// newManifest seeds the provenance sidecar shared by the download
// tools.
func (s *Service) newManifest(tool, provider string, kwargs map[string]any) domain.Manifest {
	limits := s.cfg.Limits
	return domain.Manifest{
		RunID:         uuid.NewString(),
		Tool:          tool,
		Provider:      provider,
		RequestKwargs: kwargs,
		Limits:        &limits,
		CreatedAt:     time.Now().UTC(),
	}
}

// handler adapts a payload-producing function to the MCP contract.
// Domain errors become {ok:false} payloads rather than tool errors.
func (s *Service) handler(tool string, fn func(ctx context.Context, raw json.RawMessage) (any, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		started := time.Now()
		payload, err := fn(ctx, req.Params.Arguments)
		if err != nil {
			code := domain.CodeFrom(err)
			s.observeRejection(code)
			s.observeTool(tool, "error", time.Since(started))
			s.logger.Warn("tool failed",
				zap.String("tool", tool),
				zap.String("code", string(code)),
				zap.Error(err))
			payload = errorPayload(code, err)
		} else {
			s.observeTool(tool, "ok", time.Since(started))
		}
		return textResult(payload)
	}
}

func errorPayload(code domain.ErrorCode, err error) map[string]any {
	return map[string]any{
		"ok":      false,
		"error":   string(code),
		"message": domain.MessageFrom(err),
	}
}

func textResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, nil
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return domain.E(domain.CodeBadRequest, "facade.decodeArgs", "missing arguments", nil)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.E(domain.CodeBadRequest, "facade.decodeArgs", "malformed arguments", err)
	}
	return nil
}
