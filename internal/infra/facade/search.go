package facade

import (
	"context"
	"encoding/json"

	"seismcp/internal/domain"
	"seismcp/internal/infra/fdsn"
)

// searchEvents queries an event catalog and returns summaries inline.
func (s *Service) searchEvents(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.searchEvents"
	var args eventArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	query, err := args.query(op)
	if err != nil {
		return nil, err
	}
	client, err := s.clientFor(args.Provider)
	if err != nil {
		return nil, err
	}
	events, err := client.QueryEvents(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"ok":       true,
		"provider": client.Provider(),
		"count":    len(events),
		"events":   events,
	}, nil
}

// searchStations queries station metadata, capped to keep responses
// readable for the calling agent.
func (s *Service) searchStations(ctx context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.searchStations"
	var args stationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	query, err := args.query(op)
	if err != nil {
		return nil, err
	}
	client, err := s.clientFor(args.Provider)
	if err != nil {
		return nil, err
	}
	stations, err := client.QueryStations(ctx, query)
	if err != nil {
		return nil, err
	}

	truncated := false
	if len(stations) > domain.MaxStationResults {
		stations = stations[:domain.MaxStationResults]
		truncated = true
	}
	return map[string]any{
		"ok":        true,
		"provider":  client.Provider(),
		"count":     len(stations),
		"truncated": truncated,
		"stations":  stations,
	}, nil
}

// listServices reports the known FDSN data centers.
func (s *Service) listServices(_ context.Context, _ json.RawMessage) (any, error) {
	return map[string]any{
		"ok":        true,
		"default":   s.cfg.Provider,
		"providers": fdsn.Providers,
	}, nil
}

// listArtifacts enumerates previously written artifacts from the
// index.
func (s *Service) listArtifacts(_ context.Context, _ json.RawMessage) (any, error) {
	const op = "facade.listArtifacts"
	if s.index == nil {
		return nil, domain.E(domain.CodeInternal, op, "artifact index not configured", nil)
	}
	entries, err := s.index.List()
	if err != nil {
		return nil, domain.E(domain.CodeInternal, op, "read artifact index", err)
	}
	return map[string]any{
		"ok":        true,
		"count":     len(entries),
		"artifacts": entries,
	}, nil
}
