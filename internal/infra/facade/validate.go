package facade

import (
	"context"
	"encoding/json"

	"seismcp/internal/domain"
	"seismcp/internal/infra/validate"
)

// validateOnly checks a request against the limits without touching
// the network. The request type is inferred from its shape: a "bulk"
// key means a bulk dataselect, a time window means a single waveform
// request.
func (s *Service) validateOnly(_ context.Context, raw json.RawMessage) (any, error) {
	const op = "facade.validateOnly"

	var probe map[string]json.RawMessage
	if err := decodeArgs(raw, &probe); err != nil {
		return nil, err
	}

	if _, ok := probe["bulk"]; ok {
		var args bulkArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		_, checks, err := args.lines(op)
		if err != nil {
			return nil, err
		}
		estimate, err := validate.Bulk(checks, args.options(), s.cfg.Limits)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"ok":           true,
			"request_type": "waveforms_bulk",
			"estimate":     estimate,
			"limits":       s.cfg.Limits,
		}, nil
	}

	if _, ok := probe["starttime"]; ok {
		var args waveformArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		start, end, err := parseWindow(op, args.Start, args.End)
		if err != nil {
			return nil, err
		}
		estimate, err := validate.Request(start, end, args.options(), s.cfg.Limits)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"ok":           true,
			"request_type": "waveforms",
			"estimate":     estimate,
			"limits":       s.cfg.Limits,
		}, nil
	}

	return nil, domain.E(domain.CodeBadRequest, op,
		"cannot infer request type: expected a time window or a bulk list", nil)
}
