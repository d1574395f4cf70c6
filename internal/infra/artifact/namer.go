// Package artifact derives deterministic, content-addressed names for
// output files and writes the provenance sidecars next to them. The same
// logical request always maps to the same path, independent of key order
// or timestamp representation, so re-issuing a request overwrites the
// previous artifact instead of duplicating it.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"seismcp/internal/domain"
)

// idLength is the truncated hex width of the request digest.
const idLength = 12

// timeKeys are the request fields whose string values are canonicalized
// before hashing so "2024-01-01T00:00:00" and an equivalent structured
// timestamp produce the same identifier.
var timeKeys = map[string]bool{
	"starttime": true,
	"endtime":   true,
	"time":      true,
}

// timeLayouts are the accepted wire representations of an instant.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an instant in any accepted layout, in UTC when the
// representation carries no zone.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// CanonicalTime renders an instant in the canonical form used for
// hashing and manifests.
func CanonicalTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// Normalize recursively prepares a request value for deterministic
// serialization: map keys are emitted sorted (encoding/json already
// guarantees this), timestamp-like values are canonicalized, other
// scalars pass through untouched.
func Normalize(value any) any {
	switch v := value.(type) {
	case time.Time:
		return CanonicalTime(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if timeKeys[key] {
				if s, ok := item.(string); ok {
					if ts, err := ParseTime(s); err == nil {
						out[key] = CanonicalTime(ts)
						continue
					}
				}
				if ts, ok := item.(time.Time); ok {
					out[key] = CanonicalTime(ts)
					continue
				}
			}
			out[key] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Normalize(item)
		}
		return out
	default:
		return value
	}
}

// HashRequest returns the short deterministic identifier for a request.
func HashRequest(obj any) (string, error) {
	raw, err := json.Marshal(Normalize(obj))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:idLength], nil
}

// SafeName strips characters unsuitable for filenames from a prefix.
func SafeName(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '_' || r == '-' || r == '+':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	out := sb.String()
	if len(out) > 200 {
		out = out[:200]
	}
	return out
}

// Extension picks the on-disk extension for an artifact kind and the
// requested format, falling back to JSON when the format is unsupported
// for that kind.
func Extension(kind domain.ArtifactKind, format domain.OutputFormat) string {
	switch kind {
	case domain.ArtifactEvents:
		if format == domain.FormatQuakeML || format == "xml" {
			return "xml"
		}
	case domain.ArtifactStations:
		if format == domain.FormatStationXML || format == "xml" {
			return "xml"
		}
	case domain.ArtifactWaveforms, domain.ArtifactBulk, domain.ArtifactProcessed:
		switch format {
		case domain.FormatMiniSEED, "miniseed":
			return "mseed"
		case domain.FormatSAC:
			return "sac"
		}
	}
	return "json"
}

// Namer derives artifact and manifest paths under the data directory.
type Namer struct {
	dir string
}

func NewNamer(dataDir string) *Namer {
	return &Namer{dir: dataDir}
}

// ArtifactPath returns {dir}/{prefix}_{id}.{ext}.
func (n *Namer) ArtifactPath(prefix, id, ext string) string {
	return filepath.Join(n.dir, fmt.Sprintf("%s_%s.%s", SafeName(prefix), id, ext))
}

// ManifestPath returns the provenance sidecar path for an artifact.
func (n *Namer) ManifestPath(prefix, id string) string {
	return filepath.Join(n.dir, fmt.Sprintf("%s_%s.manifest.json", SafeName(prefix), id))
}
