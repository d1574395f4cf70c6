package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"seismcp/internal/domain"
)

// WriteManifest persists the provenance sidecar as indented JSON. The
// sidecar is write-once by convention: identical requests overwrite the
// identical path, nothing else touches it.
func WriteManifest(path string, manifest domain.Manifest) error {
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
