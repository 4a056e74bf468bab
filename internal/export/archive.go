package export

import (
	"archive/zip"
	"fmt"
	"io"
)

// Packager bundles encoded payloads into a single compressed zip stream.
type Packager struct{}

// Pack streams the payloads into a zip archive written to w. Entry names
// are the payload names, so a CSV export yields `{contentType}.csv` entries
// and a JSON/XML export a single entry.
func (Packager) Pack(w io.Writer, payloads []Payload) error {
	zw := zip.NewWriter(w)
	for _, p := range payloads {
		entry, err := zw.Create(p.Name)
		if err != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", p.Name, err)
		}
		if _, err := entry.Write(p.Data); err != nil {
			return fmt.Errorf("failed to write archive entry %s: %w", p.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}
