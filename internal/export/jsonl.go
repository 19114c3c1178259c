package export

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONLExporter writes one record per line.
type JSONLExporter struct{}

// Export implements Exporter.
func (e *JSONLExporter) Export(t Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, r := range t.Records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return nil
}

// Extension implements Exporter.
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
