package export

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLExporter writes the whole transcript as one YAML document.
type YAMLExporter struct{}

// Export implements Exporter.
func (e *YAMLExporter) Export(t Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(t)
}

// Extension implements Exporter.
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
