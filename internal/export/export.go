// Package export writes a snapshot of a session transcript to a file.
// Transcripts are never read back.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omochice/relay-chat/internal/session"
	"github.com/samber/lo"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(t Transcript, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "pb":
		return &ProtoExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, yaml, md, pb)", format)
	}
}

// Record is one exported entry.
type Record struct {
	ID      string    `json:"id" yaml:"id"`
	Sender  string    `json:"sender" yaml:"sender"`
	Content string    `json:"content" yaml:"content"`
	Origin  string    `json:"origin" yaml:"origin"`
	At      time.Time `json:"at" yaml:"at"`
}

// Transcript is a point-in-time copy of a session log.
type Transcript struct {
	SessionID  string    `yaml:"session_id"`
	Endpoint   string    `yaml:"endpoint"`
	Owner      string    `yaml:"owner,omitempty"`
	ExportedAt time.Time `yaml:"exported_at"`
	Records    []Record  `yaml:"records"`
}

// Source is the part of a session an export reads.
type Source interface {
	ID() uuid.UUID
	URL() string
	Identity() (session.Identity, bool)
	Entries() []session.Entry
}

// Snapshot copies the current log of src.
func Snapshot(src Source, now time.Time) Transcript {
	identity, _ := src.Identity()
	return Transcript{
		SessionID:  src.ID().String(),
		Endpoint:   src.URL(),
		Owner:      identity.Name,
		ExportedAt: now,
		Records: lo.Map(src.Entries(), func(e session.Entry, _ int) Record {
			return Record{
				ID:      e.ID.String(),
				Sender:  e.SenderName,
				Content: e.Content,
				Origin:  e.Origin.String(),
				At:      e.ReceivedAt,
			}
		}),
	}
}

// SaveFile writes t to path in the format named by the file extension.
func SaveFile(path string, t Transcript) error {
	exporter, err := NewExporter(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := exporter.Export(t, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export transcript: %w", err)
	}
	return f.Close()
}
