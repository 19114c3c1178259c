package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omochice/relay-chat/internal/session"
)

// MarkdownExporter writes a human-readable transcript.
type MarkdownExporter struct{}

// Export implements Exporter.
func (e *MarkdownExporter) Export(t Transcript, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Chat %s\n\n", t.SessionID)
	_, _ = fmt.Fprintf(w, "**Relay:** %s  \n", t.Endpoint)
	if t.Owner != "" {
		_, _ = fmt.Fprintf(w, "**Name:** %s  \n", t.Owner)
	}
	_, _ = fmt.Fprintf(w, "**Exported:** %s  \n", t.ExportedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(t.Records))

	if len(t.Records) == 0 {
		_, err := fmt.Fprintf(w, "_No messages yet_\n")
		return err
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	for _, r := range t.Records {
		sender := r.Sender
		if r.Origin == session.OriginSent.String() {
			sender += " (you)"
		}
		if _, err := fmt.Fprintf(w, "**%s** %s\n\n%s\n\n", escapeMarkdown(sender), r.At.Format("15:04:05"), escapeMarkdown(r.Content)); err != nil {
			return err
		}
	}
	return nil
}

// escapeMarkdown escapes emphasis markers
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "\\*\\*")
	return strings.ReplaceAll(text, "__", "\\_\\_")
}

// Extension implements Exporter.
func (e *MarkdownExporter) Extension() string {
	return "md"
}
