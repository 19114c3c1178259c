package export

import (
	"fmt"
	"io"
	"time"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoExporter writes each record as a size-delimited structpb.Struct,
// readable with protodelim.UnmarshalFrom.
type ProtoExporter struct{}

// Export implements Exporter.
func (e *ProtoExporter) Export(t Transcript, w io.Writer) error {
	for _, r := range t.Records {
		msg, err := structpb.NewStruct(map[string]any{
			"session_id": t.SessionID,
			"id":         r.ID,
			"sender":     r.Sender,
			"content":    r.Content,
			"origin":     r.Origin,
			"at":         r.At.Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("failed to convert record %s: %w", r.ID, err)
		}
		if _, err := protodelim.MarshalTo(w, msg); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}
	return nil
}

// Extension implements Exporter.
func (e *ProtoExporter) Extension() string {
	return "pb"
}
