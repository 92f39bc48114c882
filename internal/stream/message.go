package stream

import (
	"encoding/json"
	"fmt"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
)

// StreamMessage is a stream entry with its string fields
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseSubmission reads an ingest message either from a JSON "payload" field
// or from flat labId/studentId/path/content/encoding fields
func ParseSubmission(msg *StreamMessage) (*models.IngestMessage, error) {
	var sub models.IngestMessage
	if payload, ok := msg.Fields["payload"]; ok {
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			return nil, fmt.Errorf("%w: invalid payload in message %s: %v", apperr.ErrInvalidArgument, msg.ID, err)
		}
	} else {
		sub = models.IngestMessage{
			LabID:     msg.Fields["labId"],
			StudentID: msg.Fields["studentId"],
			Path:      msg.Fields["path"],
			Content:   msg.Fields["content"],
			Encoding:  msg.Fields["encoding"],
		}
	}

	if sub.LabID == "" || sub.StudentID == "" || sub.Path == "" {
		return nil, fmt.Errorf("%w: message %s is missing labId, studentId or path", apperr.ErrInvalidArgument, msg.ID)
	}
	return &sub, nil
}
