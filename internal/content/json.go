package content

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// createdKeys are checked in order for a record's creation timestamp.
var createdKeys = []string{"created_at", "created", "date"}

// extractJSON parses a generic JSON value. The title and content string
// fields feed the title and body; the whole object is kept as metadata.
func extractJSON(data []byte) (*ProcessedContent, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	pc := &ProcessedContent{}
	obj, ok := value.(map[string]any)
	if !ok {
		return pc, nil
	}

	pc.Metadata = obj
	if s, ok := obj["title"].(string); ok {
		pc.Title = s
	}
	if s, ok := obj["content"].(string); ok {
		pc.Body = s
	}
	pc.Tags = stringList(obj["tags"])
	pc.Keywords = stringList(obj["keywords"])
	pc.CreatedAt = parseCreated(obj)

	return pc, nil
}

func parseCreated(obj map[string]any) *time.Time {
	for _, key := range createdKeys {
		s, ok := obj[key].(string)
		if !ok || s == "" {
			continue
		}
		if t, err := dateparse.ParseAny(s); err == nil {
			return &t
		}
	}
	return nil
}
