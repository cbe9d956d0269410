package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LoadFeed reads a JSON feed file produced by the ingestion layer.
func LoadFeed(path string) (Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Feed{}, fmt.Errorf("read feed: %w", err)
	}
	return ParseFeed(data)
}

// ParseFeed decodes a feed document. Unknown fields are rejected.
func ParseFeed(data []byte) (Feed, error) {
	var feed Feed
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&feed); err != nil {
		return Feed{}, fmt.Errorf("decode feed: %w", err)
	}
	return feed, nil
}
