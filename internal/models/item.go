package models

import "time"

// RawItem is a single unit of collected text flowing from an adapter to the store.
type RawItem struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Source    string            `json:"source"`
	Timestamp int64             `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewRawItem builds an item stamped with the current time in unix millis.
func NewRawItem(id, content, source string) RawItem {
	return RawItem{
		ID:        id,
		Content:   content,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
	}
}
