// Package task defines the record shape shared by every store backend
// and the ordering rule feed consumers rely on.
package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrEmptyText rejects create calls whose text trims to nothing. It is a
// caller mistake, not a store failure, and never reaches a backend.
var ErrEmptyText = errors.New("task text must not be empty")

// Record is a single task. The id is assigned by the store at creation and
// never changes or gets reused; text and creatorId are immutable after
// creation; completed only changes through toggle.
type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatorID string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidateText trims the candidate text and rejects empty results. Runs both
// at the HTTP boundary and inside every store backend, so no backend can be
// reached with text that would create a blank record.
func ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}
	return trimmed, nil
}

// SortNewestFirst orders records descending by creation time, ties broken by
// id. A zero CreatedAt means the server timestamp has not been observed yet;
// it is the lowest possible key, so those records sort last.
func SortNewestFirst(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		ti, tj := records[i].CreatedAt, records[j].CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].ID > records[j].ID
	})
}

// CollectionPath is the logical namespace all store and feed operations for
// one deployment are scoped to.
func CollectionPath(appID string) string {
	return fmt.Sprintf("/apps/%s/data/tasks", appID)
}
