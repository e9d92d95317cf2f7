package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeedEvent is one completed deed. Immutable once recorded; the aggregator
// only ever reads it.
type DeedEvent struct {
	ID         string
	UserID     string
	DeedID     string
	PointValue int64

	// OccurredAt is when the user completed the deed (client instant,
	// timezone-independent). RecordedAt is when we accepted it.
	OccurredAt time.Time
	RecordedAt time.Time
}

// maxFutureSkew bounds how far ahead of the server clock an event's
// OccurredAt may sit before we reject it as invalid rather than flag it.
const maxFutureSkew = 5 * time.Minute

func NewDeedEvent(id, userID, deedID string, pointValue int64, occurredAt, now time.Time) (*DeedEvent, error) {
	id = strings.TrimSpace(id)
	userID = strings.TrimSpace(userID)
	deedID = strings.TrimSpace(deedID)

	if id == "" {
		id = uuid.NewString()
	}
	if userID == "" {
		return nil, ErrValidation("user_id is required")
	}
	if deedID == "" {
		return nil, ErrValidation("deed_id is required")
	}
	if pointValue <= 0 {
		return nil, ErrValidation("point_value must be > 0")
	}
	if occurredAt.IsZero() {
		return nil, ErrValidation("occurred_at is required")
	}
	if occurredAt.After(now.Add(maxFutureSkew)) {
		return nil, ErrValidationMeta("occurred_at is in the future", map[string]string{
			"occurred_at": occurredAt.UTC().Format(time.RFC3339),
		})
	}

	return &DeedEvent{
		ID:         id,
		UserID:     userID,
		DeedID:     deedID,
		PointValue: pointValue,
		OccurredAt: occurredAt.UTC(),
		RecordedAt: now.UTC(),
	}, nil
}

// Validate re-checks an event that arrived already constructed, e.g. off the
// message queue.
func (e *DeedEvent) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrValidation("event id is required")
	}
	if strings.TrimSpace(e.UserID) == "" {
		return ErrValidation("user_id is required")
	}
	if strings.TrimSpace(e.DeedID) == "" {
		return ErrValidation("deed_id is required")
	}
	if e.PointValue <= 0 {
		return ErrValidation("point_value must be > 0")
	}
	if e.OccurredAt.IsZero() {
		return ErrValidation("occurred_at is required")
	}
	return nil
}
