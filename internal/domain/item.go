package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DuePrecision is the resolution due times are normalized to. It matches the
// microsecond precision of Postgres timestamps so that duplicate detection
// compares the same instants no matter which store holds the item.
const DuePrecision = time.Microsecond

// Item is a to-do entry tracked by the service.
type Item struct {
	ID           uuid.UUID  `json:"id"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	CreationTime time.Time  `json:"creation_time"`
	DueTime      time.Time  `json:"due_time"`
	DoneTime     *time.Time `json:"done_time"`
}

// ItemDraft carries the caller-editable fields of an item for create and
// update. A zero DueTime stands for a missing due date.
type ItemDraft struct {
	Description string
	DueTime     time.Time
}

// NormalizeTime converts t to UTC at DuePrecision.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(DuePrecision)
}

// Normalized returns a copy of the draft with its due time normalized.
func (d ItemDraft) Normalized() ItemDraft {
	if !d.DueTime.IsZero() {
		d.DueTime = NormalizeTime(d.DueTime)
	}
	return d
}

// Validate checks the draft against now. The description must not be blank
// and the due time must be strictly after now.
func (d ItemDraft) Validate(now time.Time) error {
	if strings.TrimSpace(d.Description) == "" {
		return ErrEmptyDescription
	}
	if d.DueTime.IsZero() || !d.DueTime.After(now) {
		return ErrDueTimeNotFuture
	}
	return nil
}

// NewItem builds a NOT_DONE item from a validated draft. The ID is left as
// uuid.Nil for the store to assign.
func NewItem(draft ItemDraft, now time.Time) *Item {
	draft = draft.Normalized()
	return &Item{
		Description:  draft.Description,
		Status:       StatusNotDone,
		CreationTime: NormalizeTime(now),
		DueTime:      draft.DueTime,
	}
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	if i.DoneTime != nil {
		done := *i.DoneTime
		c.DoneTime = &done
	}
	return &c
}

// ApplyDraft replaces the editable fields. Status and timestamps are untouched.
func (i *Item) ApplyDraft(draft ItemDraft) {
	draft = draft.Normalized()
	i.Description = draft.Description
	i.DueTime = draft.DueTime
}

// MarkDone moves the item into DONE at the given instant.
func (i *Item) MarkDone(at time.Time) {
	done := NormalizeTime(at)
	i.Status = StatusDone
	i.DoneTime = &done
}

// MarkNotDone moves the item back into NOT_DONE and clears the done time.
func (i *Item) MarkNotDone() {
	i.Status = StatusNotDone
	i.DoneTime = nil
}

// MarkOverdue moves the item into the terminal OVERDUE status.
// The done time is left as is.
func (i *Item) MarkOverdue() {
	i.Status = StatusOverdue
}

// IsOverdueAt reports whether an open item's due time has passed at now.
func (i *Item) IsOverdueAt(now time.Time) bool {
	return i.Status == StatusNotDone && i.DueTime.Before(now)
}
