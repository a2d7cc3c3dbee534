package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an item.
type Status string

// Possible item status values
const (
	StatusNotDone Status = "NOT_DONE"
	StatusDone    Status = "DONE"
	StatusOverdue Status = "OVERDUE"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotDone, StatusDone, StatusOverdue:
		return true
	default:
		return false
	}
}

// IsFrozen reports whether items in this status reject every engine mutation.
func (s Status) IsFrozen() bool {
	return s == StatusOverdue
}

// ParseStatus matches raw case-insensitively against the status names.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q (expected one of not_done, done, overdue)", ErrInvalidStatus, raw)
	}
	return s, nil
}

// StatusFilter selects items by status. The zero value matches every item.
type StatusFilter struct {
	status Status
	set    bool
}

// NoFilter returns a filter that matches every item.
func NoFilter() StatusFilter {
	return StatusFilter{}
}

// FilterBy returns a filter that matches only items in status s.
func FilterBy(s Status) StatusFilter {
	return StatusFilter{status: s, set: true}
}

// ParseStatusFilter builds a filter from an optional raw query value.
// An absent value yields NoFilter; a present but unrecognized value
// (including the empty string) is ErrInvalidStatus.
func ParseStatusFilter(raw string, present bool) (StatusFilter, error) {
	if !present {
		return NoFilter(), nil
	}
	s, err := ParseStatus(raw)
	if err != nil {
		return StatusFilter{}, err
	}
	return FilterBy(s), nil
}

// Status returns the selected status and whether the filter is set.
func (f StatusFilter) Status() (Status, bool) {
	return f.status, f.set
}

// String implements fmt.Stringer.
func (f StatusFilter) String() string {
	if !f.set {
		return "all"
	}
	return string(f.status)
}
