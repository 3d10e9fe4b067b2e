package model

import (
	"errors"
	"strings"
	"time"
)

// ErrBadDeadline is returned for deadlines in none of the accepted layouts.
var ErrBadDeadline = errors.New("model: unrecognised deadline format")

// Layouts without a zone are read in the caller's location, the way a
// browser reads a datetime-local value.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDeadline parses RFC 3339 timestamps and the zone-less layouts the
// admin console produces.
func ParseDeadline(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrBadDeadline
}

// Status is the derived open/closed state of an assignment.
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
)

// Text is the label shown next to an assignment.
func (s Status) Text() string {
	if s == StatusClosed {
		return "已截止"
	}
	return "可提交"
}

// BadgeClass is the badge style for the label.
func (s Status) BadgeClass() string {
	if s == StatusClosed {
		return "badge bg-danger"
	}
	return "badge bg-success"
}

func (s Status) String() string {
	if s == StatusClosed {
		return "closed"
	}
	return "open"
}

// DeadlineStatus is open iff now <= deadline. An unparseable deadline never
// compares as passed, so it stays open.
func DeadlineStatus(deadline string, now time.Time) Status {
	d, err := ParseDeadline(deadline, now.Location())
	if err != nil {
		return StatusOpen
	}
	if now.After(d) {
		return StatusClosed
	}
	return StatusOpen
}

// DisplayStatus derives the status of h at now. It is never persisted.
func (h Homework) DisplayStatus(now time.Time) Status {
	return DeadlineStatus(h.Deadline, now)
}

// FormatDeadline renders a deadline as 2006/01/02 15:04 in loc. Values that do
// not parse are returned unchanged.
func FormatDeadline(deadline string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t, err := ParseDeadline(deadline, loc)
	if err != nil {
		return deadline
	}
	return t.In(loc).Format("2006/01/02 15:04")
}

// FormatSubmitTime renders a submit timestamp in the local display format
// 2006/1/2 15:04:05.
func FormatSubmitTime(submitTime string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(TimeLayout, submitTime, loc)
	if err != nil {
		t, err = ParseDeadline(submitTime, loc)
		if err != nil {
			return submitTime
		}
	}
	return t.In(loc).Format("2006/1/2 15:04:05")
}
