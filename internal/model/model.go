package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the wire format of submission and leave timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// DateLayout is the wire format of leave list dates.
const DateLayout = "2006-01-02"

// Leave request statuses.
const (
	LeavePending  = "待审核"
	LeaveApproved = "已批准"
	LeaveRejected = "已拒绝"
)

// SubmissionSubmitted is the status of every recorded submission.
const SubmissionSubmitted = "已提交"

// ID is a server-assigned identifier. The backend may encode it either as a
// JSON number or as a numeric string.
type ID int64

// UnmarshalJSON accepts 3, "3" and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("model: invalid id %s: %w", b, err)
	}
	*id = ID(n)
	return nil
}

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID parses a decimal id from a path or form value.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("model: invalid id %q: %w", s, err)
	}
	return ID(n), nil
}

// Student is a roster entry.
type Student struct {
	ID        ID     `json:"id"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// StudentInput is the create/update body for a student.
type StudentInput struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// Homework is an assignment as returned by the API.
type Homework struct {
	ID              ID      `json:"id"`
	CourseName      string  `json:"course_name"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Deadline        string  `json:"deadline"`
	FileNameFormats Formats `json:"fileNameFormats"`
	Status          string  `json:"status,omitempty"`
}

// HomeworkInput is the create/update body for an assignment.
type HomeworkInput struct {
	CourseName      string  `json:"courseName"`
	Title           string  `json:"title"`
	Deadline        string  `json:"deadline"`
	Requirements    string  `json:"requirements"`
	FileNameFormats Formats `json:"fileNameFormats,omitempty"`
}

// Input converts an existing assignment into an editable draft.
func (h Homework) Input() HomeworkInput {
	formats := append(Formats(nil), h.FileNameFormats...)
	if len(formats) == 0 {
		formats = DefaultFormats()
	}
	return HomeworkInput{
		CourseName:      h.CourseName,
		Title:           h.Title,
		Deadline:        h.Deadline,
		Requirements:    h.Description,
		FileNameFormats: formats,
	}
}

// Submission is one student's upload record for one assignment.
type Submission struct {
	ID            ID        `json:"id"`
	HomeworkID    ID        `json:"homework_id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	Description   string    `json:"description"`
	Filenames     []string  `json:"filenames"`
	SubmitTime    string    `json:"submit_time"`
	Status        string    `json:"status"`
	HomeworkTitle string    `json:"homeworkTitle,omitempty"`
	CourseName    string    `json:"courseName,omitempty"`
	SubmittedAt   time.Time `json:"-"`
}

// MissingSubmission is a roster student with no submission for an assignment.
type MissingSubmission struct {
	CourseName  string `json:"course_name"`
	Title       string `json:"title"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Deadline    string `json:"deadline"`
}

// Leave is a student's leave request.
type Leave struct {
	ID          ID        `json:"id"`
	StudentName string    `json:"studentName"`
	StudentID   string    `json:"studentId"`
	LeaveType   string    `json:"leaveType"`
	Reason      string    `json:"reason"`
	Images      []string  `json:"leaveImages"`
	SubmitTime  string    `json:"submitTime"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"-"`
}

// LeaveStatusClass returns the text class used to colour a leave status.
func LeaveStatusClass(status string) string {
	switch status {
	case LeavePending:
		return "text-warning"
	case LeaveApproved:
		return "text-success"
	case LeaveRejected:
		return "text-danger"
	}
	return ""
}

// SubmissionStatusClass returns the badge class for a submission status.
func SubmissionStatusClass(status string) string {
	switch status {
	case SubmissionSubmitted:
		return "badge bg-success"
	case "已截止":
		return "badge bg-danger"
	case "未提交":
		return "badge bg-warning"
	}
	return "badge bg-secondary"
}

// Formats is the list of accepted file name patterns of an assignment.
type Formats []string

// UnmarshalJSON accepts either a list or a single pattern string.
func (f *Formats) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Formats{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*f = list
	return nil
}
