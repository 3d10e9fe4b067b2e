package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"homework/internal/model"
)

// ListStudents returns the roster.
func (c *Client) ListStudents(ctx context.Context) ([]model.Student, error) {
	var out struct {
		Students []model.Student `json:"students"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/students", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Students, nil
}

// AddStudent creates a roster entry; the server assigns its id.
func (c *Client) AddStudent(ctx context.Context, in model.StudentInput) (string, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/students", nil, in, nil)
}

// UpdateStudent replaces a student's number and name.
func (c *Client) UpdateStudent(ctx context.Context, id model.ID, in model.StudentInput) (string, error) {
	return c.doJSON(ctx, http.MethodPut, idPath("/api/students/%s", id), nil, in, nil)
}

// DeleteStudent removes a roster entry.
func (c *Client) DeleteStudent(ctx context.Context, id model.ID) (string, error) {
	return c.doJSON(ctx, http.MethodDelete, idPath("/api/students/%s", id), nil, nil, nil)
}

// SubmissionFilter narrows a submission listing. Empty fields do not filter.
type SubmissionFilter struct {
	Course      string
	StudentID   string
	StudentName string
}

func (f SubmissionFilter) values() url.Values {
	q := url.Values{}
	if f.Course != "" {
		q.Set("course", f.Course)
	}
	if f.StudentID != "" {
		q.Set("studentId", f.StudentID)
	}
	if f.StudentName != "" {
		q.Set("studentName", f.StudentName)
	}
	return q
}

// ListSubmissions returns recorded submissions.
func (c *Client) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]model.Submission, error) {
	var out struct {
		Submissions []model.Submission `json:"submissions"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/submissions", f.values(), nil, &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// ListMissingSubmissions returns the students who have not submitted the
// assignments of course. The server computes the set.
func (c *Client) ListMissingSubmissions(ctx context.Context, course string) ([]model.MissingSubmission, error) {
	var out struct {
		Missing []model.MissingSubmission `json:"missing"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/missing-submissions", SubmissionFilter{Course: course}.values(), nil, &out); err != nil {
		return nil, err
	}
	return out.Missing, nil
}

// StudentSubmissions returns one student's submissions ordered by submit time.
func (c *Client) StudentSubmissions(ctx context.Context, studentID string) ([]model.Submission, error) {
	var out struct {
		Submissions []model.Submission `json:"submissions"`
	}
	q := url.Values{"studentId": {studentID}}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/query", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// DeleteSubmission clears a student's prior submission for an assignment so
// it can be uploaded again.
func (c *Client) DeleteSubmission(ctx context.Context, homeworkID model.ID, studentID, studentName string) (string, error) {
	q := url.Values{"studentName": {studentName}}
	return c.doJSON(ctx, http.MethodDelete, idPath("/api/submissions/%s/%s", homeworkID, studentID), q, nil, nil)
}

// DownloadSubmission streams one submitted file into w.
func (c *Client) DownloadSubmission(ctx context.Context, homeworkID model.ID, studentID, filename string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, idPath("/api/submissions/%s/%s/%s", homeworkID, studentID, filename), nil, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s failed: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return 0, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return io.Copy(w, resp.Body)
}

// ListLeaves returns the leave requests submitted on date (YYYY-MM-DD), or
// all of them when date is empty.
func (c *Client) ListLeaves(ctx context.Context, date string) ([]model.Leave, error) {
	var out struct {
		Leaves []model.Leave `json:"leaves"`
	}
	var q url.Values
	if date != "" {
		q = url.Values{"date": {date}}
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/leave/list", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Leaves, nil
}

// ApproveLeave marks a leave request approved.
func (c *Client) ApproveLeave(ctx context.Context, id model.ID) (string, error) {
	return c.doJSON(ctx, http.MethodPost, idPath("/api/leave/approve/%s", id), nil, nil, nil)
}

// RejectLeave marks a leave request rejected.
func (c *Client) RejectLeave(ctx context.Context, id model.ID) (string, error) {
	return c.doJSON(ctx, http.MethodPost, idPath("/api/leave/reject/%s", id), nil, nil, nil)
}

// LeaveRequest is a student's leave application with optional images.
type LeaveRequest struct {
	StudentName string
	StudentID   string
	LeaveType   string
	Reason      string
	Images      []File
}

// SubmitLeave files a leave request.
func (c *Client) SubmitLeave(ctx context.Context, lr LeaveRequest) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	_ = w.WriteField("studentName", lr.StudentName)
	_ = w.WriteField("studentId", lr.StudentID)
	_ = w.WriteField("leaveType", lr.LeaveType)
	_ = w.WriteField("reason", lr.Reason)
	for _, img := range lr.Images {
		part, err := w.CreateFormFile("leaveImages", img.Name)
		if err != nil {
			return "", fmt.Errorf("create form file failed: %w", err)
		}
		if _, err := io.Copy(part, img.Content); err != nil {
			return "", fmt.Errorf("write image %s failed: %w", img.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/leave", nil, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, nil)
}
