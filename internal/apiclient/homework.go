package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"homework/internal/model"
)

// File is one file of a multipart upload.
type File struct {
	Name    string
	Content io.Reader
}

// UploadRequest is a student's homework submission.
type UploadRequest struct {
	StudentName string
	StudentID   string
	HomeworkID  model.ID
	Description string
	Files       []File
}

// ListHomework returns every assignment.
func (c *Client) ListHomework(ctx context.Context) ([]model.Homework, error) {
	var out struct {
		Homework []model.Homework `json:"homework"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, "/api/homework", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Homework, nil
}

// AddHomework publishes an assignment.
func (c *Client) AddHomework(ctx context.Context, in model.HomeworkInput) (string, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/homework", nil, in, nil)
}

// UpdateHomework replaces an assignment's editable fields.
func (c *Client) UpdateHomework(ctx context.Context, id model.ID, in model.HomeworkInput) (string, error) {
	return c.doJSON(ctx, http.MethodPut, idPath("/api/homework/%s", id), nil, in, nil)
}

// DeleteHomework removes an assignment and its submissions.
func (c *Client) DeleteHomework(ctx context.Context, id model.ID) (string, error) {
	return c.doJSON(ctx, http.MethodDelete, idPath("/api/homework/%s", id), nil, nil, nil)
}

// UploadHomework submits files as multipart form data: studentName,
// studentId, homeworkId, description, file0..fileN-1 and fileCount.
func (c *Client) UploadHomework(ctx context.Context, up UploadRequest) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	_ = w.WriteField("studentName", up.StudentName)
	_ = w.WriteField("studentId", up.StudentID)
	_ = w.WriteField("homeworkId", up.HomeworkID.String())
	_ = w.WriteField("description", up.Description)

	for i, f := range up.Files {
		part, err := w.CreateFormFile(fmt.Sprintf("file%d", i), f.Name)
		if err != nil {
			return "", fmt.Errorf("create form file failed: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return "", fmt.Errorf("write file %s failed: %w", f.Name, err)
		}
	}
	_ = w.WriteField("fileCount", strconv.Itoa(len(up.Files)))
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/homework/upload", nil, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, nil)
}

// ExportResult is the answer of a bulk export.
type ExportResult struct {
	Message string
	Files   []string
}

// DownloadAll makes the backend copy every submitted file of an assignment
// into savePath on the server's filesystem.
func (c *Client) DownloadAll(ctx context.Context, homeworkID model.ID, savePath string) (ExportResult, error) {
	var out struct {
		Files []string `json:"files"`
	}
	msg, err := c.doJSON(ctx, http.MethodPost, idPath("/api/homework/%s/download-all", homeworkID), nil,
		map[string]string{"savePath": savePath}, &out)
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{Message: msg, Files: out.Files}, nil
}
