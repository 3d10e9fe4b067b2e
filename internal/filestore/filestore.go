// Package filestore keeps submitted files under slash-separated keys such as
// homework_3/S1_Alice/S1_Alice_实验3.docx.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrNotExist is returned when no object is stored under a key.
	ErrNotExist = errors.New("filestore: object does not exist")
	// ErrInvalidKey is returned for keys that could escape the store root.
	ErrInvalidKey = errors.New("filestore: invalid key")
)

// Store is a flat object store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// DeletePrefix removes every object under prefix/. Missing prefixes are ignored.
	DeletePrefix(ctx context.Context, prefix string) error
}

// CheckKey rejects empty, absolute and non-canonical keys.
func CheckKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) || path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// CheckName rejects file names that are not a single path segment.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return nil
}

// SubmissionKey is the key of one submitted file.
func SubmissionKey(homeworkID int64, studentID, studentName, filename string) string {
	return path.Join(HomeworkPrefix(homeworkID), studentID+"_"+studentName, filename)
}

// SubmissionPrefix holds every file of one student's submission.
func SubmissionPrefix(homeworkID int64, studentID, studentName string) string {
	return path.Join(HomeworkPrefix(homeworkID), studentID+"_"+studentName)
}

// HomeworkPrefix holds every file submitted for an assignment.
func HomeworkPrefix(homeworkID int64) string {
	return fmt.Sprintf("homework_%d", homeworkID)
}
