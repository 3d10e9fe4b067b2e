// Package admin is the course administration console: roster and assignment
// management, submission review, leave approval and maintenance actions.
//
// Every mutation is followed by a fresh fetch of the affected list; the
// controller never patches its lists locally.
package admin

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"homework/internal/apiclient"
	"homework/internal/model"
	"homework/internal/view"
)

// API is the part of the backend the console talks to.
type API interface {
	ListStudents(ctx context.Context) ([]model.Student, error)
	AddStudent(ctx context.Context, in model.StudentInput) (string, error)
	UpdateStudent(ctx context.Context, id model.ID, in model.StudentInput) (string, error)
	DeleteStudent(ctx context.Context, id model.ID) (string, error)

	ListHomework(ctx context.Context) ([]model.Homework, error)
	AddHomework(ctx context.Context, in model.HomeworkInput) (string, error)
	UpdateHomework(ctx context.Context, id model.ID, in model.HomeworkInput) (string, error)
	DeleteHomework(ctx context.Context, id model.ID) (string, error)

	ListSubmissions(ctx context.Context, f apiclient.SubmissionFilter) ([]model.Submission, error)
	ListMissingSubmissions(ctx context.Context, course string) ([]model.MissingSubmission, error)
	DownloadSubmission(ctx context.Context, homeworkID model.ID, studentID, filename string, w io.Writer) (int64, error)
	DownloadAll(ctx context.Context, homeworkID model.ID, savePath string) (apiclient.ExportResult, error)

	ListLeaves(ctx context.Context, date string) ([]model.Leave, error)
	ApproveLeave(ctx context.Context, id model.ID) (string, error)
	RejectLeave(ctx context.Context, id model.ID) (string, error)

	ClearCache(ctx context.Context) (string, error)
}

// ErrUnknownHomework is returned when an id is not in the loaded list.
var ErrUnknownHomework = errors.New("admin: homework not in list")

// Controller holds the state of one admin console.
type Controller struct {
	api API
	ui  view.UI
	log *zap.Logger
	now func() time.Time

	// List loads are latest-wins; mutations and downloads each report
	// their own outcome.
	students    view.Action
	homework    view.Action
	submissions view.Action
	leaves      view.Action
	edits       view.Pending

	mu           sync.Mutex
	studentList  []model.Student
	homeworkList []model.Homework
	courses      []string
	course       string
	showMissing  bool
	submitted    []model.Submission
	missing      []model.MissingSubmission
	date         string
	leaveList    []model.Leave
	draft        model.HomeworkInput
	editing      model.ID
}

// New creates a console. The leave date starts at today.
func New(api API, ui view.UI, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{api: api, ui: ui, log: log, now: time.Now}
	c.date = c.now().Format(model.DateLayout)
	c.draft = model.HomeworkInput{FileNameFormats: model.DefaultFormats()}
	return c
}

// SetClock replaces the clock. The leave date is reset to the new today.
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	c.date = now().Format(model.DateLayout)
}

// LoadAll fetches every list the console shows.
func (c *Controller) LoadAll(ctx context.Context) error {
	return errors.Join(
		c.LoadStudents(ctx),
		c.LoadHomework(ctx),
		c.LoadSubmissions(ctx),
		c.LoadLeaves(ctx),
	)
}

// mutate runs one mutating call, reloads on success and reports the outcome.
// The server message replaces fallback when serverMsg is set.
func (c *Controller) mutate(ctx context.Context, op string, call func(context.Context) error,
	reload func(context.Context) error, success, fallback string, serverMsg bool) error {
	done := c.edits.Begin()
	err := call(ctx)
	done()
	if err != nil {
		c.log.Warn(op+" failed", zap.Error(err))
		if serverMsg {
			c.ui.Notify(apiclient.MessageOr(err, fallback))
		} else {
			c.ui.Notify(fallback)
		}
		return err
	}
	if reload != nil {
		_ = reload(ctx)
	}
	c.ui.Notify(success)
	return nil
}

// Busy reports whether any request of the console is in flight.
func (c *Controller) Busy() bool {
	return c.students.Busy() || c.homework.Busy() || c.submissions.Busy() ||
		c.leaves.Busy() || c.edits.Busy()
}
