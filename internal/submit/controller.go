// Package submit is the homework submission view: it lists assignments and
// uploads a student's files for the selected one.
package submit

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

var (
	// ErrNoFiles is returned by Submit when no file is selected. No request is sent.
	ErrNoFiles = errors.New("submit: no files selected")
	// ErrNoHomework is returned by Submit when no assignment is selected.
	ErrNoHomework = errors.New("submit: no homework selected")
	// ErrUnknownHomework is returned when selecting an id that is not listed.
	ErrUnknownHomework = errors.New("submit: homework not in list")
)

// API is the part of the backend this view talks to.
type API interface {
	ListHomework(ctx context.Context) ([]model.Homework, error)
	UploadHomework(ctx context.Context, up apiclient.UploadRequest) (string, error)
}

// Form is what the student types in.
type Form struct {
	StudentName string
	StudentID   string
	Description string
}

// Controller holds the state of one submission view.
type Controller struct {
	api API
	ui  view.UI
	log *zap.Logger
	now func() time.Time

	load   view.Action
	upload view.Action

	mu       sync.Mutex
	homework []model.Homework
	selected *model.Homework
	form     Form
	files    []apiclient.File
}

// New creates a controller. Call Load to fetch the assignment list.
func New(api API, ui view.UI, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{api: api, ui: ui, log: log, now: time.Now}
}

// SetClock replaces the clock used to derive open/closed status.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// Load fetches the assignment list.
func (c *Controller) Load(ctx context.Context) error {
	ctx, tk := c.load.Start(ctx)
	list, err := c.api.ListHomework(ctx)
	if !c.load.Finish(tk, err) {
		return view.ErrSuperseded
	}
	if err != nil {
		c.log.Warn("fetch homework list failed", zap.Error(err))
		c.ui.Notify("获取作业列表失败，请刷新页面重试")
		return err
	}

	c.mu.Lock()
	c.homework = list
	c.mu.Unlock()
	return nil
}

// Loading reports whether the list is being fetched.
func (c *Controller) Loading() bool { return c.load.Busy() }

// Homework returns a copy of the fetched list.
func (c *Controller) Homework() []model.Homework {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Homework(nil), c.homework...)
}

// Status derives the open/closed badge of h at the current time.
func (c *Controller) Status(h model.Homework) model.Status {
	return h.DisplayStatus(c.now())
}

// Select makes id the assignment being viewed and submitted to.
func (c *Controller) Select(id model.ID) (model.Homework, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.homework {
		if c.homework[i].ID == id {
			h := c.homework[i]
			c.selected = &h
			return h, nil
		}
	}
	return model.Homework{}, ErrUnknownHomework
}

// Details selects id and returns it for display.
func (c *Controller) Details(id model.ID) (model.Homework, error) { return c.Select(id) }

// Selected returns the current assignment.
func (c *Controller) Selected() (model.Homework, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return model.Homework{}, false
	}
	return *c.selected, true
}

// SetForm stores the student's name, number and description.
func (c *Controller) SetForm(f Form) {
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
}

// Form returns the current form values.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// SelectFiles replaces the selected file set.
func (c *Controller) SelectFiles(files []apiclient.File) {
	c.mu.Lock()
	c.files = append([]apiclient.File(nil), files...)
	c.mu.Unlock()
}

// FileNames lists the selected files.
func (c *Controller) FileNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.files))
	for i, f := range c.files {
		names[i] = f.Name
	}
	return names
}

// Submit uploads the selected files for the selected assignment. On success
// the form is cleared and the view returns to the list.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	files := append([]apiclient.File(nil), c.files...)
	form := c.form
	selected := c.selected
	c.mu.Unlock()

	if len(files) == 0 {
		c.ui.Notify("请选择要提交的文件")
		return ErrNoFiles
	}
	if selected == nil {
		c.ui.Notify("请先选择要提交的作业")
		return ErrNoHomework
	}
	for _, f := range files {
		if s, ok := f.Content.(io.Seeker); ok {
			_, _ = s.Seek(0, io.SeekStart)
		}
	}

	ctx, tk := c.upload.Start(ctx)
	msg, err := c.api.UploadHomework(ctx, apiclient.UploadRequest{
		StudentName: form.StudentName,
		StudentID:   form.StudentID,
		HomeworkID:  selected.ID,
		Description: form.Description,
		Files:       files,
	})
	if !c.upload.Finish(tk, err) {
		return view.ErrSuperseded
	}
	if err != nil {
		c.log.Warn("submit homework failed",
			zap.Int64("homework_id", int64(selected.ID)),
			zap.String("student_id", form.StudentID),
			zap.Error(err))
		c.ui.Notify(apiclient.MessageOr(err, "提交作业失败，请重试。"))
		return err
	}

	c.log.Info("homework submitted", zap.Int64("homework_id", int64(selected.ID)), zap.String("message", msg))
	c.ui.Notify("作业提交成功！")
	c.Back()
	return nil
}

// Submitting reports whether an upload is in flight.
func (c *Controller) Submitting() bool { return c.upload.Busy() }

// Back leaves the selected assignment and clears the form.
func (c *Controller) Back() {
	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()
	c.Reset()
}

// Reset clears the form and the selected file set.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.form = Form{}
	c.files = nil
	c.mu.Unlock()
}
