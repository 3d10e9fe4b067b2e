// Package query lets a student look up past submissions and clear one to
// upload it again.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"homework/internal/apiclient"
	"homework/internal/model"
	"homework/internal/view"
)

// API is the part of the backend this view talks to.
type API interface {
	ListSubmissions(ctx context.Context, f apiclient.SubmissionFilter) ([]model.Submission, error)
	DeleteSubmission(ctx context.Context, homeworkID model.ID, studentID, studentName string) (string, error)
}

// Controller holds the state of one query view. Nothing is fetched until
// Search is called.
type Controller struct {
	api API
	ui  view.UI
	log *zap.Logger
	loc *time.Location

	search   view.Action
	deleting view.Pending

	mu      sync.Mutex
	filter  apiclient.SubmissionFilter
	results []model.Submission
}

// New creates a query view rendering times in loc, time.Local when nil.
func New(api API, ui view.UI, log *zap.Logger, loc *time.Location) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Controller{api: api, ui: ui, log: log, loc: loc}
}

// SetParams stores the search inputs. Empty values do not filter.
func (c *Controller) SetParams(studentID, studentName string) {
	c.mu.Lock()
	c.filter = apiclient.SubmissionFilter{StudentID: studentID, StudentName: studentName}
	c.mu.Unlock()
}

// Search fetches the matching submissions. Submit times are rewritten to
// the local display format.
func (c *Controller) Search(ctx context.Context) error {
	c.mu.Lock()
	f := c.filter
	c.mu.Unlock()

	ctx, tk := c.search.Start(ctx)
	subs, err := c.api.ListSubmissions(ctx, f)
	if !c.search.Finish(tk, err) {
		return view.ErrSuperseded
	}
	if err != nil {
		c.log.Warn("query submissions failed", zap.String("student_id", f.StudentID), zap.Error(err))
		c.ui.Notify("查询失败，请检查输入条件")
		return err
	}

	for i := range subs {
		subs[i].SubmitTime = model.FormatSubmitTime(subs[i].SubmitTime, c.loc)
	}
	c.mu.Lock()
	c.results = subs
	c.mu.Unlock()
	return nil
}

// Searching reports whether a search is in flight.
func (c *Controller) Searching() bool { return c.search.Busy() }

// Deleting reports whether a resubmit deletion is in flight.
func (c *Controller) Deleting() bool { return c.deleting.Busy() }

// Results returns a copy of the last search results.
func (c *Controller) Results() []model.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Submission(nil), c.results...)
}

// Resubmit deletes sub on the server after confirmation so the student can
// upload it again from the submission view, then repeats the search.
func (c *Controller) Resubmit(ctx context.Context, sub model.Submission) error {
	if !c.ui.Confirm(fmt.Sprintf("确定要删除【%s】的历史提交并重新上传？", sub.CourseName)) {
		return view.ErrCancelled
	}

	done := c.deleting.Begin()
	_, err := c.api.DeleteSubmission(ctx, sub.HomeworkID, sub.StudentID, sub.StudentName)
	done()
	if err != nil {
		c.log.Warn("delete submission failed",
			zap.Int64("homework_id", int64(sub.HomeworkID)), zap.String("student_id", sub.StudentID), zap.Error(err))
		c.ui.Notify("删除失败: " + apiclient.MessageOr(err, err.Error()))
		return err
	}

	c.ui.Notify("历史记录已清除，请到作业提交页面重新上传")
	_ = c.Search(ctx)
	return nil
}
