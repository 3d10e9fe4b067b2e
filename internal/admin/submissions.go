package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"homework/internal/apiclient"
	"homework/internal/model"
	"homework/internal/view"
)

// LoadSubmissions fetches either all submissions or the missing ones of the
// selected course, depending on the missing toggle.
func (c *Controller) LoadSubmissions(ctx context.Context) error {
	c.mu.Lock()
	course, missing := c.course, c.showMissing
	c.mu.Unlock()

	ctx, tk := c.submissions.Start(ctx)
	var (
		subs []model.Submission
		miss []model.MissingSubmission
		err  error
	)
	if missing {
		miss, err = c.api.ListMissingSubmissions(ctx, course)
	} else {
		subs, err = c.api.ListSubmissions(ctx, apiclient.SubmissionFilter{Course: course})
	}
	if !c.submissions.Finish(tk, err) {
		return view.ErrSuperseded
	}
	if err != nil {
		c.log.Warn("load submissions failed", zap.Bool("missing", missing), zap.String("course", course), zap.Error(err))
		c.ui.Notify("加载数据失败")
		return err
	}

	c.mu.Lock()
	c.submitted, c.missing = subs, miss
	c.mu.Unlock()
	return nil
}

// SetCourse changes the course filter and reloads submissions.
func (c *Controller) SetCourse(ctx context.Context, course string) error {
	c.mu.Lock()
	c.course = course
	c.mu.Unlock()
	return c.LoadSubmissions(ctx)
}

// Course returns the course filter; empty means all courses.
func (c *Controller) Course() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.course
}

// ToggleMissing switches between all and missing submissions and reloads.
func (c *Controller) ToggleMissing(ctx context.Context) error {
	c.mu.Lock()
	c.showMissing = !c.showMissing
	c.mu.Unlock()
	return c.LoadSubmissions(ctx)
}

// ShowingMissing reports the state of the missing toggle.
func (c *Controller) ShowingMissing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showMissing
}

// Submissions returns the loaded submissions. Empty while showing missing ones.
func (c *Controller) Submissions() []model.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Submission(nil), c.submitted...)
}

// Missing returns the loaded missing submissions. Empty unless toggled.
func (c *Controller) Missing() []model.MissingSubmission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.MissingSubmission(nil), c.missing...)
}

// DownloadSubmission streams one submitted file into w.
func (c *Controller) DownloadSubmission(ctx context.Context, sub model.Submission, filename string, w io.Writer) error {
	done := c.edits.Begin()
	n, err := c.api.DownloadSubmission(ctx, sub.HomeworkID, sub.StudentID, filename, w)
	done()
	if err != nil {
		c.log.Warn("download submission failed",
			zap.Int64("homework_id", int64(sub.HomeworkID)),
			zap.String("student_id", sub.StudentID),
			zap.String("filename", filename),
			zap.Error(err))
		c.ui.Notify("下载作业失败")
		return err
	}
	c.log.Debug("submission downloaded", zap.String("filename", filename), zap.Int64("bytes", n))
	return nil
}

// ErrInvalidScore is returned for a grade outside 0-100.
var ErrInvalidScore = errors.New("admin: score must be 0-100")

// GradeSubmission prompts for a score and confirms it to the grader. Scores
// are not sent to the server.
func (c *Controller) GradeSubmission(sub model.Submission) (int, error) {
	answer, ok := c.ui.Prompt("请输入分数（0-100）")
	answer = strings.TrimSpace(answer)
	if !ok || answer == "" {
		return 0, view.ErrCancelled
	}
	score, err := strconv.Atoi(answer)
	if err != nil || score < 0 || score > 100 {
		c.ui.Notify("请输入0-100之间的有效分数")
		return 0, ErrInvalidScore
	}
	c.ui.Notify(fmt.Sprintf("已为 %s 的作业评分：%d分", sub.StudentName, score))
	return score, nil
}
