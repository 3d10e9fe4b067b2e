package admin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"homework/internal/model"
	"homework/internal/view"
)

// LoadHomework fetches the assignment list and derives the course list from
// it in first-seen order.
func (c *Controller) LoadHomework(ctx context.Context) error {
	ctx, tk := c.homework.Start(ctx)
	list, err := c.api.ListHomework(ctx)
	if !c.homework.Finish(tk, err) {
		return view.ErrSuperseded
	}
	if err != nil {
		c.log.Warn("load homework failed", zap.Error(err))
		c.ui.Notify("加载作业列表失败")
		return err
	}

	c.mu.Lock()
	c.homeworkList = list
	c.courses = courseNames(list)
	c.mu.Unlock()
	return nil
}

func courseNames(list []model.Homework) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, h := range list {
		if seen[h.CourseName] {
			continue
		}
		seen[h.CourseName] = true
		out = append(out, h.CourseName)
	}
	return out
}

// Homework returns a copy of the assignment list.
func (c *Controller) Homework() []model.Homework {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Homework(nil), c.homeworkList...)
}

// Courses returns the distinct course names of the assignment list.
func (c *Controller) Courses() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.courses...)
}

// Status derives the open/closed badge of h at the current time.
func (c *Controller) Status(h model.Homework) model.Status {
	return h.DisplayStatus(c.now())
}

// HomeworkDetails shows one assignment in a notification.
func (c *Controller) HomeworkDetails(id model.ID) error {
	h, ok := c.findHomework(id)
	if !ok {
		return ErrUnknownHomework
	}
	c.ui.Notify(fmt.Sprintf("作业详情：\n课程：%s\n标题：%s\n截止日期：%s\n要求：%s",
		h.CourseName, h.Title, h.Deadline, h.Description))
	return nil
}

func (c *Controller) findHomework(id model.ID) (model.Homework, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.homeworkList {
		if h.ID == id {
			return h, true
		}
	}
	return model.Homework{}, false
}

// CreateHomework publishes an assignment and reloads the list. Missing
// filename formats fall back to the default pattern.
func (c *Controller) CreateHomework(ctx context.Context, in model.HomeworkInput) error {
	if len(in.FileNameFormats) == 0 {
		in.FileNameFormats = model.DefaultFormats()
	}
	return c.mutate(ctx, "create homework",
		func(ctx context.Context) error {
			_, err := c.api.AddHomework(ctx, in)
			return err
		},
		c.LoadHomework, "发布作业成功", "发布作业失败", false)
}

// UpdateHomework replaces an assignment and reloads the list.
func (c *Controller) UpdateHomework(ctx context.Context, id model.ID, in model.HomeworkInput) error {
	if len(in.FileNameFormats) == 0 {
		in.FileNameFormats = model.DefaultFormats()
	}
	return c.mutate(ctx, "update homework",
		func(ctx context.Context) error {
			_, err := c.api.UpdateHomework(ctx, id, in)
			return err
		},
		c.LoadHomework, "更新作业成功", "更新作业失败", false)
}

// DeleteHomework removes an assignment after confirmation.
func (c *Controller) DeleteHomework(ctx context.Context, id model.ID) error {
	if !c.ui.Confirm("确定要删除该作业吗？") {
		return view.ErrCancelled
	}
	return c.mutate(ctx, "delete homework",
		func(ctx context.Context) error {
			_, err := c.api.DeleteHomework(ctx, id)
			return err
		},
		c.LoadHomework, "删除作业成功", "删除作业失败", false)
}

// NewDraft starts editing a new assignment with the default filename format.
func (c *Controller) NewDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = 0
	c.draft = model.HomeworkInput{FileNameFormats: model.DefaultFormats()}
}

// EditDraft starts editing an existing assignment.
func (c *Controller) EditDraft(id model.ID) error {
	h, ok := c.findHomework(id)
	if !ok {
		return ErrUnknownHomework
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = id
	c.draft = h.Input()
	return nil
}

// Draft returns a copy of the assignment being edited and its id, zero for a
// new one.
func (c *Controller) Draft() (model.HomeworkInput, model.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	d.FileNameFormats = append(model.Formats(nil), c.draft.FileNameFormats...)
	return d, c.editing
}

// SetDraft replaces the editable fields of the draft, keeping its formats.
func (c *Controller) SetDraft(courseName, title, deadline, requirements string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.CourseName = courseName
	c.draft.Title = title
	c.draft.Deadline = deadline
	c.draft.Requirements = requirements
}

// AddFormat appends the default pattern to the draft.
func (c *Controller) AddFormat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.FileNameFormats.Add()
}

// RemoveFormat drops pattern i of the draft; the last pattern is kept.
func (c *Controller) RemoveFormat(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.FileNameFormats.Remove(i)
}

// SetFormat replaces pattern i of the draft.
func (c *Controller) SetFormat(i int, pattern string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.FileNameFormats.Set(i, pattern)
}

// SaveDraft creates or updates the assignment being edited. The draft is
// reset after success.
func (c *Controller) SaveDraft(ctx context.Context) error {
	in, id := c.Draft()
	var err error
	if id == 0 {
		err = c.CreateHomework(ctx, in)
	} else {
		err = c.UpdateHomework(ctx, id, in)
	}
	if err == nil {
		c.NewDraft()
	}
	return err
}
