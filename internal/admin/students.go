package admin

import (
	"context"

	"go.uber.org/zap"

	"homework/internal/model"
	"homework/internal/view"
)

// LoadStudents fetches the roster.
func (c *Controller) LoadStudents(ctx context.Context) error {
	ctx, tk := c.students.Start(ctx)
	list, err := c.api.ListStudents(ctx)
	if !c.students.Finish(tk, err) {
		return view.ErrSuperseded
	}
	if err != nil {
		c.log.Warn("load students failed", zap.Error(err))
		c.ui.Notify("加载学生列表失败")
		return err
	}
	c.mu.Lock()
	c.studentList = list
	c.mu.Unlock()
	return nil
}

// Students returns a copy of the roster.
func (c *Controller) Students() []model.Student {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Student(nil), c.studentList...)
}

// AddStudent creates a roster entry and reloads the roster.
func (c *Controller) AddStudent(ctx context.Context, in model.StudentInput) error {
	return c.mutate(ctx, "add student",
		func(ctx context.Context) error {
			_, err := c.api.AddStudent(ctx, in)
			return err
		},
		c.LoadStudents, "添加学生成功", "添加学生失败", true)
}

// UpdateStudent replaces a student's number and name and reloads the roster.
func (c *Controller) UpdateStudent(ctx context.Context, id model.ID, in model.StudentInput) error {
	return c.mutate(ctx, "update student",
		func(ctx context.Context) error {
			_, err := c.api.UpdateStudent(ctx, id, in)
			return err
		},
		c.LoadStudents, "更新学生信息成功", "更新学生信息失败", true)
}

// DeleteStudent removes a roster entry after confirmation.
func (c *Controller) DeleteStudent(ctx context.Context, id model.ID) error {
	if !c.ui.Confirm("确定要删除该学生吗？") {
		return view.ErrCancelled
	}
	return c.mutate(ctx, "delete student",
		func(ctx context.Context) error {
			_, err := c.api.DeleteStudent(ctx, id)
			return err
		},
		c.LoadStudents, "删除学生成功", "删除学生失败", false)
}
