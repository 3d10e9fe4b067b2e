package admin

import (
	"context"

	"go.uber.org/zap"

	"homework/internal/apiclient"
	"homework/internal/model"
	"homework/internal/view"
)

// LoadLeaves fetches the leave requests of the selected date.
func (c *Controller) LoadLeaves(ctx context.Context) error {
	c.mu.Lock()
	date := c.date
	c.mu.Unlock()

	ctx, tk := c.leaves.Start(ctx)
	list, err := c.api.ListLeaves(ctx, date)
	if !c.leaves.Finish(tk, err) {
		return view.ErrSuperseded
	}
	if err != nil {
		c.log.Warn("load leaves failed", zap.String("date", date), zap.Error(err))
		c.ui.Notify(apiclient.MessageOr(err, "获取请假列表失败"))
		return err
	}
	c.mu.Lock()
	c.leaveList = list
	c.mu.Unlock()
	return nil
}

// SetDate selects the leave date (YYYY-MM-DD) and reloads.
func (c *Controller) SetDate(ctx context.Context, date string) error {
	c.mu.Lock()
	c.date = date
	c.mu.Unlock()
	return c.LoadLeaves(ctx)
}

// Date returns the selected leave date.
func (c *Controller) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// Leaves returns a copy of the loaded leave requests.
func (c *Controller) Leaves() []model.Leave {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Leave(nil), c.leaveList...)
}

// ApproveLeave approves a request and reloads the list.
func (c *Controller) ApproveLeave(ctx context.Context, id model.ID) error {
	return c.mutate(ctx, "approve leave",
		func(ctx context.Context) error {
			_, err := c.api.ApproveLeave(ctx, id)
			return err
		},
		c.LoadLeaves, "已批准请假申请", "批准请假失败", true)
}

// RejectLeave rejects a request and reloads the list.
func (c *Controller) RejectLeave(ctx context.Context, id model.ID) error {
	return c.mutate(ctx, "reject leave",
		func(ctx context.Context) error {
			_, err := c.api.RejectLeave(ctx, id)
			return err
		},
		c.LoadLeaves, "已拒绝请假申请", "拒绝请假失败", true)
}
