package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"homework/internal/apiclient"
	"homework/internal/model"
	"homework/internal/view"
)

// ExportAll asks for a directory on the server and, once confirmed, has the
// server copy every submitted file of the assignment there.
func (c *Controller) ExportAll(ctx context.Context, homeworkID model.ID) (apiclient.ExportResult, error) {
	path, ok := c.ui.Prompt("请输入保存文件的目录路径：")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return apiclient.ExportResult{}, view.ErrCancelled
	}
	if !c.ui.Confirm(fmt.Sprintf("确定要将该作业的全部提交文件复制到 %s 吗？", path)) {
		return apiclient.ExportResult{}, view.ErrCancelled
	}

	done := c.edits.Begin()
	res, err := c.api.DownloadAll(ctx, homeworkID, path)
	done()
	if err != nil {
		c.log.Warn("export submissions failed",
			zap.Int64("homework_id", int64(homeworkID)), zap.String("path", path), zap.Error(err))
		c.ui.Notify(apiclient.MessageOr(err, "复制文件失败，请重试"))
		return apiclient.ExportResult{}, err
	}
	c.ui.Notify(res.Message)
	return res, nil
}

// ClearCache, once confirmed, makes the server drop leave requests from
// before today and assignments closed for two days, then reloads both lists.
func (c *Controller) ClearCache(ctx context.Context) error {
	if !c.ui.Confirm("确定要清除缓存吗？这将删除今天之前的请假记录和已截止两天的作业记录。") {
		return view.ErrCancelled
	}
	return c.mutate(ctx, "clear cache",
		func(ctx context.Context) error {
			_, err := c.api.ClearCache(ctx)
			return err
		},
		func(ctx context.Context) error {
			return errors.Join(c.LoadHomework(ctx), c.LoadLeaves(ctx))
		},
		"缓存清理成功", "清理缓存失败，请重试", true)
}
