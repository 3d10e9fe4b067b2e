package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework/internal/apiclient"
	"homework/internal/auth"
	"homework/internal/model"
	"homework/internal/testenv"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func apiStatus(t *testing.T, err error) (int, string) {
	t.Helper()
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status, apiErr.Message
}

func seed(t *testing.T, env *testenv.Env) model.Homework {
	t.Helper()
	ctx := context.Background()
	_, err := env.Client.AddStudent(ctx, model.StudentInput{StudentID: "S1", Name: "Alice"})
	require.NoError(t, err)
	_, err = env.Client.AddHomework(ctx, model.HomeworkInput{
		CourseName: "OS", Title: "Lab 1", Deadline: "2099-01-01T00:00", Requirements: "write a shell",
	})
	require.NoError(t, err)
	list, err := env.Client.ListHomework(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestStudents(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t, now)

	msg, err := env.Client.AddStudent(ctx, model.StudentInput{StudentID: "S1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "添加学生成功", msg)

	list, err := env.Client.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotZero(t, list[0].ID)
	assert.Equal(t, "Alice", list[0].Name)

	_, err = env.Client.AddStudent(ctx, model.StudentInput{StudentID: "S1", Name: "Eve"})
	status, text := apiStatus(t, err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "该学号已存在", text)

	_, err = env.Client.AddStudent(ctx, model.StudentInput{Name: "Eve"})
	status, text = apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "缺少必要信息", text)

	_, err = env.Client.UpdateStudent(ctx, 999, model.StudentInput{StudentID: "S9", Name: "X"})
	status, _ = apiStatus(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	msg, err = env.Client.DeleteStudent(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "删除学生成功", msg)
}

func TestSubmissionFlow(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t, now)
	hw := seed(t, env)
	name := model.DefaultFormats().Expand("S1", "Alice", hw.ID)[0]

	_, err := env.Client.UploadHomework(ctx, apiclient.UploadRequest{
		StudentName: "Alice", StudentID: "S1", HomeworkID: hw.ID,
		Files: []apiclient.File{{Name: "essay.docx", Content: strings.NewReader("x")}},
	})
	status, text := apiStatus(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, text, name)

	msg, err := env.Client.UploadHomework(ctx, apiclient.UploadRequest{
		StudentName: "Alice", StudentID: "S1", HomeworkID: hw.ID, Description: "done",
		Files: []apiclient.File{{Name: name, Content: strings.NewReader("shell.c")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "作业提交成功", msg)

	subs, err := env.Client.ListSubmissions(ctx, apiclient.SubmissionFilter{Course: "OS", StudentName: "alice"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Lab 1", subs[0].HomeworkTitle)
	assert.Equal(t, "2024-03-01 10:00:00", subs[0].SubmitTime)
	assert.Equal(t, hw.ID, subs[0].HomeworkID)

	resp, err := http.Get(env.URL + "/api/query?studentId=S1")
	require.NoError(t, err)
	var raw struct {
		Success     bool             `json:"success"`
		Submissions []map[string]any `json:"submissions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	_ = resp.Body.Close()
	require.Len(t, raw.Submissions, 1)
	assert.Equal(t, []any{name}, raw.Submissions[0]["files"])
	assert.Equal(t, "2024-03-01 10:00:00", raw.Submissions[0]["submitTime"])

	var buf bytes.Buffer
	n, err := env.Client.DownloadSubmission(ctx, hw.ID, "S1", name, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len("shell.c")), n)
	assert.Equal(t, "shell.c", buf.String())

	_, err = env.Client.DownloadSubmission(ctx, hw.ID, "S1", "nope.docx", io.Discard)
	status, text = apiStatus(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "文件不存在", text)

	_, err = env.Client.DeleteSubmission(ctx, hw.ID, "S1", "Bob")
	status, _ = apiStatus(t, err)
	assert.Equal(t, http.StatusForbidden, status)

	msg, err = env.Client.DeleteSubmission(ctx, hw.ID, "S1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "历史提交已清除", msg)

	subs, err = env.Client.StudentSubmissions(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, subs)

	missing, err := env.Client.ListMissingSubmissions(ctx, "OS")
	require.NoError(t, err)
	assert.Equal(t, []model.MissingSubmission{{
		CourseName: "OS", Title: "Lab 1", StudentID: "S1", StudentName: "Alice", Deadline: "2099-01-01T00:00",
	}}, missing)
}

func TestDownloadAll(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t, now)
	hw := seed(t, env)
	name := model.DefaultFormats().Expand("S1", "Alice", hw.ID)[0]
	dir := filepath.Join(t.TempDir(), "out")

	_, err := env.Client.DownloadAll(ctx, hw.ID, dir)
	status, text := apiStatus(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "没有找到任何提交的文件", text)

	_, err = env.Client.UploadHomework(ctx, apiclient.UploadRequest{
		StudentName: "Alice", StudentID: "S1", HomeworkID: hw.ID,
		Files: []apiclient.File{{Name: name, Content: strings.NewReader("x")}},
	})
	require.NoError(t, err)

	res, err := env.Client.DownloadAll(ctx, hw.ID, dir)
	require.NoError(t, err)
	assert.Equal(t, "已复制 1 个文件到目录: "+dir, res.Message)
	assert.Equal(t, []string{name}, res.Files)
	assert.FileExists(t, filepath.Join(dir, name))
}

func TestLeaves(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t, now)
	seed(t, env)

	msg, err := env.Client.SubmitLeave(ctx, apiclient.LeaveRequest{
		StudentName: "Alice", StudentID: "S1", LeaveType: "病假", Reason: "flu",
		Images: []apiclient.File{{Name: "note.png", Content: strings.NewReader("PNG")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "请假申请提交成功", msg)

	_, err = env.Client.SubmitLeave(ctx, apiclient.LeaveRequest{StudentName: "Alice", StudentID: "S1", LeaveType: "病假", Reason: "again"})
	status, _ := apiStatus(t, err)
	assert.Equal(t, http.StatusConflict, status)

	leaves, err := env.Client.ListLeaves(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, []string{"Alice_S1_20240301_100000_note.png"}, leaves[0].Images)

	msg, err = env.Client.ApproveLeave(ctx, leaves[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "已批准请假申请", msg)
	_, err = env.Client.RejectLeave(ctx, 999)
	status, text := apiStatus(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "请假记录不存在", text)

	env.SetNow(now.AddDate(0, 0, 1))
	msg, err = env.Client.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, "缓存清理成功", msg)

	leaves, err = env.Client.ListLeaves(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestNotice(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t, now)

	text, err := env.Client.UpdateNotice(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, os.WriteFile(env.Notice, []byte("系统将于周五维护"), 0o644))
	text, err = env.Client.UpdateNotice(ctx)
	require.NoError(t, err)
	assert.Equal(t, "系统将于周五维护", text)
}

func TestAdminAuth(t *testing.T) {
	ctx := context.Background()

	open := testenv.New(t, now)
	_, err := open.Client.Login(ctx, "pw")
	status, _ := apiStatus(t, err)
	assert.Equal(t, http.StatusNotFound, status, "login disabled without a password")

	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	env := testenv.New(t, now, testenv.WithAdminPassword(hash))

	_, err = env.Client.ListStudents(ctx)
	status, _ = apiStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)

	_, err = env.Client.ListHomework(ctx)
	assert.NoError(t, err, "student routes stay public")

	_, err = env.Client.Login(ctx, "wrong")
	status, text := apiStatus(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "密码错误", text)

	token, err := env.Client.Login(ctx, "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = env.Client.ListStudents(ctx)
	assert.NoError(t, err)
}

func TestHealthAndMetrics(t *testing.T) {
	env := testenv.New(t, now)
	require.NoError(t, env.Client.Health(context.Background()))
	_, _ = env.Client.ListHomework(context.Background())

	resp, err := http.Get(env.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `homework_http_requests_total{method="GET",route="/api/homework",status="200"} 1`)
}
