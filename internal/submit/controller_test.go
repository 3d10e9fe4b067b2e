package submit_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homework/internal/apiclient"
	"homework/internal/model"
	"homework/internal/submit"
	"homework/internal/testenv"
	"homework/internal/view"
	"homework/internal/view/viewtest"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) ListHomework(ctx context.Context) ([]model.Homework, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Homework)
	return list, args.Error(1)
}

func (m *mockAPI) UploadHomework(ctx context.Context, up apiclient.UploadRequest) (string, error) {
	args := m.Called(ctx, up)
	return args.String(0), args.Error(1)
}

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestSubmitWithoutFilesSendsNothing(t *testing.T) {
	api := &mockAPI{}
	api.On("ListHomework", mock.Anything).Return([]model.Homework{{ID: 1, Title: "Lab 1"}}, nil)
	ui := &viewtest.UI{}
	c := submit.New(api, ui, nil)

	require.NoError(t, c.Load(context.Background()))
	_, err := c.Select(1)
	require.NoError(t, err)
	c.SetForm(submit.Form{StudentName: "Alice", StudentID: "S1"})

	err = c.Submit(context.Background())
	assert.ErrorIs(t, err, submit.ErrNoFiles)
	assert.Equal(t, "请选择要提交的文件", ui.Last())
	api.AssertNotCalled(t, "UploadHomework", mock.Anything, mock.Anything)
}

func TestSubmitWithoutSelection(t *testing.T) {
	api := &mockAPI{}
	ui := &viewtest.UI{}
	c := submit.New(api, ui, nil)
	c.SelectFiles([]apiclient.File{{Name: "a.docx", Content: strings.NewReader("x")}})

	assert.ErrorIs(t, c.Submit(context.Background()), submit.ErrNoHomework)
	assert.Equal(t, "请先选择要提交的作业", ui.Last())
	_, err := c.Select(42)
	assert.ErrorIs(t, err, submit.ErrUnknownHomework)
	api.AssertNotCalled(t, "UploadHomework", mock.Anything, mock.Anything)
}

func TestLoadFailure(t *testing.T) {
	api := &mockAPI{}
	api.On("ListHomework", mock.Anything).Return(nil, errors.New("connection refused"))
	ui := &viewtest.UI{}
	c := submit.New(api, ui, nil)

	assert.Error(t, c.Load(context.Background()))
	assert.Equal(t, "获取作业列表失败，请刷新页面重试", ui.Last())
	assert.Empty(t, c.Homework())
	assert.False(t, c.Loading())
}

func TestLatestLoadWins(t *testing.T) {
	api := &mockAPI{}
	started := make(chan struct{})
	api.On("ListHomework", mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		close(started)
		<-ctx.Done()
	}).Return(nil, context.Canceled).Once()
	api.On("ListHomework", mock.Anything).Return([]model.Homework{{ID: 2, Title: "fresh"}}, nil).Once()

	ui := &viewtest.UI{}
	c := submit.New(api, ui, nil)

	first := make(chan error, 1)
	go func() { first <- c.Load(context.Background()) }()
	<-started

	require.NoError(t, c.Load(context.Background()))
	assert.ErrorIs(t, <-first, view.ErrSuperseded)
	assert.Equal(t, []model.Homework{{ID: 2, Title: "fresh"}}, c.Homework())
	assert.Empty(t, ui.Notes, "a superseded request reports nothing")
}

func TestStatusBadges(t *testing.T) {
	c := submit.New(&mockAPI{}, &viewtest.UI{}, nil)
	c.SetClock(func() time.Time { return now })

	assert.Equal(t, model.StatusOpen, c.Status(model.Homework{Deadline: "2099-01-01T00:00"}))
	assert.Equal(t, model.StatusClosed, c.Status(model.Homework{Deadline: "2000-01-01T00:00"}))
	assert.Equal(t, "可提交", c.Status(model.Homework{Deadline: "2099-01-01T00:00"}).Text())
}

func TestSubmitAgainstBackend(t *testing.T) {
	ctx := context.Background()
	env := testenv.New(t, now)
	_, err := env.Client.AddStudent(ctx, model.StudentInput{StudentID: "S1", Name: "Alice"})
	require.NoError(t, err)
	_, err = env.Client.AddHomework(ctx, model.HomeworkInput{
		CourseName: "OS", Title: "Lab 1", Deadline: "2099-01-01T00:00", Requirements: "shell",
	})
	require.NoError(t, err)

	ui := &viewtest.UI{}
	c := submit.New(env.Client, ui, nil)
	require.NoError(t, c.Load(ctx))
	require.Len(t, c.Homework(), 1)
	hw, err := c.Details(c.Homework()[0].ID)
	require.NoError(t, err)
	good := model.DefaultFormats().Expand("S1", "Alice", hw.ID)[0]

	c.SetForm(submit.Form{StudentName: "Alice", StudentID: "S1", Description: "done"})
	c.SelectFiles([]apiclient.File{{Name: "wrong.docx", Content: strings.NewReader("x")}})
	require.Error(t, c.Submit(ctx))
	assert.Contains(t, ui.Last(), good, "server message lists the valid names")
	_, stillSelected := c.Selected()
	assert.True(t, stillSelected)

	c.SelectFiles([]apiclient.File{{Name: good, Content: strings.NewReader("int main(){}")}})
	require.NoError(t, c.Submit(ctx))
	assert.Equal(t, "作业提交成功！", ui.Last())
	assert.Empty(t, c.FileNames())
	assert.Equal(t, submit.Form{}, c.Form())
	_, stillSelected = c.Selected()
	assert.False(t, stillSelected)

	subs, err := env.Client.StudentSubmissions(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, []string{good}, subs[0].Filenames)

	_, err = c.Select(hw.ID)
	require.NoError(t, err)
	c.SetForm(submit.Form{StudentName: "Alice", StudentID: "S1"})
	c.SelectFiles([]apiclient.File{{Name: good, Content: strings.NewReader("again")}})
	require.Error(t, c.Submit(ctx))
	assert.Equal(t, "您已经提交过该作业，如需重新提交，请联系聪明的学委", ui.Last())
}
