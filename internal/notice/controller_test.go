package notice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"homework/internal/view"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) UpdateNotice(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func TestFetchOnce(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateNotice", mock.Anything).Return("v2 上线", nil).Once()
	c := New(api, nil)

	assert.Equal(t, view.Idle, c.Phase())
	c.Fetch(context.Background())
	c.Fetch(context.Background())

	assert.Equal(t, "v2 上线", c.Text())
	assert.Equal(t, view.Succeeded, c.Phase())
	api.AssertNumberOfCalls(t, "UpdateNotice", 1)
}

func TestFetchFailureLeavesTextEmpty(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateNotice", mock.Anything).Return("", errors.New("connection refused"))
	c := New(api, nil)

	c.Fetch(context.Background())
	assert.Empty(t, c.Text())
	assert.Equal(t, view.Failed, c.Phase())
}
