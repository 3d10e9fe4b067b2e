package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"homework_1/S1_Alice/a.docx", true},
		{"leave_images/x.png", true},
		{"", false},
		{"/etc/passwd", false},
		{"homework_1/../../etc", false},
		{"homework_1//a", false},
		{"homework_1/./a", false},
		{`homework_1\a`, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := CheckKey(tt.key)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, CheckName("S1_Alice_实验3.docx"))
	assert.Error(t, CheckName("../a.docx"))
	assert.Error(t, CheckName(".."))
	assert.Error(t, CheckName(""))
}

func TestSubmissionKey(t *testing.T) {
	assert.Equal(t, "homework_3/S1_Alice/a.docx", SubmissionKey(3, "S1", "Alice", "a.docx"))
	assert.Equal(t, "homework_3/S1_Alice", SubmissionPrefix(3, "S1", "Alice"))
}

func TestLocal(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	testStore(t, store)
}

// testStore checks the behaviour every Store shares.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	key := SubmissionKey(1, "S1", "Alice", "S1_Alice_实验1.docx")
	other := SubmissionKey(1, "S2", "Bob", "b.docx")
	kept := SubmissionKey(2, "S1", "Alice", "a.docx")
	for _, k := range []string{key, other, kept} {
		require.NoError(t, store.Put(ctx, k, strings.NewReader("hello "+k)))
	}

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello "+key, string(body))

	_, err = store.Open(ctx, SubmissionKey(1, "S1", "Alice", "missing.docx"))
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, store.DeletePrefix(ctx, SubmissionPrefix(1, "S1", "Alice")))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotExist)
	rc, err = store.Open(ctx, other)
	require.NoError(t, err, "sibling submission survives")
	_ = rc.Close()

	require.NoError(t, store.DeletePrefix(ctx, HomeworkPrefix(1)))
	_, err = store.Open(ctx, other)
	assert.ErrorIs(t, err, ErrNotExist)
	rc, err = store.Open(ctx, kept)
	require.NoError(t, err, "homework_2 is not under homework_1")
	_ = rc.Close()

	assert.NoError(t, store.DeletePrefix(ctx, HomeworkPrefix(9)), "missing prefix is ignored")
	assert.ErrorIs(t, store.Put(ctx, "../escape", strings.NewReader("x")), ErrInvalidKey)
	_, err = store.Open(ctx, "/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
