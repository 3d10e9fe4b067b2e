package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadlineStatus(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, loc)

	tests := []struct {
		name     string
		deadline string
		want     Status
	}{
		{"far future", "2099-01-01T00:00:00", StatusOpen},
		{"far past", "2000-01-01T00:00:00", StatusClosed},
		{"exact equality is open", "2026-10-19T12:00:00", StatusOpen},
		{"one second late", "2026-10-19T11:59:59", StatusClosed},
		{"datetime-local value", "2026-10-19T12:01", StatusOpen},
		{"space separated", "2026-10-19 11:59", StatusClosed},
		{"rfc3339 with zone", "2026-10-19T04:00:00Z", StatusOpen},
		{"rfc3339 passed", "2026-10-19T03:59:59Z", StatusClosed},
		{"garbage stays open", "next friday", StatusOpen},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeadlineStatus(tc.deadline, now))
		})
	}
}

func TestStatusLabels(t *testing.T) {
	now := time.Now()

	open := Homework{Deadline: "2099-01-01T00:00:00"}.DisplayStatus(now)
	assert.Equal(t, "可提交", open.Text())
	assert.Equal(t, "badge bg-success", open.BadgeClass())

	closed := Homework{Deadline: "2000-01-01T00:00:00"}.DisplayStatus(now)
	assert.Equal(t, "已截止", closed.Text())
	assert.Equal(t, "badge bg-danger", closed.BadgeClass())
}

func TestFormatting(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)

	assert.Equal(t, "2099/01/01 08:05", FormatDeadline("2099-01-01T08:05", loc))
	assert.Equal(t, "not a date", FormatDeadline("not a date", loc))
	assert.Equal(t, "2024/3/5 09:07:03", FormatSubmitTime("2024-03-05 09:07:03", loc))
	assert.Equal(t, "", FormatSubmitTime("", loc))
}

func TestIDUnmarshal(t *testing.T) {
	var out struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 7, "b": "12", "c": null}`), &out))
	assert.Equal(t, ID(7), out.A)
	assert.Equal(t, ID(12), out.B)
	assert.Equal(t, ID(0), out.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a": "x1"}`), &out))
}

func TestFormatsUnmarshalSingleString(t *testing.T) {
	var h Homework
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "fileNameFormats": "{学号}.pdf"}`), &h))
	assert.Equal(t, Formats{"{学号}.pdf"}, h.FileNameFormats)
}

func TestFormatsKeepAtLeastOne(t *testing.T) {
	f := DefaultFormats()
	assert.False(t, f.Remove(0))
	assert.Len(t, f, 1)

	f.Add()
	f.Set(1, "{姓名}.zip")
	require.Len(t, f, 2)
	assert.False(t, f.Remove(5))
	assert.True(t, f.Remove(0))
	assert.Equal(t, Formats{"{姓名}.zip"}, f)
	assert.False(t, f.Remove(0))
	assert.Len(t, f, 1)

	var empty Formats
	empty.Add()
	assert.Equal(t, DefaultFormats(), empty)
}

func TestFormatsExpandAndMatch(t *testing.T) {
	f := Formats{DefaultFileNameFormat, "{学号}-{unknown}.pdf", "{姓名}.zip"}

	got := f.Expand("2023001", "张三", 3)
	assert.Equal(t, []string{"2023001_张三_实验3.docx", "张三.zip"}, got)

	assert.True(t, f.Match("张三.zip", "2023001", "张三", 3))
	assert.False(t, f.Match("2023001-x.pdf", "2023001", "张三", 3))
}

func TestHomeworkInputDefaults(t *testing.T) {
	in := Homework{CourseName: "OS", Title: "Lab", Description: "do it", Deadline: "2099-01-01T00:00"}.Input()
	assert.Equal(t, "do it", in.Requirements)
	assert.Equal(t, DefaultFormats(), in.FileNameFormats)
}
