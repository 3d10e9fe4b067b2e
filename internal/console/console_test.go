package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "upper", input: "YES\n", want: true},
		{name: "chinese", input: "是\n", want: true},
		{name: "empty line", input: "\n", want: false},
		{name: "no", input: "n\n", want: false},
		{name: "eof", input: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			ui := New(strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.want, ui.Confirm("确定要删除该学生吗？"))
			assert.Contains(t, out.String(), "确定要删除该学生吗？ [y/N]")
		})
	}
}

func TestAssumeYes(t *testing.T) {
	var out bytes.Buffer
	ui := New(strings.NewReader(""), &out)
	ui.AssumeYes = true
	assert.True(t, ui.Confirm("sure?"))
}

func TestPromptAndNotify(t *testing.T) {
	var out bytes.Buffer
	ui := New(strings.NewReader("  /tmp/out  \nlast"), &out)

	got, ok := ui.Prompt("path: ")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/out", got)

	got, ok = ui.Prompt("again: ")
	assert.True(t, ok, "a final line without newline still counts")
	assert.Equal(t, "last", got)

	_, ok = ui.Prompt("eof: ")
	assert.False(t, ok)

	ui.Notify("缓存清理成功")
	assert.True(t, strings.HasSuffix(out.String(), "缓存清理成功\n"))
}
