package color

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withEnabled(t *testing.T, on bool) {
	t.Helper()
	prev := Enabled
	Enabled = on
	t.Cleanup(func() { Enabled = prev })
}

func TestSprintf(t *testing.T) {
	withEnabled(t, true)

	tests := []struct {
		name   string
		params []int
		want   string
	}{
		{name: "single", params: []int{FgRed}, want: "\033[31mhi 1\033[0m"},
		{name: "combined", params: []int{FgGreen, Bold}, want: "\033[32;1mhi 1\033[0m"},
		{name: "none", params: nil, want: "hi 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.params...).Sprintf("hi %d", 1))
		})
	}
}

func TestDisabled(t *testing.T) {
	withEnabled(t, false)

	var buf bytes.Buffer
	New(FgYellow, Bold).Fprintf(&buf, "plain %s", "text")
	assert.Equal(t, "plain text", buf.String())
}

func TestFprintf(t *testing.T) {
	withEnabled(t, true)

	var buf bytes.Buffer
	New(FgCyan).Fprintf(&buf, "%s-%s", "a", "b")
	assert.Equal(t, "\033[36ma-b\033[0m", buf.String())
}
