// Package color wraps text in ANSI SGR sequences for terminal output.
package color

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const reset = "\033[0m"

// Foreground colors
const (
	FgRed    = 31
	FgGreen  = 32
	FgYellow = 33
	FgCyan   = 36
	FgWhite  = 37
)

// Attributes
const (
	Bold = 1
	Dim  = 2
)

// Enabled controls whether sequences are emitted. NO_COLOR disables it.
var Enabled = os.Getenv("NO_COLOR") == ""

// Color is a set of SGR parameters.
type Color struct {
	params []int
}

// New creates a Color from SGR parameters.
func New(params ...int) *Color {
	return &Color{params: params}
}

func (c *Color) sequence() string {
	if !Enabled || len(c.params) == 0 {
		return ""
	}
	parts := make([]string, len(c.params))
	for i, p := range c.params {
		parts[i] = strconv.Itoa(p)
	}
	return "\033[" + strings.Join(parts, ";") + "m"
}

func (c *Color) wrap(s string) string {
	seq := c.sequence()
	if seq == "" {
		return s
	}
	return seq + s + reset
}

// Sprintf returns the formatted string wrapped in c.
func (c *Color) Sprintf(format string, a ...interface{}) string {
	return c.wrap(fmt.Sprintf(format, a...))
}

// Fprintf writes the formatted string wrapped in c to w.
func (c *Color) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, c.wrap(fmt.Sprintf(format, a...)))
}
