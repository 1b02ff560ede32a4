package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/statepath/internal/presentation/tui"
)

func TestPrintBanner_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "version 1.2.3")
	assert.NotContains(t, out, "\x1b[", "no escape codes for a plain writer")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 8)
}
