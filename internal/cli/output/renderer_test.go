package output

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTest(mode OutputMode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"TEXT", ModeText},
		{"markdown", ModeMarkdown},
		{"json", ModeJSON},
		{"yaml", ModeAuto},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	r, _, _ := newTest(ModeAuto, true)
	assert.Equal(t, ModeText, r.EffectiveMode())

	r, _, _ = newTest(ModeAuto, false)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r, _, _ = newTest(ModeJSON, true)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestRenderer_NoColorWhenPiped(t *testing.T) {
	r, out, errOut := newTest(ModeText, false)

	r.Header(1, "Exposures")
	r.Success("wrote 3 exposures")
	r.StatusLine("datasources", "success", "(2)")
	r.KeyValue("Run", "abc")
	r.Warning("no projects in scope")

	assert.False(t, ansiPattern.MatchString(out.String()), "unexpected ANSI: %q", out.String())
	assert.Contains(t, out.String(), "✓ wrote 3 exposures")
	assert.Contains(t, out.String(), "Run:")
	assert.Contains(t, errOut.String(), "no projects in scope")
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, _ := newTest(ModeMarkdown, false)

	r.Header(2, "Summary")
	r.KeyValue("Exposures", 3)

	assert.Equal(t, "## Summary\n\n- **Exposures:** 3\n", out.String())
}

func TestRenderer_Table(t *testing.T) {
	r, out, _ := newTest(ModeText, false)
	r.Table(table.Row{"ID", "Name"}, []table.Row{{"1", "Production"}})
	assert.Contains(t, out.String(), "Production")
	assert.Contains(t, out.String(), "┌")

	r, out, _ = newTest(ModeMarkdown, false)
	r.Table(table.Row{"ID", "Name"}, []table.Row{{"1", "Production"}})
	assert.True(t, strings.HasPrefix(out.String(), "| ID | Name |"), out.String())
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTest(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"exposures": 2}))
	assert.Equal(t, "{\n  \"exposures\": 2\n}\n", out.String())
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "- **Key:** v", FormatKeyValue("Key", "v"))
	assert.Equal(t, "Published Datasource", Title("published datasource"))
}
