package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelvnc/sentinel/cli/pkg/color"
)

func init() {
	color.Enabled = false
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: " yaml ", want: FormatYAML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter_StatusRouting(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		wantOut   string
		wantError string
	}{
		{name: "table", format: FormatTable, wantOut: "✓ done 3\nnote\n⚠ careful\n", wantError: "✗ failed\n"},
		{name: "json", format: FormatJSON, wantOut: "", wantError: "✓ done 3\nnote\n⚠ careful\n✗ failed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			p := New(&out, &errOut, tt.format)

			p.Success("done %d", 3)
			p.Info("note")
			p.Warn("careful")
			p.Error("failed")

			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantError, errOut.String())
		})
	}
}

func TestPrinter_Data(t *testing.T) {
	v := map[string]interface{}{"incident_id": "inc-1", "risk_score": 70}

	var out bytes.Buffer
	require.NoError(t, New(&out, &out, FormatJSON).Data(v))
	assert.JSONEq(t, `{"incident_id":"inc-1","risk_score":70}`, out.String())
	assert.Contains(t, out.String(), "\n  \"incident_id\"")

	out.Reset()
	require.NoError(t, New(&out, &out, FormatYAML).Data(v))
	assert.Equal(t, "incident_id: inc-1\nrisk_score: 70\n", out.String())
}

func TestTable_Render(t *testing.T) {
	tbl := NewTable("ID", "LEVEL")
	tbl.AddRow("inc-1", "HIGH")
	tbl.AddRow("incident-22")
	tbl.AddRow("x", "LOW", "ignored")

	var out bytes.Buffer
	tbl.Render(&out)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "ID           LEVEL", lines[0])
	assert.Equal(t, "-----------  -----", lines[1])
	assert.Equal(t, "inc-1        HIGH ", lines[2])
	assert.Equal(t, "incident-22       ", lines[3])
	assert.Equal(t, "x            LOW  ", lines[4])
}
