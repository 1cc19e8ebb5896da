package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
	}{
		{name: "empty ok", output: ""},
		{name: "table ok", output: "table"},
		{name: "json ok", output: "json"},
		{name: "yaml rejected", output: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOutputFormat(tt.output)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDefaultOutput_NotATerminal(t *testing.T) {
	assert.Equal(t, outputJSON, defaultOutput(&bytes.Buffer{}))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTable(&buf, []string{"region", "total"}, [][]string{
		{"EU", "30.75"},
		{"APAC", "5.00"},
	}))
	assert.Equal(t, "REGION  TOTAL\nEU      30.75\nAPAC    5.00\n", buf.String())
}
