package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/mdsearch/pkg/version"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "default prints full string",
			args: nil,
			check: func(t *testing.T, out string) {
				assert.Equal(t, version.String()+"\n", out)
			},
		},
		{
			name: "short prints only the version",
			args: []string{"--short"},
			check: func(t *testing.T, out string) {
				assert.Equal(t, version.Version, strings.TrimSpace(out))
			},
		},
		{
			name: "json prints build info",
			args: []string{"--json"},
			check: func(t *testing.T, out string) {
				var info version.BuildInfo
				require.NoError(t, json.Unmarshal([]byte(out), &info))
				assert.Equal(t, version.Version, info.Version)
				assert.NotEmpty(t, info.GoVersion)
				assert.NotEmpty(t, info.OS)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: the version command
			cmd := newVersionCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs(tt.args)

			// When: executing it
			err := cmd.Execute()

			// Then: the output matches the format
			require.NoError(t, err)
			tt.check(t, buf.String())
		})
	}
}
