package links

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	list := Defaults()
	require.Len(t, list, 4)
	for _, l := range list {
		assert.NoError(t, validate(l), l.Name)
	}

	// 每次返回新的切片，调用方修改不影响内置列表
	list[0].Name = "changed"
	assert.Equal(t, "Cloudflare Tunnel", Defaults()[0].Name)
}

func TestLoad_emptyPathUsesDefaults(t *testing.T) {
	list, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), list)
}

func TestLoad_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
links:
  - name: Grafana
    icon: "📈"
    url: https://grafana.lan
    description: Metrics
  - name: "  NAS  "
    url: http://10.0.0.2:5000
`), 0o600))

	list, err := Load(path)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Grafana", list[0].Name)
	assert.Equal(t, "📈", list[0].Icon)
	assert.Equal(t, "https://grafana.lan", list[0].URL)
	assert.Equal(t, "NAS", list[1].Name)
	assert.Empty(t, list[1].Icon)
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr string
	}{
		{"empty document", "", 0, ""},
		{"empty list", "links: []", 0, ""},
		{"unknown field", "links:\n  - name: a\n    url: http://a\n    colour: red\n", 0, "colour"},
		{"missing name", "links:\n  - url: http://a\n", 0, "link 1: name is required"},
		{"relative url", "links:\n  - name: a\n    url: /admin\n", 0, "is not absolute"},
		{"bad scheme", "links:\n  - name: a\n    url: ftp://files.lan\n", 0, "must use http or https"},
		{"not yaml", "links: [", 0, "invalid links file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrInvalidLinks)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, list)
			assert.Len(t, list, tt.wantLen)
		})
	}
}

func TestParse_reportsEveryBadLink(t *testing.T) {
	_, err := Parse([]byte("links:\n  - url: http://a\n  - name: b\n    url: nope\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link 1")
	assert.Contains(t, err.Error(), "link 2")
}
