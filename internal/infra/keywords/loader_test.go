package keywords

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ircfeed/internal/domain/entity"
	"ircfeed/internal/usecase/render"
)

func TestParse_JSON(t *testing.T) {
	data := []byte(`{
  "#zeta": {"keywords": ["rust", "cargo"], "message_template": "[{keyword}] {title} <{link}>"},
  "#alpha": {"keywords": ["go"], "message_template": null},
  "#mid": {"keywords": ["python"]}
}`)

	table, err := Parse(data)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"#zeta", "#alpha", "#mid"}, table.Channels()); diff != "" {
		t.Errorf("channel order mismatch (-want +got):\n%s", diff)
	}

	zeta, ok := table.Rule("#zeta")
	require.True(t, ok)
	assert.Equal(t, []string{"rust", "cargo"}, zeta.Keywords)
	assert.Equal(t, "[{keyword}] {title} <{link}>", zeta.Template)

	alpha, _ := table.Rule("#alpha")
	assert.Equal(t, entity.DefaultMessageTemplate, alpha.Template)
	mid, _ := table.Rule("#mid")
	assert.Equal(t, entity.DefaultMessageTemplate, mid.Template)
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
"#news":
  keywords: [rust, go]
  message_template: "{title} - {link}"
"#security":
  keywords:
    - CVE
    - vulnerability
`)

	table, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"#news", "#security"}, table.Channels())
	sec, _ := table.Rule("#security")
	assert.Equal(t, []string{"CVE", "vulnerability"}, sec.Keywords)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		empty bool
	}{
		{name: "empty document", data: "", empty: true},
		{name: "empty mapping", data: "{}", empty: true},
		{name: "not a mapping", data: `["#news"]`},
		{name: "rule not a mapping", data: `{"#news": ["rust"]}`},
		{name: "no keywords", data: `{"#news": {"keywords": []}}`},
		{name: "missing keywords", data: `{"#news": {"message_template": "{title}"}}`},
		{name: "empty keyword", data: `{"#news": {"keywords": ["rust", ""]}}`},
		{name: "unknown placeholder", data: `{"#news": {"keywords": ["rust"], "message_template": "{headline}"}}`},
		{name: "unbalanced brace", data: `{"#news": {"keywords": ["rust"], "message_template": "{title"}}`},
		{name: "duplicate channel", data: "\"#news\": {keywords: [a]}\n\"#news\": {keywords: [b]}\n"},
		{name: "keywords wrong type", data: `{"#news": {"keywords": "rust"}}`},
		{name: "syntax error", data: `{"#news": {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrConfigLoad), "error %v should wrap ErrConfigLoad", err)
			if tt.empty {
				assert.True(t, errors.Is(err, entity.ErrEmptyKeywordTable))
			}
		})
	}
}

func TestParse_TemplateErrorKind(t *testing.T) {
	_, err := Parse([]byte(`{"#news": {"keywords": ["rust"], "message_template": "{nope}"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, render.ErrMissingPlaceholder))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"#news": {"keywords": ["rust"]}}`), 0o600))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrConfigLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
