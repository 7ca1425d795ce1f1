package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocaleSelection(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		want    string
	}{
		{name: "english", primary: "en", want: LocaleEN},
		{name: "english alias", primary: "English", want: LocaleEN},
		{name: "traditional chinese", primary: "zh-TW", want: LocaleZhTW},
		{name: "underscore variant", primary: "zh_TW", want: LocaleZhTW},
		{name: "unknown falls back", primary: "fr", want: DefaultLocale},
		{name: "empty falls back", primary: "", want: DefaultLocale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.primary).Locale())
		})
	}
}

func TestRenderSubstitution(t *testing.T) {
	p := New(LocaleEN)

	out, err := p.Render("rag", "document_prompt", map[string]string{
		"doc_num":    "3",
		"chunk_text": "the cat sat on the mat",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "the cat sat on the mat")
	assert.NotContains(t, out, "${")
}

func TestRenderUnknownVariableExpandsEmpty(t *testing.T) {
	p := New(LocaleEN)

	out, err := p.Render("rag", "footer_prompt", nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "${query}")
}

func TestRenderUnknownFragment(t *testing.T) {
	p := New(LocaleEN)

	_, err := p.Render("rag", "missing_key", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rag/missing_key")

	_, err = p.Render("nope", "system_prompt", nil)
	require.Error(t, err)
}

func TestRenderTrimsWhitespace(t *testing.T) {
	p := New(LocaleEN)

	out, err := p.Render("rag", "system_prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(out), out)
	assert.NotEmpty(t, out)
}

func TestRenderLocalizedCatalog(t *testing.T) {
	en, err := New(LocaleEN).Render("rag", "system_prompt", nil)
	require.NoError(t, err)
	zh, err := New(LocaleZhTW).Render("rag", "system_prompt", nil)
	require.NoError(t, err)

	assert.NotEqual(t, en, zh, "locales should carry distinct catalogs")
}

func TestRenderFallsBackToDefaultLocale(t *testing.T) {
	// Every key present in the default catalog must resolve for every
	// supported locale, with or without a localized override.
	for namespace, keys := range catalogEN {
		for key := range keys {
			_, err := New(LocaleZhTW).Render(namespace, key, nil)
			require.NoError(t, err, "%s/%s not resolvable for zh-TW", namespace, key)
		}
	}
}
