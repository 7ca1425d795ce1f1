// Package prompt resolves named prompt fragments by (namespace, key) with
// pure variable substitution and locale fallback.
//
// Templates contain no control flow: ${name} and $name references are
// replaced with the caller's variables, nothing else. Fragment catalogs are
// compiled in per locale; a missing fragment in the primary locale falls back
// to the default locale.
package prompt

import (
	"fmt"
	"os"
	"strings"
)

// Supported locales.
const (
	LocaleEN   = "en"
	LocaleZhTW = "zh-TW"
)

// DefaultLocale is the fallback used when the primary locale does not carry
// a requested fragment.
const DefaultLocale = LocaleEN

// catalog maps namespace -> key -> template text.
type catalog map[string]map[string]string

// catalogs holds all compiled-in fragment catalogs by locale.
var catalogs = map[string]catalog{
	LocaleEN:   catalogEN,
	LocaleZhTW: catalogZhTW,
}

// Provider resolves prompt fragments for a primary locale with fallback to
// the default locale. The zero value is not usable; use New.
//
// Provider is immutable after construction and safe for concurrent use.
type Provider struct {
	primary  string
	fallback string
}

// New creates a Provider. Unknown or empty primary locales degrade to the
// default locale rather than erroring, matching how locale negotiation
// behaves everywhere else.
func New(primary string) *Provider {
	primary = normalizeLocale(primary)
	if _, ok := catalogs[primary]; !ok {
		primary = DefaultLocale
	}
	return &Provider{primary: primary, fallback: DefaultLocale}
}

// Locale returns the primary locale the provider resolves against.
func (p *Provider) Locale() string {
	return p.primary
}

// Render resolves the fragment at (namespace, key) and substitutes vars into
// it. Unknown fragments are an error; unknown variables expand to the empty
// string, which keeps substitution pure.
func (p *Provider) Render(namespace, key string, vars map[string]string) (string, error) {
	tmpl, ok := lookup(p.primary, namespace, key)
	if !ok {
		tmpl, ok = lookup(p.fallback, namespace, key)
	}
	if !ok {
		return "", fmt.Errorf("unknown prompt fragment %s/%s", namespace, key)
	}

	rendered := os.Expand(tmpl, func(name string) string {
		return vars[name]
	})
	return strings.TrimSpace(rendered), nil
}

func lookup(locale, namespace, key string) (string, bool) {
	ns, ok := catalogs[locale][namespace]
	if !ok {
		return "", false
	}
	tmpl, ok := ns[key]
	return tmpl, ok
}

func normalizeLocale(locale string) string {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en", "en-us", "english":
		return LocaleEN
	case "zh-tw", "zh_tw", "zh-hant":
		return LocaleZhTW
	default:
		return locale
	}
}
