package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Bundle holds flat translation catalogs keyed by base language.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
	matcher   language.Matcher
}

// Load reads the embedded catalogs.
func Load(fallback string, supported []string) (*Bundle, error) {
	return LoadFS(embedded, "locales", fallback, supported)
}

// LoadFS reads <dir>/<lang>.yaml for every supported language. A missing catalog is tolerated
// except for the fallback language.
func LoadFS(fsys fs.FS, dir, fallback string, supported []string) (*Bundle, error) {
	fallback = normalize(fallback)
	if fallback == "" {
		return nil, fmt.Errorf("i18n: fallback language is required")
	}

	langs := []string{fallback}
	seen := map[string]struct{}{fallback: {}}
	for _, l := range supported {
		l = normalize(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		langs = append(langs, l)
	}

	b := &Bundle{
		dict:      make(map[string]map[string]string, len(langs)),
		fallback:  fallback,
		supported: langs,
	}
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		raw, err := fs.ReadFile(fsys, path.Join(dir, l+".yaml"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
		tags = append(tags, language.Make(l))
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Supported lists languages with a loaded catalog, sorted.
func (b *Bundle) Supported() []string {
	out := make([]string, 0, len(b.dict))
	for l := range b.dict {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang has a catalog.
func (b *Bundle) IsSupported(lang string) bool {
	_, ok := b.dict[normalize(lang)]
	return ok
}

// T returns the translation for key in lang, falling back to the default language and finally
// to the key itself.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[normalize(lang)]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Resolve chooses the best supported language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	if strings.TrimSpace(acceptLang) == "" {
		return b.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	tag, _, confidence := b.matcher.Match(prefs...)
	if confidence == language.No {
		return b.fallback
	}
	base, _ := tag.Base()
	if lang := base.String(); b.IsSupported(lang) {
		return lang
	}
	return b.fallback
}

func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i != -1 {
		lang = lang[:i]
	}
	return lang
}
