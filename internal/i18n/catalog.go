// Package i18n loads the guidance message catalogs and hands out translators
// bound to the locale that best matches what a client asked for.
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

	"visa-workers/internal/guidance"
)

// BaseLocale is used whenever nothing better matches.
const BaseLocale = "en"

//go:embed locales/*/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds every loaded locale's messages keyed by message key.
type Bundle struct {
	locales map[string]map[string]string
	order   []string // order[0] is BaseLocale, matcher indexes into it
	matcher language.Matcher
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}

	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	b.buildMatcher()
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	dirLocale := path.Base(path.Dir(p))
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if locale != dirLocale {
		return fmt.Errorf("catalog %s: locale %q must match directory %q", p, locale, dirLocale)
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("catalog %s: invalid locale %q: %w", p, locale, err)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages are required", p)
	}

	messages, ok := b.locales[locale]
	if !ok {
		messages = map[string]string{}
		b.locales[locale] = messages
	}
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if _, dup := messages[key]; dup {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", p, key, locale)
		}
		messages[key] = value
	}
	return nil
}

func (b *Bundle) buildMatcher() {
	b.order = []string{BaseLocale}
	for locale := range b.locales {
		if locale != BaseLocale {
			b.order = append(b.order, locale)
		}
	}
	sort.Strings(b.order[1:])

	tags := make([]language.Tag, len(b.order))
	for i, locale := range b.order {
		tags[i] = language.MustParse(locale)
	}
	b.matcher = language.NewMatcher(tags)
}

// Locales lists the loaded locales, base locale first.
func (b *Bundle) Locales() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Match returns the loaded locale that best serves the requested one, which may
// be a single tag ("es-MX") or an Accept-Language header value.
func (b *Bundle) Match(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return BaseLocale
	}
	tags, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(tags) == 0 {
		return BaseLocale
	}
	_, idx, confidence := b.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(b.order) {
		return BaseLocale
	}
	return b.order[idx]
}

// Message returns the raw message for key in locale, falling back to BaseLocale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if msgs, ok := b.locales[locale]; ok {
		if v, ok := msgs[key]; ok {
			return v, true
		}
	}
	if locale != BaseLocale {
		v, ok := b.locales[BaseLocale][key]
		return v, ok
	}
	return "", false
}

// Translator returns a guidance.TranslateFunc for the best match of requested.
func (b *Bundle) Translator(requested string) guidance.TranslateFunc {
	locale := b.Match(requested)
	return func(key, defaultValue string, vars map[string]interface{}) string {
		text, ok := b.Message(locale, key)
		if !ok || text == "" {
			text = defaultValue
		}
		return guidance.Interpolate(text, vars)
	}
}

// Resolver builds a guidance.Resolver localized for requested.
func (b *Bundle) Resolver(requested string, routes guidance.Routes) *guidance.Resolver {
	return guidance.NewResolver(
		guidance.WithTranslator(b.Translator(requested)),
		guidance.WithRoutes(routes),
	)
}
