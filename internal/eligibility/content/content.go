// Package content loads per-locale display text for catalog programs. It knows
// nothing about eligibility; results are joined with it only at enrichment.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"benefind/internal/eligibility/models"
)

// DefaultLocale is the locale every program must have content in.
const DefaultLocale = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// ProgramText is one program's display text in one locale.
type ProgramText struct {
	Name       string `yaml:"name"`
	Summary    string `yaml:"summary"`
	HowToApply string `yaml:"how_to_apply"`
	URL        string `yaml:"url"`
}

type localeFile struct {
	Locale   string                           `yaml:"locale"`
	Tiers    map[models.Tier]string           `yaml:"tiers"`
	Programs map[models.ProgramID]ProgramText `yaml:"programs"`
}

// ContentMissingError reports that a locale has no text for a program.
type ContentMissingError struct {
	Locale  string
	Program models.ProgramID
}

func (e *ContentMissingError) Error() string {
	return fmt.Sprintf("no %s content for program %s", e.Locale, e.Program)
}

// Bundle holds display text for every loaded locale. Read-only once loaded.
type Bundle struct {
	locales map[string]localeFile
}

// NormalizeLocale reduces a language tag to its two-letter base ("es-MX" ->
// "es"). Empty or unparseable input yields DefaultLocale.
func NormalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return DefaultLocale
	}
	base, confidence := tag.Base()
	if confidence == language.No || base.String() == "und" {
		return DefaultLocale
	}
	return base.String()
}

// LoadEmbedded loads the locale files compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedLocales, "locales")
}

// LoadDir loads *.yaml locale files from a directory on disk.
func LoadDir(dir string) (*Bundle, error) {
	return LoadFromFS(os.DirFS(dir), ".")
}

// LoadFromFS loads every <locale>.yaml under dir. The file name must match the
// locale it declares, and DefaultLocale must be present.
func LoadFromFS(fsys fs.FS, dir string) (*Bundle, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("content: glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("content: no locale files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]localeFile{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", p, err)
		}
		if err := b.add(strings.TrimSuffix(path.Base(p), ".yaml"), data); err != nil {
			return nil, fmt.Errorf("content: %s: %w", p, err)
		}
	}
	if !b.HasLocale(DefaultLocale) {
		return nil, fmt.Errorf("content: default locale %s is not defined", DefaultLocale)
	}
	return b, nil
}

// Parse builds a bundle from in-memory locale documents keyed by locale.
func Parse(docs map[string][]byte) (*Bundle, error) {
	b := &Bundle{locales: map[string]localeFile{}}
	for locale, data := range docs {
		if err := b.add(locale, data); err != nil {
			return nil, fmt.Errorf("content: %s: %w", locale, err)
		}
	}
	if !b.HasLocale(DefaultLocale) {
		return nil, fmt.Errorf("content: default locale %s is not defined", DefaultLocale)
	}
	return b, nil
}

func (b *Bundle) add(expected string, data []byte) error {
	var file localeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("locale is required")
	}
	if locale != expected {
		return fmt.Errorf("locale %q must match file locale %q", locale, expected)
	}
	if NormalizeLocale(locale) != locale {
		return fmt.Errorf("locale %q must be a two-letter language code", locale)
	}
	if _, dup := b.locales[locale]; dup {
		return fmt.Errorf("locale %q already defined", locale)
	}
	for id, text := range file.Programs {
		if strings.TrimSpace(text.Name) == "" {
			return fmt.Errorf("program %s: name is required", id)
		}
	}
	b.locales[locale] = file
	return nil
}

// HasLocale reports whether the locale exists in this bundle.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[locale]
	return ok
}

// Locales returns all available locales, sorted.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Program returns the exact-locale text for id, or a *ContentMissingError.
func (b *Bundle) Program(locale string, id models.ProgramID) (ProgramText, error) {
	if b != nil {
		if text, ok := b.locales[locale].Programs[id]; ok {
			return text, nil
		}
	}
	return ProgramText{}, &ContentMissingError{Locale: locale, Program: id}
}

// TierLabel returns the display label for a tier, falling back to the default
// locale and then to the tier name itself.
func (b *Bundle) TierLabel(locale string, tier models.Tier) string {
	if b != nil {
		if label, ok := b.locales[locale].Tiers[tier]; ok {
			return label
		}
		if label, ok := b.locales[DefaultLocale].Tiers[tier]; ok {
			return label
		}
	}
	return string(tier)
}
