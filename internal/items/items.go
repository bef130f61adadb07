package items

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"darkroom/internal/services"
)

// Spec is a normalized, immutable description of one configured image.
type Spec struct {
	// URL is the absolute source locator. Never empty after Normalize.
	URL string
	// Name is the base filename used for local artifacts and the remote
	// object. Falls back to the URL path basename, then a hash-derived name.
	Name string
	// DisplayName is a humanized title used in logs and tables.
	DisplayName string
	// Settings holds per-item processing overrides, merged over the
	// configured defaults by MergeSettings.
	Settings map[string]any
}

var titleCaser = cases.Title(language.English)

// Normalize converts a raw configured item (string or table) into a Spec.
// Unrecognized shapes and empty locators yield a services.ErrValidation error.
func Normalize(raw any) (Spec, error) {
	switch value := raw.(type) {
	case string:
		locator := strings.TrimSpace(value)
		if locator == "" {
			return Spec{}, services.Wrap(services.ErrValidation, "items", "normalize", "empty locator string", nil)
		}
		return build(locator, "", nil)
	case map[string]any:
		locator, _ := value["url"].(string)
		if strings.TrimSpace(locator) == "" {
			// Accept the alternate source key used by older configs.
			locator, _ = value["source"].(string)
		}
		locator = strings.TrimSpace(locator)
		if locator == "" {
			return Spec{}, services.Wrap(services.ErrValidation, "items", "normalize", "item table missing url", nil)
		}
		filename, _ := value["filename"].(string)
		var settings map[string]any
		if rawSettings, ok := value["settings"]; ok {
			settings, ok = rawSettings.(map[string]any)
			if !ok {
				return Spec{}, services.Wrap(services.ErrValidation, "items", "normalize",
					fmt.Sprintf("settings must be a table, got %T", rawSettings), nil)
			}
		}
		return build(locator, strings.TrimSpace(filename), settings)
	default:
		return Spec{}, services.Wrap(services.ErrValidation, "items", "normalize",
			fmt.Sprintf("item must be a string or a table, got %T", raw), nil)
	}
}

// NormalizeAll converts every configured item, returning the valid specs and
// the per-item errors for the rest. Index positions in errs match the raw list.
func NormalizeAll(raw []any) (specs []Spec, errs map[int]error) {
	errs = make(map[int]error)
	for i, entry := range raw {
		spec, err := Normalize(entry)
		if err != nil {
			errs[i] = err
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errs
}

func build(locator, filename string, settings map[string]any) (Spec, error) {
	parsed, err := url.Parse(locator)
	if err != nil {
		return Spec{}, services.Wrap(services.ErrValidation, "items", "normalize", "unparseable locator", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Spec{}, services.Wrap(services.ErrValidation, "items", "normalize",
			fmt.Sprintf("locator %q is not absolute", locator), nil)
	}

	name := filename
	if name == "" {
		name = path.Base(parsed.Path)
		if name == "." || name == "/" || name == "" {
			name = fallbackName(locator)
		}
	}

	if settings == nil {
		settings = map[string]any{}
	}

	return Spec{
		URL:         locator,
		Name:        name,
		DisplayName: displayName(name),
		Settings:    settings,
	}, nil
}

// BaseName returns the spec name without its extension.
func (s Spec) BaseName() string {
	return strings.TrimSuffix(s.Name, path.Ext(s.Name))
}

func fallbackName(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return "image_" + hex.EncodeToString(sum[:])[:12] + ".jpg"
}

func displayName(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return name
	}
	return titleCaser.String(base)
}
