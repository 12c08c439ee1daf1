package domain

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Icon is a key from the fixed icon catalog. Decoding always yields a
// catalog member; anything else falls back to IconBot.
type Icon string

// IconBot is the fallback icon.
const IconBot Icon = "bot"

var iconCatalog = map[Icon]struct{}{
	IconBot:            {},
	"banknote":         {},
	"bar-chart":        {},
	"briefcase":        {},
	"calculator":       {},
	"calendar":         {},
	"chart-bar":        {},
	"clipboard-list":   {},
	"cloud":            {},
	"database":         {},
	"file-spreadsheet": {},
	"file-text":        {},
	"folder":           {},
	"globe":            {},
	"headphones":       {},
	"mail":             {},
	"message-square":   {},
	"package":          {},
	"receipt":          {},
	"settings":         {},
	"shield":           {},
	"shopping-cart":    {},
	"truck":            {},
	"users":            {},
	"wallet":           {},
	"workflow":         {},
	"wrench":           {},
	"zap":              {},
}

// Legacy keys stored before the catalog was fixed.
var iconAliases = map[string]Icon{
	"robot":  IconBot,
	"dollar": "banknote",
}

// ParseIcon resolves a stored icon name. Both kebab-case ("file-text") and
// PascalCase ("FileText") spellings are accepted.
func ParseIcon(name string) Icon {
	name = strings.TrimSpace(name)
	if name == "" {
		return IconBot
	}
	key := kebabCase(name)
	if icon, ok := iconAliases[key]; ok {
		return icon
	}
	if _, ok := iconCatalog[Icon(key)]; ok {
		return Icon(key)
	}
	return IconBot
}

// Known reports whether icon is a catalog member.
func (i Icon) Known() bool {
	_, ok := iconCatalog[i]
	return ok
}

// UnmarshalJSON resolves the icon at ingestion time.
func (i *Icon) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*i = ParseIcon(s)
	return nil
}

func kebabCase(s string) string {
	var b strings.Builder
	for idx, r := range s {
		switch {
		case unicode.IsUpper(r):
			if idx > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		case r == '_' || r == ' ':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
