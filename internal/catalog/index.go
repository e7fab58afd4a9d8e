// Package catalog builds an in-memory lookup over raw catalog rows. The
// index is rebuilt from the table on every read; nothing here is persisted.
package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/MaykerCreative/mayker-proposals/internal/store"
)

// DefaultImageURLTemplate renders a file reference as a public image link.
const DefaultImageURLTemplate = "https://drive.google.com/uc?export=view&id=%s"

// Entry holds the enrichment fields for one product, keyed by uppercased
// trimmed name in the Index.
type Entry struct {
	Price      float64
	ImageURL   string
	Dimensions string
}

type Index map[string]Entry

// BuildIndex maps uppercased trimmed product names to their catalog entries.
// Malformed rows degrade instead of failing: empty names are skipped,
// unparsable prices become 0 and a missing file ref yields an empty image URL.
func BuildIndex(rows []store.CatalogRow, imageURLTemplate string) Index {
	idx := make(Index, len(rows))
	for _, row := range rows {
		name := strings.ToUpper(strings.TrimSpace(row.Name))
		if name == "" {
			continue
		}
		idx[name] = Entry{
			Price:      parsePrice(row.Price),
			ImageURL:   imageURL(imageURLTemplate, row.FileRef),
			Dimensions: strings.TrimSpace(row.Dimensions),
		}
	}
	return idx
}

var parenSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// Lookup finds a catalog entry by product name, case-insensitively. On a
// miss it retries with any trailing parenthesized qualifier stripped, so
// "Widget (Blue)" still matches a catalog entry for "Widget".
func (idx Index) Lookup(name string) (Entry, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if entry, ok := idx[key]; ok {
		return entry, true
	}
	stripped := strings.TrimSpace(parenSuffix.ReplaceAllString(key, ""))
	if stripped != key {
		if entry, ok := idx[stripped]; ok {
			return entry, true
		}
	}
	return Entry{}, false
}

// DisplayItem is one product in the display-sorted catalog list returned to
// the client.
type DisplayItem struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	ImageURL   string  `json:"imageUrl"`
	Dimensions string  `json:"dimensions"`
}

// DisplayList returns the catalog as shown in the proposal editor, sorted by
// name with locale-aware ordering.
func DisplayList(rows []store.CatalogRow, imageURLTemplate string) []DisplayItem {
	items := make([]DisplayItem, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		items = append(items, DisplayItem{
			Name:       name,
			Price:      parsePrice(row.Price),
			ImageURL:   imageURL(imageURLTemplate, row.FileRef),
			Dimensions: strings.TrimSpace(row.Dimensions),
		})
	}

	coll := collate.New(language.AmericanEnglish)
	sort.Slice(items, func(i, j int) bool {
		return coll.CompareString(items[i].Name, items[j].Name) < 0
	})
	return items
}

func parsePrice(raw string) float64 {
	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price < 0 {
		return 0
	}
	return price
}

func imageURL(template, fileRef string) string {
	ref := strings.TrimSpace(fileRef)
	if ref == "" {
		return ""
	}
	if template == "" {
		template = DefaultImageURLTemplate
	}
	return strings.Replace(template, "%s", ref, 1)
}
