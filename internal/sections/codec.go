// Package sections implements the flat text form in which a proposal's
// product sections are persisted, and its structured counterpart.
//
// The grammar is line oriented: a block starts with a section name (a line
// that does not begin with "-" and contains no comma), followed by one
// product per line as "- <name>, <quantity>". Blocks are separated by a
// blank line. The text originates from free-form editor input, so parsing
// is deliberately forgiving: malformed lines are dropped, never errors.
package sections

import (
	"strconv"
	"strings"

	"github.com/MaykerCreative/mayker-proposals/internal/catalog"
)

type Product struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	ImageURL   string  `json:"imageUrl"`
	Dimensions string  `json:"dimensions"`
}

type Section struct {
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}

// Parse decodes the stored text form into sections, enriching each product
// against the current catalog index. Products in the text carry only name
// and quantity; price, image and dimensions always reflect the catalog at
// parse time. Sections that end up with zero products are discarded.
func Parse(text string, idx catalog.Index) []Section {
	out := make([]Section, 0)
	var current *Section

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "-") && !strings.Contains(line, ",") {
			if current != nil && len(current.Products) > 0 {
				out = append(out, *current)
			}
			current = &Section{Name: line, Products: []Product{}}
			continue
		}

		if !strings.HasPrefix(line, "-") || current == nil {
			// Product line before any header, or a header-like line with a
			// comma in it. Dropped.
			continue
		}

		parts := strings.Split(strings.TrimPrefix(line, "-"), ",")
		if len(parts) < 2 {
			continue
		}

		name := strings.TrimSpace(parts[0])
		quantity := 1
		if parsed, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			quantity = parsed
		}

		product := Product{Name: name, Quantity: quantity}
		if entry, ok := idx.Lookup(name); ok {
			product.Price = entry.Price
			product.ImageURL = entry.ImageURL
			product.Dimensions = entry.Dimensions
		}
		current.Products = append(current.Products, product)
	}

	if current != nil && len(current.Products) > 0 {
		out = append(out, *current)
	}
	return out
}

// Format encodes sections into the canonical persisted text. Only name and
// quantity survive: enrichment fields are re-derived from the catalog on the
// next parse, so a catalog change between write and read is reflected on
// read. That divergence is intentional.
func Format(sections []Section) string {
	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(section.Name)
		sb.WriteString("\n")
		for _, product := range section.Products {
			sb.WriteString("- ")
			sb.WriteString(product.Name)
			sb.WriteString(", ")
			sb.WriteString(strconv.Itoa(product.Quantity))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
