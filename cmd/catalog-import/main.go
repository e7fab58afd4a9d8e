// catalog-import replaces the product catalog from an .xlsx workbook. The
// first sheet is read with a header row followed by one product per row:
// name, category, price, dimensions, fileRef.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/MaykerCreative/mayker-proposals/internal/config"
	"github.com/MaykerCreative/mayker-proposals/internal/store"
)

func main() {
	path := flag.String("file", "", "path to the catalog .xlsx workbook")
	flag.Parse()

	if *path == "" {
		log.Fatal("usage: catalog-import -file catalog.xlsx")
	}

	items, err := readWorkbook(*path)
	if err != nil {
		log.Fatalf("read workbook: %v", err)
	}
	if len(items) == 0 {
		log.Fatal("workbook contains no catalog rows, refusing to clear the catalog")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	if err := dataStore.ReplaceCatalog(ctx, items); err != nil {
		log.Fatalf("replace catalog: %v", err)
	}

	log.Printf("catalog replaced with %d items from %s", len(items), *path)
}

func readWorkbook(path string) ([]store.CatalogRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	items := make([]store.CatalogRow, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		item := store.CatalogRow{
			Name:       cell(row, 0),
			Category:   cell(row, 1),
			Price:      cell(row, 2),
			Dimensions: cell(row, 3),
			FileRef:    cell(row, 4),
		}
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
