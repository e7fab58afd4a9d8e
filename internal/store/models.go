package store

import "time"

// ProposalRow is one row of the append-only proposals table. All business
// fields are stored as text: the table carries whatever the submission form
// sent, and parsing/cleanup happens on the way in or out, never in the store.
type ProposalRow struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClientName      string
	VenueName       string
	City            string
	State           string
	StartDate       string
	EndDate         string
	DeliveryTime    string
	StrikeTime      string
	DeliveryFee     string
	Discount        string
	DiscountName    string
	ClientFolderURL string
	SectionText     string
	SalesLead       string
	Status          string
	ProjectNumber   string
}

// CatalogRow is one raw row of the product catalog. Price stays text here;
// the catalog index parses it and degrades to zero on bad input.
type CatalogRow struct {
	ID         int64
	Name       string
	Category   string
	Price      string
	Dimensions string
	FileRef    string
}

type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
