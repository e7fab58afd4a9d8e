package export

import (
	"fmt"
	"strconv"
	"strings"
)

// ProposalInfo carries the proposal fields the rendered sheet needs.
// Monetary fields arrive as stored text and degrade to zero when unparsable.
type ProposalInfo struct {
	ClientName    string
	ProjectNumber string
	VenueName     string
	City          string
	State         string
	StartDate     string
	EndDate       string
	DeliveryTime  string
	StrikeTime    string
	SalesLead     string
	Status        string
	DeliveryFee   string
	Discount      string
	DiscountName  string
}

// SectionInput is one product section to render.
type SectionInput struct {
	Name     string
	Products []ProductInput
}

// ProductInput is one product line to render.
type ProductInput struct {
	Name     string
	Quantity int
	Price    float64
}

// Service renders proposals to PDF.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Export renders the proposal as a PDF document.
func (s *Service) Export(info ProposalInfo, sections []SectionInput) (*Result, error) {
	html, err := RenderProposalHTML(BuildTemplateData(info, sections))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title := strings.TrimSpace(info.ClientName + " " + info.ProjectNumber)
	if title == "" {
		title = "proposal"
	}
	return exportPDF(html, title)
}

// BuildTemplateData assembles template data and computes line and grand
// totals from the section products and the stored fee and discount text.
func BuildTemplateData(info ProposalInfo, sections []SectionInput) TemplateData {
	data := TemplateData{
		ClientName:    info.ClientName,
		ProjectNumber: info.ProjectNumber,
		VenueName:     info.VenueName,
		City:          info.City,
		State:         info.State,
		StartDate:     info.StartDate,
		EndDate:       info.EndDate,
		DeliveryTime:  info.DeliveryTime,
		StrikeTime:    info.StrikeTime,
		SalesLead:     info.SalesLead,
		Status:        info.Status,
		DeliveryFee:   parseMoney(info.DeliveryFee),
		Discount:      parseMoney(info.Discount),
		DiscountName:  info.DiscountName,
	}

	for _, sec := range sections {
		ts := TemplateSection{Name: sec.Name}
		for _, p := range sec.Products {
			lineTotal := p.Price * float64(p.Quantity)
			ts.Products = append(ts.Products, TemplateProduct{
				Name:      p.Name,
				Quantity:  p.Quantity,
				Price:     p.Price,
				LineTotal: lineTotal,
			})
			data.Subtotal += lineTotal
		}
		data.Sections = append(data.Sections, ts)
	}

	data.Total = data.Subtotal + data.DeliveryFee - data.Discount
	return data
}

// parseMoney reads a stored money string such as "$1,250.00" and returns
// its value, or zero when the text does not parse.
func parseMoney(s string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
