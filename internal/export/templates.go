package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var proposalTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"money": func(v float64) string {
			return fmt.Sprintf("$%.2f", v)
		},
	}

	content, err := templateFS.ReadFile("templates/proposal.html")
	if err != nil {
		proposalTemplate = template.Must(template.New("proposal").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	proposalTemplate = template.Must(template.New("proposal").Funcs(funcMap).Parse(string(content)))
}

// TemplateData holds data for proposal template rendering.
type TemplateData struct {
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
	Sections      []TemplateSection
	Subtotal      float64
	DeliveryFee   float64
	Discount      float64
	DiscountName  string
	Total         float64
}

// TemplateSection is one product section on the rendered sheet.
type TemplateSection struct {
	Name     string
	Products []TemplateProduct
}

// TemplateProduct is one product line with its extended price.
type TemplateProduct struct {
	Name      string
	Quantity  int
	Price     float64
	LineTotal float64
}

// RenderProposalHTML renders the proposal template with provided data.
func RenderProposalHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := proposalTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load.
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.ClientName}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    table { width: 100%; border-collapse: collapse; }
    td, th { padding: 4px 8px; text-align: left; }
  </style>
</head>
<body>
  <h1>{{.ClientName}}</h1>
  <p>Project {{.ProjectNumber}} | {{.VenueName}} | {{.City}}{{if .State}}, {{.State}}{{end}}</p>
  {{range .Sections}}
  <h2>{{.Name}}</h2>
  <table>
  {{range .Products}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{money .LineTotal}}</td></tr>{{end}}
  </table>
  {{end}}
  <p>Total: {{money .Total}}</p>
</body>
</html>`
