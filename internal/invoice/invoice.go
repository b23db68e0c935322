package invoice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/money"
	"github.com/Skotchmaster/shop_orders/internal/orders"
)

type OrderReader interface {
	Get(ctx context.Context, orderID uint) (*orders.Receipt, error)
}

type CustomerReader interface {
	Get(ctx context.Context, id uint) (*models.Customer, error)
}

type Party struct {
	ID            uint                `json:"id"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	Address       string              `json:"address,omitempty"`
	Kind          models.CustomerKind `json:"kind"`
	CompanyNumber string              `json:"company_number,omitempty"`
}

// Invoice is computed from the committed order only.
type Invoice struct {
	OrderID   uint                 `json:"order_id"`
	OrderDate time.Time            `json:"order_date"`
	Customer  Party                `json:"customer"`
	IsCompany bool                 `json:"is_company"`
	Lines     []orders.ReceiptLine `json:"lines"`
	Subtotal  decimal.Decimal      `json:"subtotal"`
	Discount  decimal.Decimal      `json:"discount"`
	Total     decimal.Decimal      `json:"total"`
}

// Document is a rendered invoice. WriteErr is set when the file could not
// be stored; the invoice itself is still valid.
type Document struct {
	Invoice  Invoice `json:"invoice"`
	Body     []byte  `json:"-"`
	Path     string  `json:"path,omitempty"`
	WriteErr error   `json:"-"`
}

type Generator struct {
	Orders    OrderReader
	Customers CustomerReader
	Dir       string
	Now       func() time.Time
}

func (g *Generator) Build(ctx context.Context, orderID uint) (Invoice, error) {
	rec, err := g.Orders.Get(ctx, orderID)
	if err != nil {
		return Invoice{}, err
	}
	cust, err := g.Customers.Get(ctx, rec.CustomerID)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice for order %d: %w", orderID, err)
	}

	party := Party{
		ID:      cust.ID,
		Name:    cust.Name,
		Email:   cust.Email,
		Address: cust.Address,
		Kind:    cust.Kind,
	}
	if cust.CompanyNumber != nil {
		party.CompanyNumber = *cust.CompanyNumber
	}

	subtotal := decimal.Zero
	for _, line := range rec.Lines {
		subtotal = subtotal.Add(money.LineTotal(line.UnitPrice, line.Quantity))
	}
	discount := decimal.Zero
	if rec.IsCompany {
		discount = money.Discount(subtotal, rec.Total)
	}

	return Invoice{
		OrderID:   rec.OrderID,
		OrderDate: rec.OrderDate,
		Customer:  party,
		IsCompany: rec.IsCompany,
		Lines:     rec.Lines,
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     rec.Total,
	}, nil
}

var bodyTmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"eur":  func(d decimal.Decimal) string { return money.Format(d) + " EUR" },
	"date": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") },
	"rule": func() string { return strings.Repeat("=", 60) },
}).Parse(`ORDER ID: {{.OrderID}}
Date: {{date .OrderDate}}
Customer: {{.Customer.Name}} (ID {{.Customer.ID}})
Email: {{.Customer.Email}}
{{- if .Customer.Address}}
Address: {{.Customer.Address}}
{{- end}}
{{- if .Customer.CompanyNumber}}
Company number: {{.Customer.CompanyNumber}}
{{- end}}
Company discount: {{if .IsCompany}}5%{{else}}0%{{end}}
{{rule}}
Products:
{{- range .Lines}}
  [{{.ProductID}}] {{.Name}} | Qty: {{.Quantity}} | Price: {{eur .UnitPrice}} | Line: {{eur .LineTotal}}
{{- end}}
{{rule}}
Subtotal: {{eur .Subtotal}}
Discount: {{eur .Discount}}
Total amount: {{eur .Total}}
`))

// Render is deterministic for a given Invoice.
func Render(inv Invoice) ([]byte, error) {
	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, inv); err != nil {
		return nil, fmt.Errorf("render invoice %d: %w", inv.OrderID, err)
	}
	return buf.Bytes(), nil
}

// Generate builds and renders the invoice and tries to store it under Dir.
// Only failures to read the order are returned as errors.
func (g *Generator) Generate(ctx context.Context, orderID uint) (Document, error) {
	l := logging.FromContext(ctx).With("svc", "invoice.generate", "order_id", orderID)

	inv, err := g.Build(ctx, orderID)
	if err != nil {
		return Document{}, err
	}
	body, err := Render(inv)
	if err != nil {
		return Document{}, err
	}

	doc := Document{Invoice: inv, Body: body}
	if g.Dir == "" {
		return doc, nil
	}

	doc.Path = filepath.Join(g.Dir, FileName(orderID, g.now()))
	if err := write(g.Dir, doc.Path, body); err != nil {
		doc.WriteErr = err
		l.Warn("invoice_write_failed", "path", doc.Path, "error", err)
		return doc, nil
	}

	l.Info("invoice_written", "path", doc.Path, "total", money.Format(inv.Total))
	return doc, nil
}

func FileName(orderID uint, at time.Time) string {
	return fmt.Sprintf("invoice_order_%d_%s.txt", orderID, at.UTC().Format("20060102_150405"))
}

func write(dir, path string, body []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
