// Package view renders the storefront's server-side HTML pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/transport"
)

//go:embed templates/*.html
var files embed.FS

const layout = "templates/layout.html"

type Flash struct {
	Kind    string
	Message string
}

// Page is what every template receives; page specific values live in Data.
type Page struct {
	Title     string
	User      identity.Identity
	LoggedIn  bool
	CSRF      string
	CartCount int
	CartTotal decimal.Decimal
	Flashes   []Flash
	Data      any
}

var orderStates = map[string]string{
	models.OrderPending:   "Pendiente",
	models.OrderPaid:      "Pagado",
	models.OrderShipped:   "Enviado",
	models.OrderDelivered: "Entregado",
}

var paymentMethods = map[string]string{
	transport.PaymentCard:     "Tarjeta",
	transport.PaymentTransfer: "Transferencia",
	transport.PaymentCash:     "Efectivo",
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string { return "₡" + pricing.Format(d) },
		"date":  func(t time.Time) string { return t.Local().Format("02/01/2006 15:04") },
		"stateLabel": func(s string) string {
			if v, ok := orderStates[s]; ok {
				return v
			}
			return s
		},
		"nextState": func(s string) string {
			next, ok := models.NextOrderState(s)
			if !ok {
				return ""
			}
			return orderStates[next]
		},
		"paymentLabel": func(s string) string {
			if v, ok := paymentMethods[s]; ok {
				return v
			}
			return s
		},
		"paymentMethods": func() []string { return transport.PaymentMethods },
	}
}

// Renderer holds one template set per page, each parsed together with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, n := range names {
		if n == layout {
			continue
		}
		t, err := template.New("layout.html").Funcs(Funcs()).ParseFS(files, layout, n)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", n, err)
		}
		r.pages[strings.TrimPrefix(n, "templates/")] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
