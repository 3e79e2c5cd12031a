package transport

import "strings"

const (
	PaymentCard     = "tarjeta"
	PaymentTransfer = "transferencia"
	PaymentCash     = "efectivo"
)

var PaymentMethods = []string{PaymentCard, PaymentTransfer, PaymentCash}

type RegisterForm struct {
	FirstName       string `form:"nombre"           validate:"required,max=100"`
	LastName        string `form:"apellido"         validate:"required,max=100"`
	Email           string `form:"email"            validate:"required,email,max=150"`
	Password        string `form:"password"         validate:"required,min=8,max=72"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

func (f *RegisterForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
}

type LoginForm struct {
	Email    string `form:"email"    validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type AddressForm struct {
	Province   string   `form:"provincia"         validate:"required,max=50"`
	Canton     string   `form:"canton"            validate:"required,max=50"`
	District   string   `form:"distrito"          validate:"required,max=50"`
	Detail     string   `form:"direccion_exacta"  validate:"required,max=255"`
	PostalCode string   `form:"codigo_postal"     validate:"omitempty,max=10"`
	IsDefault  Checkbox `form:"es_predeterminada"`
}

func (f *AddressForm) Normalize() {
	f.Province = strings.TrimSpace(f.Province)
	f.Canton = strings.TrimSpace(f.Canton)
	f.District = strings.TrimSpace(f.District)
	f.Detail = strings.TrimSpace(f.Detail)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
}

type CheckoutForm struct {
	AddressID      uint   `form:"direccion_id"           validate:"required"`
	PaymentMethod  string `form:"metodo_pago"            validate:"required,oneof=tarjeta transferencia efectivo"`
	TransactionRef string `form:"referencia_transaccion" validate:"max=100"`
}

func (f *CheckoutForm) Normalize() {
	f.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
	f.TransactionRef = strings.TrimSpace(f.TransactionRef)
}

type ProductForm struct {
	Code        string   `form:"codigo"      validate:"required,max=50"`
	Name        string   `form:"nombre"      validate:"required,max=150"`
	Description string   `form:"descripcion"`
	Category    string   `form:"categoria"   validate:"max=100"`
	Price       string   `form:"precio"      validate:"required,decimal_amount"`
	Stock       int      `form:"stock"       validate:"min=0"`
	ImageURL    string   `form:"imagen_url"  validate:"omitempty,url,max=255"`
	Active      Checkbox `form:"activo"`
}

func (f *ProductForm) Normalize() {
	f.Code = strings.TrimSpace(f.Code)
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = strings.TrimSpace(f.Category)
	f.Price = strings.TrimSpace(f.Price)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
}

type CatalogQuery struct {
	Category string `query:"categoria" validate:"max=100"`
	Search   string `query:"busqueda"  validate:"max=100"`
	Page     int    `query:"page"      validate:"min=0"`
}

func (q *CatalogQuery) Normalize() {
	q.Category = strings.TrimSpace(q.Category)
	q.Search = strings.TrimSpace(q.Search)
}

type SearchQuery struct {
	Q    string `query:"q"    validate:"required,max=100"`
	Page int    `query:"page" validate:"min=0"`
	Size int    `query:"size" validate:"min=0,max=100"`
}
