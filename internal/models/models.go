package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/pricing"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

const (
	CartLineActive    = "active"
	CartLineConverted = "converted"
	CartLineCancelled = "cancelled"
)

const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	FirstName    string    `gorm:"size:100;not null"               json:"first_name"`
	LastName     string    `gorm:"size:100;not null"               json:"last_name"`
	Email        string    `gorm:"size:150;uniqueIndex;not null"   json:"email"`
	PasswordHash string    `gorm:"not null"                        json:"-"`
	Role         string    `gorm:"size:20;not null"                json:"role"`
	Active       bool      `gorm:"not null"                        json:"active"`
	CreatedAt    time.Time `                                       json:"created_at"`

	Addresses []Address  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CartLines []CartLine `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Sessions  []Session  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Address struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID     uint      `gorm:"index;not null"            json:"user_id"`
	Province   string    `gorm:"size:50;not null"          json:"province"`
	Canton     string    `gorm:"size:50;not null"          json:"canton"`
	District   string    `gorm:"size:50;not null"          json:"district"`
	Detail     string    `gorm:"size:255;not null"         json:"detail"`
	PostalCode string    `gorm:"size:10"                   json:"postal_code"`
	IsDefault  bool      `gorm:"not null"                  json:"is_default"`
	CreatedAt  time.Time `                                 json:"created_at"`
}

func (a Address) String() string {
	return a.Detail + ", " + a.District + ", " + a.Canton + ", " + a.Province
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	Code        string          `gorm:"size:50;uniqueIndex;not null"    json:"code"`
	Name        string          `gorm:"size:150;not null"               json:"name"`
	Description string          `gorm:"type:text"                       json:"description"`
	Category    *string         `gorm:"size:100;index"                  json:"category,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"     json:"price"`
	Stock       int             `gorm:"not null;check:stock >= 0"       json:"stock"`
	ImageURL    string          `gorm:"size:255"                        json:"image_url"`
	Active      bool            `gorm:"not null;index"                  json:"active"`
	CreatedAt   time.Time       `                                       json:"created_at"`
	UpdatedAt   time.Time       `                                       json:"updated_at"`
}

func (p Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

type CartLine struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"                json:"id"`
	UserID    uint            `gorm:"index:idx_cart_user_state;uniqueIndex:idx_cart_active_line,where:state = 'active';not null" json:"user_id"`
	ProductID uint            `gorm:"index;uniqueIndex:idx_cart_active_line,where:state = 'active';not null"                      json:"product_id"`
	Product   *Product        `gorm:"constraint:OnDelete:CASCADE"             json:"product,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity > 0"             json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"             json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"-"                                       json:"subtotal"`
	State     string          `gorm:"size:20;index:idx_cart_user_state;not null" json:"state"`
	CreatedAt time.Time       `                                               json:"created_at"`
	UpdatedAt time.Time       `                                               json:"updated_at"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

func (l *CartLine) derive() {
	l.Subtotal = pricing.LineSubtotal(l.Quantity, l.UnitPrice)
}

func (l *CartLine) BeforeSave(tx *gorm.DB) error {
	l.derive()
	return nil
}

func (l *CartLine) AfterFind(tx *gorm.DB) error {
	l.derive()
	return nil
}

type Order struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	UserID         uint            `gorm:"index;not null"                  json:"user_id"`
	AddressID      uint            `gorm:"not null"                        json:"address_id"`
	Address        *Address        `gorm:"constraint:OnDelete:RESTRICT"    json:"address,omitempty"`
	ProductID      uint            `gorm:"index;not null"                  json:"product_id"`
	Product        *Product        `gorm:"constraint:OnDelete:RESTRICT"    json:"product,omitempty"`
	CartLineID     uint            `gorm:"uniqueIndex;not null"            json:"cart_line_id"`
	Quantity       int             `gorm:"not null;check:quantity > 0"     json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null"     json:"unit_price"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null"     json:"subtotal"`
	Discount       decimal.Decimal `gorm:"type:decimal(10,2);not null"     json:"discount"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null"     json:"total"`
	PaymentMethod  string          `gorm:"size:30;not null"                json:"payment_method"`
	TransactionRef *string         `gorm:"size:100"                        json:"transaction_ref,omitempty"`
	State          string          `gorm:"size:20;index;not null"          json:"state"`
	PlacedAt       time.Time       `gorm:"index;not null"                  json:"placed_at"`
	UpdatedAt      time.Time       `                                       json:"updated_at"`
}

func (o *Order) derive() {
	o.Subtotal = pricing.LineSubtotal(o.Quantity, o.UnitPrice)
	o.Total = pricing.OrderTotal(o.Subtotal, o.Discount)
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	o.derive()
	if o.PlacedAt.IsZero() {
		o.PlacedAt = tx.NowFunc()
	}
	return nil
}

func (o *Order) AfterFind(tx *gorm.DB) error {
	o.derive()
	return nil
}

// NextOrderState reports the only state an order may move to from the given one.
func NextOrderState(state string) (string, bool) {
	switch state {
	case OrderPending:
		return OrderPaid, true
	case OrderPaid:
		return OrderShipped, true
	case OrderShipped:
		return OrderDelivered, true
	default:
		return "", false
	}
}

type Session struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	JTI       string    `gorm:"size:36;uniqueIndex;not null" json:"jti"`
	UserID    uint      `gorm:"index;not null"               json:"user_id"`
	UserAgent string    `gorm:"size:255"                     json:"user_agent"`
	ExpiresAt time.Time `gorm:"not null"                     json:"expires_at"`
	Revoked   bool      `gorm:"not null"                     json:"revoked"`
	CreatedAt time.Time `                                    json:"created_at"`
}

func (s Session) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// All lists every entity in migration order.
func All() []any {
	return []any{&User{}, &Address{}, &Product{}, &CartLine{}, &Order{}, &Session{}}
}
