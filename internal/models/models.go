package models

import "time"

// Order lifecycle. Cancelled and refunded are reachable from pending/paid
// only; the forward chain is strictly ordered.
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Product struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name          string    `gorm:"not null"                    json:"name"`
	NameEn        string    `json:"name_en"`
	Description   string    `json:"description"`
	DescriptionEn string    `json:"description_en"`
	Price         int64     `gorm:"not null"                    json:"price"`
	Currency      string    `gorm:"size:8;not null;default:cny" json:"currency"`
	Discount      int       `gorm:"default:0"                   json:"discount"`
	Stock         uint      `json:"stock"`
	IsDigital     bool      `gorm:"default:false"               json:"is_digital"`
	IsActive      bool      `gorm:"default:true;index"          json:"is_active"`
	IsFeatured    bool      `gorm:"default:false"               json:"is_featured"`
	SoldCount     uint      `gorm:"default:0"                   json:"sold_count"`
	Category      string    `gorm:"index"                       json:"category"`
	Element       string    `gorm:"index"                       json:"element"`
	Tags          []string  `gorm:"serializer:json"             json:"tags"`
	Images        []string  `gorm:"serializer:json"             json:"images"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// CartItem rows are the per-user cart: unique on (user_id, product_id), no
// price snapshot. Prices resolve against the live product at read/checkout.
type CartItem struct {
	ID        uint `gorm:"primaryKey"                              json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_user_prod" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_user_prod" json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"              json:"quantity"`
}

// Address is embedded into orders as JSON so the order keeps the exact
// shipping/billing data from checkout time.
type Address struct {
	Name    string `json:"name"    validate:"required"`
	Email   string `json:"email"   validate:"required,email"`
	Phone   string `json:"phone"`
	Line1   string `json:"line1"   validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city"    validate:"required"`
	State   string `json:"state"`
	Postal  string `json:"postal"`
	Country string `json:"country" validate:"required"`
}

// OrderItem is a point-in-time snapshot. Later catalog edits must never
// change what a historical order displays or what it charged.
type OrderItem struct {
	ID        uint   `gorm:"primaryKey"     json:"id"`
	OrderID   uint   `gorm:"index;not null" json:"order_id"`
	ProductID uint   `gorm:"not null"       json:"product_id"`
	Name      string `gorm:"not null"       json:"name"`
	NameEn    string `json:"name_en"`
	Image     string `json:"image"`
	UnitPrice int64  `gorm:"not null"       json:"unit_price"`
	Quantity  uint   `gorm:"not null"       json:"quantity"`
	IsDigital bool   `json:"is_digital"`
}

type Order struct {
	ID            uint        `gorm:"primaryKey"                  json:"id"`
	UserID        uint        `gorm:"index;not null"              json:"user_id"`
	Email         string      `gorm:"index"                       json:"email"`
	Items         []OrderItem `gorm:"foreignKey:OrderID"          json:"items"`
	ShippingInfo  Address     `gorm:"serializer:json"             json:"shipping_info"`
	BillingInfo   Address     `gorm:"serializer:json"             json:"billing_info"`
	Total         int64       `gorm:"not null"                    json:"total"`
	Currency      string      `gorm:"size:8;not null;default:cny" json:"currency"`
	Status        string      `gorm:"not null;index"              json:"status"`
	PaymentStatus string      `gorm:"not null"                    json:"payment_status"`
	SessionID     string      `gorm:"index"                       json:"session_id,omitempty"`
	// StockAdjusted guards the one-decrement-per-order invariant across the
	// direct-order and webhook flows.
	StockAdjusted bool       `gorm:"default:false" json:"-"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ShippedAt     *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// WebhookEvent records processed processor event ids. The unique constraint
// is what makes webhook redelivery a no-op.
type WebhookEvent struct {
	EventID     string    `gorm:"primaryKey;size:128" json:"event_id"`
	EventType   string    `gorm:"size:64;index"       json:"event_type"`
	OrderID     uint      `gorm:"index"               json:"order_id"`
	ProcessedAt time.Time `json:"processed_at"`
}
