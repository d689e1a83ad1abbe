package transport

import "github.com/liushenghao/taixuan_shop/internal/models"

type ProductFilters struct {
	Category string
	Element  string
	Tag      string
	Search   string
	Featured *bool
	MinPrice *int64
	MaxPrice *int64
	InStock  *bool
	// IDs narrows the query to a ranked id set produced by the search
	// cluster; it takes precedence over Search.
	IDs []uint
}

type CreateProductRequest struct {
	Name          string   `json:"name" validate:"required"`
	NameEn        string   `json:"name_en"`
	Description   string   `json:"description"`
	DescriptionEn string   `json:"description_en"`
	Price         int64    `json:"price" validate:"gte=0"`
	Currency      string   `json:"currency"`
	Discount      int      `json:"discount" validate:"gte=0,lte=100"`
	Stock         uint     `json:"stock"`
	IsDigital     bool     `json:"is_digital"`
	IsFeatured    bool     `json:"is_featured"`
	Category      string   `json:"category"`
	Element       string   `json:"element"`
	Tags          []string `json:"tags"`
	Images        []string `json:"images"`
}

type PatchProductRequest struct {
	Name          *string   `json:"name"`
	NameEn        *string   `json:"name_en"`
	Description   *string   `json:"description"`
	DescriptionEn *string   `json:"description_en"`
	Price         *int64    `json:"price"`
	Currency      *string   `json:"currency"`
	Discount      *int      `json:"discount"`
	Stock         *uint     `json:"stock"`
	IsDigital     *bool     `json:"is_digital"`
	IsActive      *bool     `json:"is_active"`
	IsFeatured    *bool     `json:"is_featured"`
	Category      *string   `json:"category"`
	Element       *string   `json:"element"`
	Tags          *[]string `json:"tags"`
	Images        *[]string `json:"images"`
}

type AddCartItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  uint `json:"quantity"`
	// SetAbsolute replaces the stored quantity instead of summing.
	SetAbsolute bool `json:"set_absolute"`
}

type RemoveCartItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
}

// CartEntry is a cart row with its live product resolved. Unavailable marks
// rows whose product has since gone missing or inactive.
type CartEntry struct {
	ProductID   uint            `json:"product_id"`
	Quantity    uint            `json:"quantity"`
	Product     *models.Product `json:"product,omitempty"`
	UnitPrice   int64           `json:"unit_price"`
	LineTotal   int64           `json:"line_total"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

type CartView struct {
	Items    []CartEntry `json:"items"`
	Subtotal int64       `json:"subtotal"`
}

type CheckoutItem struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  uint `json:"quantity" validate:"required,gte=1"`
}

type CheckoutRequest struct {
	Items        []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	ShippingInfo models.Address `json:"shipping_info" validate:"required"`
	// BillingInfo is a pointer so an omitted billing block skips the nested
	// required tags; the service falls back to the shipping address.
	BillingInfo *models.Address `json:"billing_info"`
	Locale      string          `json:"locale"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	OrderID   uint   `json:"order_id"`
}

type CreateOrderRequest struct {
	Items        []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	ShippingInfo models.Address `json:"shipping_info" validate:"required"`
	BillingInfo  *models.Address `json:"billing_info"`
}

type PatchOrderRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}
