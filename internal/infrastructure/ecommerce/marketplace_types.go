package ecommerce

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Response headers carrying pagination metadata
const (
	headerTotalPages = "X-Total-Pages"
	headerTotalCount = "X-Total-Count"
)

// flexID accepts identifiers encoded either as JSON strings or numbers.
type flexID string

// UnmarshalJSON implements json.Unmarshaler
func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type inventoryVariation struct {
	ID            flexID           `json:"id"`
	SKU           string           `json:"sku"`
	Price         *decimal.Decimal `json:"price"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	StockQuantity *int             `json:"stock_quantity"`
}

type inventoryItem struct {
	SKU           string               `json:"sku"`
	Price         *decimal.Decimal     `json:"price"`
	CostPrice     *decimal.Decimal     `json:"cost_price"`
	StockQuantity *int                 `json:"stock_quantity"`
	Variations    []inventoryVariation `json:"variations"`
}

type orderCustomer struct {
	ID    flexID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type orderAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type orderLineItem struct {
	ID       flexID           `json:"id"`
	SKU      string           `json:"sku"`
	Name     string           `json:"name"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
	Total    *decimal.Decimal `json:"total"`
}

type orderTotals struct {
	Currency string           `json:"currency"`
	Subtotal *decimal.Decimal `json:"subtotal"`
	Shipping *decimal.Decimal `json:"shipping"`
	Tax      *decimal.Decimal `json:"tax"`
	Discount *decimal.Decimal `json:"discount"`
	Total    *decimal.Decimal `json:"total"`
}

type orderRecord struct {
	ID              flexID          `json:"id"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	SiteID          flexID          `json:"site_id"`
	Customer        orderCustomer   `json:"customer"`
	LineItems       []orderLineItem `json:"line_items"`
	Totals          orderTotals     `json:"totals"`
	ShippingAddress orderAddress    `json:"shipping_address"`
	BillingAddress  orderAddress    `json:"billing_address"`
}

type stockPushRequest struct {
	ID            string `json:"sku_or_variation_id"`
	SKU           string `json:"sku,omitempty"`
	StockQuantity int    `json:"stock_quantity"`
}

type stockPushResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// recordRef extracts a best-effort identifier from an undecodable record.
func recordRef(raw json.RawMessage) string {
	var probe struct {
		ID  flexID `json:"id"`
		SKU string `json:"sku"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.ID != "" {
		return string(probe.ID)
	}
	return probe.SKU
}
