package shipping

import (
	"strings"

	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ResponseFormat is the wire format of a carrier's tracking API.
type ResponseFormat string

const (
	FormatJSON ResponseFormat = "json"
	FormatXML  ResponseFormat = "xml"
)

// ShippingCarrier identifies the carrier integration handling a shipment.
type ShippingCarrier struct {
	shared.BaseEntity
	Code           string
	Name           string
	APIBaseURL     string
	APIKey         string
	AccountNumber  string
	ResponseFormat ResponseFormat
	BaseRate       decimal.Decimal
	Active         bool
}

// StatusTable translates one carrier's status vocabulary into ShipmentStatus.
type StatusTable struct {
	carrier string
	codes   map[string]ShipmentStatus
}

// NewStatusTable builds a lookup table. Codes are matched case-insensitively.
func NewStatusTable(carrier string, codes map[string]ShipmentStatus) *StatusTable {
	normalized := make(map[string]ShipmentStatus, len(codes))
	for code, status := range codes {
		normalized[normalizeCode(code)] = status
	}
	return &StatusTable{carrier: carrier, codes: normalized}
}

// Carrier returns the carrier code the table belongs to.
func (t *StatusTable) Carrier() string {
	return t.carrier
}

// Lookup returns the local status for a carrier code. Unknown codes return
// false and must be treated as a no-op by callers.
func (t *StatusTable) Lookup(code string) (ShipmentStatus, bool) {
	status, ok := t.codes[normalizeCode(code)]
	return status, ok
}

// Len returns the number of mapped codes.
func (t *StatusTable) Len() int {
	return len(t.codes)
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(code)
}
