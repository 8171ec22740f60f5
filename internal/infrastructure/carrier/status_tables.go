package carrier

import (
	"strings"
	"sync"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/shipping"
)

// GenericCarrier is the table used for carriers without a dedicated one.
const GenericCarrier = "generic"

// genericCodes follows the textual vocabulary most carrier APIs share.
var genericCodes = map[string]shipping.ShipmentStatus{
	"CREATED":            shipping.StatusPending,
	"LABEL_CREATED":      shipping.StatusPending,
	"INFO_RECEIVED":      shipping.StatusPending,
	"PENDING":            shipping.StatusPending,
	"PICKED_UP":          shipping.StatusPickedUp,
	"PICKUP":             shipping.StatusPickedUp,
	"COLLECTED":          shipping.StatusPickedUp,
	"IN_TRANSIT":         shipping.StatusInTransit,
	"TRANSIT":            shipping.StatusInTransit,
	"DEPARTED_FACILITY":  shipping.StatusInTransit,
	"ARRIVED_AT_HUB":     shipping.StatusInTransit,
	"OUT_FOR_DELIVERY":   shipping.StatusOutForDelivery,
	"WITH_COURIER":       shipping.StatusOutForDelivery,
	"DELIVERED":          shipping.StatusDelivered,
	"DELIVERY_FAILED":    shipping.StatusFailed,
	"FAILED_ATTEMPT":     shipping.StatusFailed,
	"EXCEPTION":          shipping.StatusFailed,
	"RETURNED":           shipping.StatusReturned,
	"RETURNED_TO_SENDER": shipping.StatusReturned,
	"RTO":                shipping.StatusReturned,
}

// numericCodes is used by carriers reporting numeric event codes.
var numericCodes = map[string]shipping.ShipmentStatus{
	"10": shipping.StatusPending,
	"20": shipping.StatusPickedUp,
	"30": shipping.StatusInTransit,
	"35": shipping.StatusInTransit,
	"40": shipping.StatusOutForDelivery,
	"50": shipping.StatusDelivered,
	"60": shipping.StatusFailed,
	"70": shipping.StatusReturned,
}

// StatusRegistry implements integration.StatusMapper with static tables
// keyed by carrier code.
type StatusRegistry struct {
	mu      sync.RWMutex
	tables  map[string]*shipping.StatusTable
	generic *shipping.StatusTable
}

// NewStatusRegistry creates a registry with the built-in tables.
func NewStatusRegistry() *StatusRegistry {
	r := &StatusRegistry{
		tables:  make(map[string]*shipping.StatusTable),
		generic: shipping.NewStatusTable(GenericCarrier, genericCodes),
	}
	r.Register(shipping.NewStatusTable("numeric", numericCodes))
	return r
}

// Register adds or replaces the table of a carrier.
func (r *StatusRegistry) Register(table *shipping.StatusTable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[strings.ToLower(table.Carrier())] = table
}

// Map implements integration.StatusMapper. Carriers without a dedicated
// table use the generic vocabulary. Unknown codes return ok=false.
func (r *StatusRegistry) Map(carrierCode, statusCode string) (shipping.ShipmentStatus, bool) {
	r.mu.RLock()
	table, found := r.tables[strings.ToLower(carrierCode)]
	r.mu.RUnlock()
	if !found {
		table = r.generic
	}
	return table.Lookup(statusCode)
}

var _ integration.StatusMapper = (*StatusRegistry)(nil)
