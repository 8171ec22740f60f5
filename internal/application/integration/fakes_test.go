package integration

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/erp/channelsync/internal/domain/catalog"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/shared"
	"github.com/erp/channelsync/internal/domain/shipping"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockMarketplace is a mock implementation of integration.Marketplace
type MockMarketplace struct {
	mock.Mock
}

func (m *MockMarketplace) Code() string {
	return "shop"
}

func (m *MockMarketplace) FetchInventoryPage(ctx context.Context, page, pageSize int) (*integration.InventoryPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.InventoryPage), args.Error(1)
}

func (m *MockMarketplace) FetchOrderPage(ctx context.Context, page, pageSize int) (*integration.OrderPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.OrderPage), args.Error(1)
}

func (m *MockMarketplace) PushStock(ctx context.Context, update integration.StockUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// MockCarrierTracker is a mock implementation of integration.CarrierTracker
type MockCarrierTracker struct {
	mock.Mock
}

func (m *MockCarrierTracker) Track(ctx context.Context, carrier *shipping.ShippingCarrier, trackingNumber string) (*integration.TrackingStatus, error) {
	args := m.Called(ctx, carrier, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TrackingStatus), args.Error(1)
}

// staticMapper maps codes through a single status table.
type staticMapper struct {
	table *shipping.StatusTable
}

func newStaticMapper() staticMapper {
	return staticMapper{table: shipping.NewStatusTable("test", map[string]shipping.ShipmentStatus{
		"PICKED_UP":        shipping.StatusPickedUp,
		"IN_TRANSIT":       shipping.StatusInTransit,
		"OUT_FOR_DELIVERY": shipping.StatusOutForDelivery,
		"DELIVERED":        shipping.StatusDelivered,
		"FAILED":           shipping.StatusFailed,
		"RETURNED":         shipping.StatusReturned,
	})}
}

func (m staticMapper) Map(_, code string) (shipping.ShipmentStatus, bool) {
	return m.table.Lookup(code)
}

// memProducts is an in-memory catalog.ProductRepository. Reads return copies
// so callers never share state with the store.
type memProducts struct {
	mu               sync.Mutex
	products         map[uuid.UUID]*catalog.Product
	failUpdate       map[string]error
	productUpdates   int
	variationUpdates int
}

func newMemProducts(products ...*catalog.Product) *memProducts {
	r := &memProducts{products: map[uuid.UUID]*catalog.Product{}, failUpdate: map[string]error{}}
	for _, p := range products {
		r.products[p.ID] = cloneProduct(p)
	}
	return r
}

func cloneProduct(p *catalog.Product) *catalog.Product {
	c := *p
	c.Variations = append([]catalog.ProductVariation(nil), p.Variations...)
	return &c
}

func (r *memProducts) get(sku string) *catalog.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku {
			return cloneProduct(p)
		}
	}
	return nil
}

func (r *memProducts) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	if p := r.get(sku); p != nil {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memProducts) FindVariationByRemoteID(_ context.Context, productID uuid.UUID, remoteVariationID string) (*catalog.ProductVariation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	for _, v := range p.Variations {
		if v.RemoteVariationID == remoteVariationID {
			c := v
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memProducts) ListBatch(_ context.Context, afterID uuid.UUID, limit int) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.products))
	for id := range r.products {
		if bytes.Compare(id[:], afterID[:]) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneProduct(r.products[id]))
	}
	return out, nil
}

func (r *memProducts) UpdateInventory(_ context.Context, productID uuid.UUID, changes catalog.InventoryChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	if err := r.failUpdate[p.SKU]; err != nil {
		return err
	}
	p.ApplyInventory(changes)
	r.productUpdates++
	return nil
}

func (r *memProducts) UpdateVariationInventory(_ context.Context, variationID uuid.UUID, changes catalog.InventoryChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		for i := range p.Variations {
			if p.Variations[i].ID == variationID {
				if err := r.failUpdate[p.Variations[i].SKU]; err != nil {
					return err
				}
				p.Variations[i].ApplyInventory(changes)
				r.variationUpdates++
				return nil
			}
		}
	}
	return shared.ErrNotFound
}

func (r *memProducts) Save(_ context.Context, product *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = cloneProduct(product)
	return nil
}

// memSites is an in-memory catalog.MerchantSiteRepository.
type memSites struct {
	sites map[string]*catalog.MerchantSite
}

func (r *memSites) FindByReference(_ context.Context, reference string) (*catalog.MerchantSite, error) {
	if s, ok := r.sites[reference]; ok {
		c := *s
		return &c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSites) Save(_ context.Context, site *catalog.MerchantSite) error {
	if r.sites == nil {
		r.sites = map[string]*catalog.MerchantSite{}
	}
	c := *site
	r.sites[site.Reference] = &c
	return nil
}

// memOrders is an in-memory trade.OrderRepository.
type memOrders struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*trade.Order
	creates int
	updates int
}

func newMemOrders(orders ...*trade.Order) *memOrders {
	r := &memOrders{orders: map[uuid.UUID]*trade.Order{}}
	for _, o := range orders {
		r.orders[o.ID] = cloneOrder(o)
	}
	return r
}

func cloneOrder(o *trade.Order) *trade.Order {
	c := *o
	c.Items = append([]trade.OrderItem(nil), o.Items...)
	return &c
}

func (r *memOrders) FindByID(_ context.Context, id uuid.UUID) (*trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, shared.ErrNotFound
}

func (r *memOrders) FindBySourceReference(_ context.Context, source, reference string) (*trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Source == source && o.SourceReference == reference {
			return cloneOrder(o), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memOrders) Create(_ context.Context, order *trade.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Source == order.Source && o.SourceReference == order.SourceReference {
			return shared.ErrAlreadyExists
		}
	}
	r.orders[order.ID] = cloneOrder(order)
	r.creates++
	return nil
}

func (r *memOrders) Update(_ context.Context, order *trade.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return shared.ErrNotFound
	}
	items := stored.Items
	c := cloneOrder(order)
	c.Items = items
	r.orders[order.ID] = c
	r.updates++
	return nil
}

func (r *memOrders) all() []*trade.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*trade.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

// memShipments is an in-memory shipping.ShipmentRepository.
type memShipments struct {
	mu          sync.Mutex
	shipments   map[uuid.UUID]*shipping.Shipment
	activeCalls int
}

func newMemShipments(shipments ...*shipping.Shipment) *memShipments {
	r := &memShipments{shipments: map[uuid.UUID]*shipping.Shipment{}}
	for _, s := range shipments {
		r.shipments[s.ID] = cloneShipment(s)
	}
	return r
}

func cloneShipment(s *shipping.Shipment) *shipping.Shipment {
	c := *s
	c.Events = append([]shipping.TrackingEvent(nil), s.Events...)
	return &c
}

func (r *memShipments) FindByID(_ context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.shipments[id]; ok {
		return cloneShipment(s), nil
	}
	return nil, shared.ErrNotFound
}

func (r *memShipments) FindActive(_ context.Context, afterID uuid.UUID, limit int) ([]shipping.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeCalls++
	var out []shipping.Shipment
	for _, s := range r.shipments {
		if !s.Status.IsTerminal() && bytes.Compare(s.ID[:], afterID[:]) > 0 {
			out = append(out, *cloneShipment(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memShipments) Save(_ context.Context, shipment *shipping.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipments[shipment.ID] = cloneShipment(shipment)
	return nil
}

func (r *memShipments) Update(_ context.Context, shipment *shipping.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.shipments[shipment.ID]
	if !ok {
		return shared.ErrNotFound
	}
	events := stored.Events
	c := cloneShipment(shipment)
	c.Events = events
	r.shipments[shipment.ID] = c
	return nil
}

func (r *memShipments) AppendEvent(_ context.Context, event *shipping.TrackingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.shipments[event.ShipmentID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.Events = append(stored.Events, *event)
	return nil
}

// memCarriers is an in-memory shipping.CarrierRepository.
type memCarriers struct {
	carriers map[uuid.UUID]*shipping.ShippingCarrier
}

func newMemCarriers(carriers ...*shipping.ShippingCarrier) *memCarriers {
	r := &memCarriers{carriers: map[uuid.UUID]*shipping.ShippingCarrier{}}
	for _, c := range carriers {
		r.carriers[c.ID] = c
	}
	return r
}

func (r *memCarriers) FindByID(_ context.Context, id uuid.UUID) (*shipping.ShippingCarrier, error) {
	if c, ok := r.carriers[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCarriers) Save(_ context.Context, carrier *shipping.ShippingCarrier) error {
	r.carriers[carrier.ID] = carrier
	return nil
}

// recordingSink collects emitted events.
type recordingSink struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (s *recordingSink) Emit(_ context.Context, event ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) errors() []ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ProgressEvent
	for _, e := range s.events {
		if e.Type == EventError {
			out = append(out, e)
		}
	}
	return out
}
