package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/domain/shipping"
	"github.com/erp/channelsync/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ShipmentSyncConfig holds the settings of the shipment synchronizer
type ShipmentSyncConfig struct {
	BatchSize        int
	Throttle         time.Duration
	ErrorSampleLimit int
}

// ShipmentSyncResult summarizes one pass over the active shipments
type ShipmentSyncResult struct {
	Checked       int      `json:"checked"`
	Updated       int      `json:"updated"`
	Unchanged     int      `json:"unchanged"`
	Skipped       int      `json:"skipped"`
	UnknownStatus int      `json:"unknown_status"`
	Errors        int      `json:"errors"`
	ErrorSamples  []string `json:"error_samples"`
}

// Counts implements integration.RunSummary
func (r *ShipmentSyncResult) Counts() []integration.Count {
	return []integration.Count{
		{Name: "checked", Value: r.Checked},
		{Name: "updated", Value: r.Updated},
		{Name: "unchanged", Value: r.Unchanged},
		{Name: "skipped", Value: r.Skipped},
		{Name: "unknown_status", Value: r.UnknownStatus},
		{Name: "errors", Value: r.Errors},
	}
}

// Samples implements integration.RunSummary
func (r *ShipmentSyncResult) Samples() []string { return r.ErrorSamples }

// Outcome implements integration.RunSummary
func (r *ShipmentSyncResult) Outcome() integration.SyncStatus { return outcome(r.Errors) }

// Tally implements integration.ItemTally
func (r *ShipmentSyncResult) Tally() (processed, updated, failed int) {
	return r.Checked, r.Updated, r.Errors
}

type syncOutcome int

const (
	outcomeUnchanged syncOutcome = iota
	outcomeUpdated
	outcomeUnknown
)

// ShipmentSynchronizer pulls carrier tracking status into shipments and
// their orders. Shipment status only ever moves forward.
type ShipmentSynchronizer struct {
	orders    trade.OrderRepository
	shipments shipping.ShipmentRepository
	carriers  shipping.CarrierRepository
	tracker   integration.CarrierTracker
	mapper    integration.StatusMapper
	txScope   TransactionScope
	limiter   *rate.Limiter
	config    ShipmentSyncConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewShipmentSynchronizer creates a new ShipmentSynchronizer. A zero
// throttle disables the delay between carrier calls.
func NewShipmentSynchronizer(
	orders trade.OrderRepository,
	shipments shipping.ShipmentRepository,
	carriers shipping.CarrierRepository,
	tracker integration.CarrierTracker,
	mapper integration.StatusMapper,
	txScope TransactionScope,
	config ShipmentSyncConfig,
	logger *zap.Logger,
) *ShipmentSynchronizer {
	if config.BatchSize <= 0 {
		config.BatchSize = 200
	}
	limit := rate.Inf
	if config.Throttle > 0 {
		limit = rate.Every(config.Throttle)
	}
	return &ShipmentSynchronizer{
		orders:    orders,
		shipments: shipments,
		carriers:  carriers,
		tracker:   tracker,
		mapper:    mapper,
		txScope:   txScope,
		limiter:   rate.NewLimiter(limit, 1),
		config:    config,
		now:       time.Now,
		logger:    logger,
	}
}

// SyncShipment queries the carrier for one shipment and applies the reported
// status. It returns the new status, or nil when nothing changed: the code
// is unknown, or the report is stale or repeated. ErrShipmentNotEligible is
// returned when the parent order is not shipped or delivered.
func (s *ShipmentSynchronizer) SyncShipment(ctx context.Context, shipment *shipping.Shipment) (*shipping.ShipmentStatus, error) {
	out, err := s.syncOne(ctx, shipment)
	if err != nil || out != outcomeUpdated {
		return nil, err
	}
	status := shipment.Status
	return &status, nil
}

func (s *ShipmentSynchronizer) syncOne(ctx context.Context, shipment *shipping.Shipment) (syncOutcome, error) {
	log := s.logger.With(
		zap.String("shipment_id", shipment.ID.String()),
		zap.String("tracking_number", shipment.TrackingNumber),
	)

	order, err := s.orders.FindByID(ctx, shipment.OrderID)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("load order %s: %w", shipment.OrderID, err)
	}
	if !order.IsShipmentTrackable() {
		log.Warn("Skipping shipment of order not yet shipped",
			zap.String("order_number", order.OrderNumber),
			zap.String("order_status", order.Status.String()),
		)
		return outcomeUnchanged, fmt.Errorf("%w: order %s is %s",
			integration.ErrShipmentNotEligible, order.OrderNumber, order.Status)
	}

	carrier, err := s.carriers.FindByID(ctx, shipment.CarrierID)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("load carrier %s: %w", shipment.CarrierID, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return outcomeUnchanged, err
	}
	report, err := s.tracker.Track(ctx, carrier, shipment.TrackingNumber)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("track %s: %w", shipment.TrackingNumber, err)
	}

	target, ok := s.mapper.Map(carrier.Code, report.Code)
	if !ok {
		log.Warn("Unknown carrier status code",
			zap.String("carrier", carrier.Code),
			zap.String("code", report.Code),
		)
		return outcomeUnknown, nil
	}
	if !shipment.Status.CanAdvanceTo(target) {
		log.Debug("Carrier status is not ahead of shipment",
			zap.String("current", shipment.Status.String()),
			zap.String("reported", target.String()),
		)
		return outcomeUnchanged, nil
	}

	at := report.OccurredAt
	if at.IsZero() {
		at = s.now()
	}

	var fresh *shipping.Shipment
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		current, err := repos.ShipmentRepo().FindByID(ctx, shipment.ID)
		if err != nil {
			return err
		}
		event := current.Advance(target, at, report.Description, report.Location)
		if event == nil {
			return nil
		}
		if err := repos.ShipmentRepo().Update(ctx, current); err != nil {
			return err
		}
		if err := repos.ShipmentRepo().AppendEvent(ctx, event); err != nil {
			return err
		}
		fresh = current

		o, err := repos.OrderRepo().FindByID(ctx, current.OrderID)
		if err != nil {
			return err
		}
		var orderChanged bool
		switch target {
		case shipping.StatusInTransit, shipping.StatusOutForDelivery:
			orderChanged = o.MarkShipped(at)
		case shipping.StatusDelivered:
			orderChanged = o.MarkDelivered(at)
		}
		if orderChanged {
			return repos.OrderRepo().Update(ctx, o)
		}
		return nil
	})
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("apply %s to shipment %s: %w", target, shipment.ID, err)
	}
	if fresh == nil {
		return outcomeUnchanged, nil
	}

	*shipment = *fresh
	log.Info("Shipment status advanced", zap.String("status", target.String()))
	return outcomeUpdated, nil
}

// SyncActive runs SyncShipment over every non-terminal shipment, loading
// them BatchSize at a time in primary key order. Cancelling ctx stops the
// pass; the counts gathered so far are returned together with the context
// error.
func (s *ShipmentSynchronizer) SyncActive(ctx context.Context) (*ShipmentSyncResult, error) {
	result := &ShipmentSyncResult{}
	samples := NewErrorSamples(s.config.ErrorSampleLimit)

	afterID := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			result.ErrorSamples = samples.Items()
			return result, err
		}
		active, err := s.shipments.FindActive(ctx, afterID, s.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("list active shipments after %s: %w", afterID, err)
		}
		if len(active) == 0 {
			break
		}

		for i := range active {
			if err := ctx.Err(); err != nil {
				result.ErrorSamples = samples.Items()
				return result, err
			}
			if err := s.syncListed(ctx, result, samples, &active[i]); err != nil {
				result.ErrorSamples = samples.Items()
				return result, err
			}
		}

		// shipments advanced in this pass keep their id, so the cursor
		// never revisits or skips a row
		afterID = active[len(active)-1].ID
		if len(active) < s.config.BatchSize {
			break
		}
	}

	result.ErrorSamples = samples.Items()
	s.logger.Info("Shipment sync finished",
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("unknown_status", result.UnknownStatus),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// syncListed records one shipment of SyncActive into result. Only a
// cancelled context is returned.
func (s *ShipmentSynchronizer) syncListed(ctx context.Context, result *ShipmentSyncResult, samples *ErrorSamples, shipment *shipping.Shipment) error {
	result.Checked++

	out, err := s.syncOne(ctx, shipment)
	switch {
	case errors.Is(err, integration.ErrShipmentNotEligible):
		result.Skipped++
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Error("Shipment sync failed",
			zap.String("tracking_number", shipment.TrackingNumber),
			zap.Error(err),
		)
		result.Errors++
		samples.Add(shipment.TrackingNumber, err)
	case out == outcomeUpdated:
		result.Updated++
	case out == outcomeUnknown:
		result.UnknownStatus++
	default:
		result.Unchanged++
	}
	return nil
}
