package shipment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// OperationRecorder records operation metrics. Satisfied by the telemetry
// metrics; a nil recorder disables recording.
type OperationRecorder interface {
	RecordRequest(operation, carrier, status string, duration float64)
}

// CreateShipmentItem is one payload of a batch creation: a blueprint and
// the order it ships.
type CreateShipmentItem struct {
	Blueprint ShipmentBlueprint
	OrderID   string
}

// ShipmentServiceDeps bundles the service collaborators.
type ShipmentServiceDeps struct {
	Shipments ShipmentStore
	Orders    OrderStore
	Registry  *Registry
	Config    CarrierConfigurationService
	Tracking  *TrackingCodeUpdater
	Tx        TxRunner
	Logger    *otelzap.Logger
	Metrics   OperationRecorder
}

// ShipmentService orchestrates shipment creation, cancellation, and
// return-shipment creation against a selected carrier integration. It owns
// the transactional rollback contract: draft rows created for a failed
// carrier call never survive.
type ShipmentService struct {
	deps ShipmentServiceDeps
}

// NewShipmentService creates a new service.
func NewShipmentService(deps ShipmentServiceDeps) *ShipmentService {
	return &ShipmentService{deps: deps}
}

// CreateShipment registers a single shipment. See CreateShipments for the
// batch semantics; the single form is the one-item batch.
func (s *ShipmentService) CreateShipment(ctx context.Context, bp ShipmentBlueprint, orderID string) (*OperationResultSet, error) {
	return s.CreateShipments(ctx, []CreateShipmentItem{{Blueprint: bp, OrderID: orderID}})
}

// CreateShipments persists draft shipment rows for every item, registers
// them with the carrier in one call, and reconciles the result: rows whose
// aggregate outcome is fully failed are deleted, successful ones get their
// tracking codes copied to the order. An adapter error rolls back every
// draft row and is re-raised unchanged.
func (s *ShipmentService) CreateShipments(ctx context.Context, items []CreateShipmentItem) (*OperationResultSet, error) {
	start := time.Now()
	carrierName, err := s.checkPreconditions(items)
	if err != nil {
		return nil, err
	}

	carrier, err := s.deps.Registry.Get(carrierName)
	if err != nil {
		return nil, err
	}

	isReturn := items[0].Blueprint.IsReturn
	var register func(context.Context, []string, CarrierConfig) (*OperationResultSet, error)
	if isReturn {
		caps, err := s.deps.Registry.Capabilities(carrierName)
		if err != nil {
			return nil, err
		}
		if caps.Returns == nil {
			return nil, fmt.Errorf("%w: %s", ErrReturnNotSupported, carrierName)
		}
		register = caps.Returns.RegisterReturnShipments
	} else {
		register = carrier.RegisterShipments
	}

	drafts, err := s.persistDrafts(ctx, items)
	if err != nil {
		return nil, err
	}
	draftIDs := make([]string, len(drafts))
	for i, d := range drafts {
		draftIDs[i] = d.ID
	}

	direction := DirectionForward
	if isReturn {
		direction = DirectionReturn
	}
	cfg := CarrierConfig{Direction: direction, Settings: items[0].Blueprint.Config}

	s.deps.Logger.Info("Registering shipments",
		zap.String("carrier", carrierName),
		zap.Strings("shipment_ids", draftIDs),
		zap.String("direction", direction.String()),
	)

	resultSet, err := register(ctx, draftIDs, cfg)
	if err != nil {
		// Full rollback, then re-raise unchanged.
		if delErr := s.deleteDrafts(ctx, draftIDs); delErr != nil {
			s.deps.Logger.Error("Rollback of draft shipments failed",
				zap.Strings("shipment_ids", draftIDs),
				zap.Error(delErr),
			)
		}
		s.record("register", carrierName, "error", start)
		return nil, err
	}

	if !resultSet.ProcessedAll(draftIDs...) {
		if delErr := s.deleteDrafts(ctx, draftIDs); delErr != nil {
			s.deps.Logger.Error("Rollback of draft shipments failed",
				zap.Strings("shipment_ids", draftIDs),
				zap.Error(delErr),
			)
		}
		s.record("register", carrierName, "contract_violation", start)
		return nil, &ContractViolationError{
			Carrier:    carrierName,
			MissingIDs: missingIDs(resultSet, draftIDs),
		}
	}

	if err := s.reconcile(ctx, resultSet, draftIDs); err != nil {
		s.record("register", carrierName, "error", start)
		return nil, err
	}

	s.record("register", carrierName, "ok", start)
	return resultSet, nil
}

// CancelShipment cancels one shipment with its carrier. A non-successful
// carrier result is returned untouched without mutating state; on success
// the shipment is marked cancelled and its tracking codes are removed from
// the order.
func (s *ShipmentService) CancelShipment(ctx context.Context, shipmentID string) (*OperationResultSet, error) {
	start := time.Now()
	sh, err := s.deps.Shipments.FindShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	carrier, err := s.deps.Registry.Get(sh.CarrierName)
	if err != nil {
		return nil, err
	}

	direction := DirectionForward
	cancel := carrier.CancelShipments
	if sh.IsReturn {
		direction = DirectionReturn
		caps, err := s.deps.Registry.Capabilities(sh.CarrierName)
		if err != nil {
			return nil, err
		}
		if caps.Returns == nil {
			return nil, fmt.Errorf("%w: %s", ErrReturnNotSupported, sh.CarrierName)
		}
		cancel = caps.Returns.CancelReturnShipments
	}

	settings, err := s.deps.Config.ShipmentConfig(ctx, sh.CarrierName, direction)
	if err != nil {
		return nil, fmt.Errorf("resolve shipment config for %s: %w", sh.CarrierName, err)
	}

	resultSet, err := cancel(ctx, []string{shipmentID}, CarrierConfig{Direction: direction, Settings: settings})
	if err != nil {
		s.record("cancel", sh.CarrierName, "error", start)
		return nil, err
	}
	if !resultSet.ProcessedAll(shipmentID) {
		s.record("cancel", sh.CarrierName, "contract_violation", start)
		return nil, &ContractViolationError{Carrier: sh.CarrierName, MissingIDs: []string{shipmentID}}
	}
	if resultSet.ResultFor(shipmentID) != OutcomeSuccessful {
		s.record("cancel", sh.CarrierName, "failed", start)
		return resultSet, nil
	}

	err = s.deps.Tx.InTx(ctx, func(ctx context.Context) error {
		sh.Cancelled = true
		if err := s.deps.Shipments.UpdateShipment(ctx, sh); err != nil {
			return fmt.Errorf("mark shipment %s cancelled: %w", shipmentID, err)
		}
		return s.deps.Tracking.Apply(ctx, sh)
	})
	if err != nil {
		s.record("cancel", sh.CarrierName, "error", start)
		return nil, err
	}

	s.deps.Logger.Info("Shipment cancelled",
		zap.String("shipment_id", shipmentID),
		zap.String("carrier", sh.CarrierName),
		zap.Bool("is_return", sh.IsReturn),
	)
	s.record("cancel", sh.CarrierName, "ok", start)
	return resultSet, nil
}

// checkPreconditions validates the batch before any persistence: exactly
// one carrier, exactly one sales channel, carrier selected and active.
func (s *ShipmentService) checkPreconditions(items []CreateShipmentItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no shipments to create")
	}
	carrierName := items[0].Blueprint.CarrierName
	for _, item := range items[1:] {
		if item.Blueprint.CarrierName != carrierName {
			return "", fmt.Errorf("%w: %s and %s", ErrMixedCarriers, carrierName, item.Blueprint.CarrierName)
		}
	}
	if carrierName == "" {
		return "", ErrCarrierNotSelected
	}
	if !s.deps.Config.IsActive(carrierName) {
		return "", fmt.Errorf("%w: %s", ErrCarrierNotActive, carrierName)
	}
	return carrierName, nil
}

// persistDrafts writes one draft shipment row per item inside one
// transaction. The sales-channel ID is looked up from the order; a batch
// spanning sales channels is rejected.
func (s *ShipmentService) persistDrafts(ctx context.Context, items []CreateShipmentItem) ([]*Shipment, error) {
	drafts := make([]*Shipment, 0, len(items))
	err := s.deps.Tx.InTx(ctx, func(ctx context.Context) error {
		salesChannel := ""
		for _, item := range items {
			order, err := s.deps.Orders.FindOrder(ctx, item.OrderID)
			if err != nil {
				return fmt.Errorf("find order %s: %w", item.OrderID, err)
			}
			if salesChannel == "" {
				salesChannel = order.SalesChannelID
			} else if order.SalesChannelID != salesChannel {
				return fmt.Errorf("%w: %s and %s", ErrMixedSalesChannels, salesChannel, order.SalesChannelID)
			}

			bp := item.Blueprint
			draft := &Shipment{
				ID:                  uuid.NewString(),
				CarrierName:         bp.CarrierName,
				IsReturn:            bp.IsReturn,
				EnclosedReturnLabel: bp.EnclosedReturnLabel,
				CashOnDelivery:      s.cashOnDeliveryEnabled(bp),
				SalesChannelID:      order.SalesChannelID,
				OrderIDs:            []string{order.ID},
				Sender:              bp.Sender.Normalized(),
				Receiver:            bp.Receiver.Normalized(),
				Parcels:             cloneParcels(bp.Parcels),
				Config:              bp.Config.Clone(),
			}
			if err := s.deps.Shipments.CreateShipment(ctx, draft); err != nil {
				return fmt.Errorf("persist draft shipment for order %s: %w", order.ID, err)
			}
			drafts = append(drafts, draft)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func (s *ShipmentService) cashOnDeliveryEnabled(bp ShipmentBlueprint) bool {
	if !bp.CarrierSelected() {
		return false
	}
	caps, err := s.deps.Registry.Capabilities(bp.CarrierName)
	if err != nil || caps.CashOnDelivery == nil {
		return false
	}
	return caps.CashOnDelivery.CashOnDeliveryEnabled(bp.Config)
}

// reconcile deletes fully-failed draft rows and copies tracking codes for
// every successfully or partly successfully processed shipment.
func (s *ShipmentService) reconcile(ctx context.Context, resultSet *OperationResultSet, draftIDs []string) error {
	return s.deps.Tx.InTx(ctx, func(ctx context.Context) error {
		var failed []string
		for _, id := range draftIDs {
			if resultSet.ResultFor(id) == OutcomeNoneSuccessful {
				failed = append(failed, id)
			}
		}
		if len(failed) > 0 {
			if err := s.deps.Shipments.DeleteShipments(ctx, failed...); err != nil {
				return fmt.Errorf("delete failed shipments: %w", err)
			}
			s.deps.Logger.Warn("Deleted failed draft shipments",
				zap.Strings("shipment_ids", failed),
			)
		}

		for _, id := range draftIDs {
			if !resultSet.Succeeded(id) {
				continue
			}
			sh, err := s.deps.Shipments.FindShipment(ctx, id)
			if err != nil {
				return fmt.Errorf("reload shipment %s: %w", id, err)
			}
			if err := s.deps.Tracking.Apply(ctx, sh); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ShipmentService) deleteDrafts(ctx context.Context, ids []string) error {
	return s.deps.Tx.InTx(ctx, func(ctx context.Context) error {
		return s.deps.Shipments.DeleteShipments(ctx, ids...)
	})
}

func (s *ShipmentService) record(operation, carrier, status string, start time.Time) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordRequest(operation, carrier, status, time.Since(start).Seconds())
	}
}

func missingIDs(resultSet *OperationResultSet, ids []string) []string {
	var missing []string
	for _, id := range ids {
		if resultSet.ResultFor(id) == OutcomeNotAffected {
			missing = append(missing, id)
		}
	}
	return missing
}
