package shipment

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// SynchronizeTrackingCodes merges a shipment's tracking codes into an
// existing order-level list. For a cancelled shipment the codes are removed
// instead of added. The result is deduplicated and order-preserving, which
// makes the operation idempotent.
func SynchronizeTrackingCodes(existing, shipmentCodes []string, cancelled bool) []string {
	if cancelled {
		removed := make(map[string]struct{}, len(shipmentCodes))
		for _, c := range shipmentCodes {
			removed[c] = struct{}{}
		}
		result := make([]string, 0, len(existing))
		seen := make(map[string]struct{}, len(existing))
		for _, c := range existing {
			if _, drop := removed[c]; drop {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			result = append(result, c)
		}
		return result
	}

	result := make([]string, 0, len(existing)+len(shipmentCodes))
	seen := make(map[string]struct{}, len(existing)+len(shipmentCodes))
	for _, c := range append(append([]string{}, existing...), shipmentCodes...) {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}
	return result
}

// SplitReturnTrackingCodes parses the legacy comma-joined return
// tracking-code field. An empty string is an empty list, exactly.
func SplitReturnTrackingCodes(joined string) []string {
	if joined == "" {
		return []string{}
	}
	parts := strings.Split(joined, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			codes = append(codes, trimmed)
		}
	}
	return codes
}

// JoinReturnTrackingCodes renders codes into the legacy comma-joined field.
// An empty list is an empty string, exactly.
func JoinReturnTrackingCodes(codes []string) string {
	return strings.Join(codes, ",")
}

// TrackingCodeUpdater keeps order-level tracking-code lists consistent with
// the tracking codes of the order's shipments, separately per direction.
// All writes run under the elevated system scope.
type TrackingCodeUpdater struct {
	orders OrderStore
	logger *otelzap.Logger
}

// NewTrackingCodeUpdater creates a new updater.
func NewTrackingCodeUpdater(orders OrderStore, logger *otelzap.Logger) *TrackingCodeUpdater {
	return &TrackingCodeUpdater{orders: orders, logger: logger}
}

// Apply reconciles the shipment's tracking codes into every associated
// order: outbound codes go to the primary delivery's tracking list, return
// codes to the comma-joined custom field. Cancelled shipments have their
// codes removed.
func (u *TrackingCodeUpdater) Apply(ctx context.Context, sh *Shipment) error {
	outgoing := sh.CodesFor(TrackingOutgoing)
	incoming := sh.CodesFor(TrackingIncoming)

	for _, orderID := range sh.OrderIDs {
		order, err := u.orders.FindOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find order %s: %w", orderID, err)
		}

		if order.PrimaryDelivery != nil && (len(outgoing) > 0 || sh.Cancelled) {
			merged := SynchronizeTrackingCodes(order.PrimaryDelivery.TrackingCodes, outgoing, sh.Cancelled)
			if err := u.orders.UpdateDeliveryTrackingCodes(ctx, ScopeSystem, orderID, merged); err != nil {
				return fmt.Errorf("update delivery tracking codes for order %s: %w", orderID, err)
			}
		}

		if len(incoming) > 0 || (sh.Cancelled && sh.IsReturn) {
			existing := SplitReturnTrackingCodes(order.ReturnTrackingCodes)
			merged := SynchronizeTrackingCodes(existing, incoming, sh.Cancelled)
			if err := u.orders.UpdateReturnTrackingCodes(ctx, ScopeSystem, orderID, JoinReturnTrackingCodes(merged)); err != nil {
				return fmt.Errorf("update return tracking codes for order %s: %w", orderID, err)
			}
		}

		u.logger.Info("Synchronized tracking codes",
			zap.String("order_id", orderID),
			zap.String("shipment_id", sh.ID),
			zap.Bool("cancelled", sh.Cancelled),
			zap.Int("outgoing", len(outgoing)),
			zap.Int("incoming", len(incoming)),
		)
	}
	return nil
}
