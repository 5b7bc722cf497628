package shipment

import (
	"context"
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CreationConfig is the per-order configuration for blueprint creation.
type CreationConfig struct {
	// ShippingMethodID overrides the order's primary delivery method.
	ShippingMethodID string

	// SkipParcelPacking limits repacking to metadata adjustments.
	SkipParcelPacking bool

	// IsReturn builds a return-shipment blueprint with swapped addresses.
	IsReturn bool

	// Filter restricts which order items go into the parcel.
	Filter ProductFilter
}

// BlueprintStatus is the outcome of building one blueprint.
type BlueprintStatus int

const (
	// BlueprintCreated means the blueprint is complete with a carrier.
	BlueprintCreated BlueprintStatus = iota
	// BlueprintCreatedWithoutCarrier means the resolved carrier is
	// inactive, so carrier assignment was skipped.
	BlueprintCreatedWithoutCarrier
	// BlueprintFailed means the order could not be turned into a
	// blueprint; Err holds the cause.
	BlueprintFailed
)

// BlueprintCreationResult is the per-order output of the builder.
type BlueprintCreationResult struct {
	OrderID        string
	Blueprint      ShipmentBlueprint
	Status         BlueprintStatus
	RedactedFields []string
	Err            error
}

// BlueprintBuilderDeps bundles the builder's collaborators.
type BlueprintBuilderDeps struct {
	Orders    OrderStore
	Shipments ShipmentStore
	Registry  *Registry
	Config    CarrierConfigurationService
	Corrector AddressCorrector
	Redactor  PersonalDataRedactor
	Hydrator  ParcelHydrator
	Packer    ParcelPacker
	Notifier  Notifier
	Observers []BlueprintObserver
	Logger    *otelzap.Logger
}

// BlueprintBuilder derives shipment blueprints from orders.
type BlueprintBuilder struct {
	deps BlueprintBuilderDeps
}

// NewBlueprintBuilder creates a new builder.
func NewBlueprintBuilder(deps BlueprintBuilderDeps) *BlueprintBuilder {
	return &BlueprintBuilder{deps: deps}
}

// Build creates one blueprint per order. A failure for one order does not
// stop the others; it is recorded in that order's result.
func (b *BlueprintBuilder) Build(ctx context.Context, orderIDs []string, cfg CreationConfig) ([]BlueprintCreationResult, error) {
	results := make([]BlueprintCreationResult, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		result, err := b.buildForOrder(ctx, orderID, cfg)
		if err != nil {
			b.deps.Logger.Error("Blueprint creation failed",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
			result = BlueprintCreationResult{OrderID: orderID, Status: BlueprintFailed, Err: err}
		}
		results = append(results, result)
	}
	return results, nil
}

func (b *BlueprintBuilder) buildForOrder(ctx context.Context, orderID string, cfg CreationConfig) (BlueprintCreationResult, error) {
	order, err := b.deps.Orders.FindOrder(ctx, orderID)
	if err != nil {
		return BlueprintCreationResult{}, fmt.Errorf("find order %s: %w", orderID, err)
	}

	// Shipping method: explicit override wins over the primary delivery.
	methodID := cfg.ShippingMethodID
	if methodID == "" && order.PrimaryDelivery != nil {
		methodID = order.PrimaryDelivery.ShippingMethodID
	}
	method, err := b.deps.Config.ShippingMethod(ctx, methodID)
	if err != nil {
		return BlueprintCreationResult{}, fmt.Errorf("resolve shipping method %s: %w", methodID, err)
	}
	carrierName := method.CarrierName

	sender, err := b.resolveSenderAddress(ctx, carrierName)
	if err != nil {
		return BlueprintCreationResult{}, err
	}
	importer, err := b.deps.Config.ImporterOfRecord(ctx, carrierName)
	if err != nil {
		return BlueprintCreationResult{}, fmt.Errorf("resolve importer of record: %w", err)
	}

	bp := ShipmentBlueprint{
		CustomerReference: order.ID,
		ImporterOfRecord:  importer,
		IsReturn:          cfg.IsReturn,
	}

	// The receiver is always corrected and redacted before assignment.
	// For a return blueprint the roles swap: the corrected sender becomes
	// the receiver and the sender is the original, uncorrected receiver.
	receiverSource := order.DeliveryAddress.Normalized()
	if cfg.IsReturn {
		bp.Sender = receiverSource
		receiverSource = sender
	} else {
		bp.Sender = sender
	}
	corrected, err := b.deps.Corrector.Correct(ctx, receiverSource)
	if err != nil {
		return BlueprintCreationResult{}, fmt.Errorf("correct receiver address: %w", err)
	}
	receiver, redactedFields, err := b.deps.Redactor.Redact(ctx, corrected)
	if err != nil {
		return BlueprintCreationResult{}, fmt.Errorf("redact receiver address: %w", err)
	}
	bp.Receiver = receiver
	for i, f := range redactedFields {
		redactedFields[i] = "receiver." + f
	}

	direction := DirectionForward
	if cfg.IsReturn {
		direction = DirectionReturn
	}

	status := BlueprintCreated
	carrierActive := b.deps.Config.IsActive(carrierName)
	if carrierActive {
		shipCfg, err := b.deps.Config.ShipmentConfig(ctx, carrierName, direction)
		if err != nil {
			return BlueprintCreationResult{}, fmt.Errorf("resolve shipment config for %s: %w", carrierName, err)
		}
		bp = bp.WithCarrier(carrierName, shipCfg)
	} else {
		status = BlueprintCreatedWithoutCarrier
	}

	parcel, err := b.deps.Hydrator.Hydrate(ctx, order, cfg.Filter)
	if err != nil {
		return BlueprintCreationResult{}, fmt.Errorf("hydrate parcel for order %s: %w", orderID, err)
	}
	bp.Parcels = []Parcel{parcel}

	customs, err := b.deps.Config.CustomsDefaults(ctx)
	if err != nil {
		return BlueprintCreationResult{}, fmt.Errorf("resolve customs defaults: %w", err)
	}

	bp = bp.WithFee(Fee{
		Type:   FeeShippingCosts,
		Amount: Money{Amount: order.ShippingTotal, Currency: order.Currency},
	})

	if inv := order.LatestInvoice(); inv != nil {
		customs.InvoiceNumber = inv.Number
		customs.InvoiceDate = inv.Date
	}
	bp = bp.WithCustoms(customs)
	if err := bp.Customs.Validate(); err != nil {
		return BlueprintCreationResult{}, err
	}

	codEnabled := false
	if carrierActive && bp.CarrierSelected() {
		codEnabled, err = b.applyCashOnDelivery(ctx, order, &bp)
		if err != nil {
			return BlueprintCreationResult{}, err
		}
	}

	if err := b.repack(ctx, &bp, carrierName, cfg.SkipParcelPacking); err != nil {
		return BlueprintCreationResult{}, err
	}

	// COD shipments are never split across parcels: collapse and tell the
	// merchant that packing was skipped.
	if codEnabled && len(bp.Parcels) > 1 {
		bp = bp.WithParcels([]Parcel{MergeParcels(bp.Parcels)})
		b.deps.Notifier.Notify(ctx, Notification{
			Type:    NotificationParcelPackingSkipped,
			OrderID: order.ID,
			Message: "parcel packing skipped: cash on delivery requires a single parcel",
		})
	}

	for _, obs := range b.deps.Observers {
		obs.BlueprintCreated(ctx, order.ID, bp)
	}

	b.deps.Logger.Info("Blueprint created",
		zap.String("order_id", order.ID),
		zap.String("carrier", bp.CarrierName),
		zap.String("direction", direction.String()),
		zap.Int("parcels", len(bp.Parcels)),
		zap.Bool("cash_on_delivery", codEnabled),
	)

	return BlueprintCreationResult{
		OrderID:        order.ID,
		Blueprint:      bp,
		Status:         status,
		RedactedFields: redactedFields,
	}, nil
}

func (b *BlueprintBuilder) resolveSenderAddress(ctx context.Context, carrierName string) (Address, error) {
	alt, err := b.deps.Config.AlternativeSenderAddress(ctx, carrierName)
	if err != nil {
		return Address{}, fmt.Errorf("resolve alternative sender address: %w", err)
	}
	if alt != nil {
		return alt.Normalized(), nil
	}
	common, err := b.deps.Config.CommonSenderAddress(ctx)
	if err != nil {
		return Address{}, fmt.Errorf("resolve common sender address: %w", err)
	}
	return common.Normalized(), nil
}

// applyCashOnDelivery enables COD when the carrier supports it, the
// order's payment method is in the configured set, and no earlier
// non-cancelled shipment of the order already carries COD.
func (b *BlueprintBuilder) applyCashOnDelivery(ctx context.Context, order *Order, bp *ShipmentBlueprint) (bool, error) {
	caps, err := b.deps.Registry.Capabilities(bp.CarrierName)
	if err != nil {
		return false, err
	}
	if caps.CashOnDelivery == nil {
		return false, nil
	}

	methods, err := b.deps.Config.CashOnDeliveryPaymentMethods(ctx, bp.CarrierName)
	if err != nil {
		return false, fmt.Errorf("resolve COD payment methods: %w", err)
	}
	eligible := false
	for _, m := range methods {
		if m == order.PaymentMethodID {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}

	existing, err := b.deps.Shipments.FindShipmentsByOrder(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("find shipments for order %s: %w", order.ID, err)
	}
	for _, sh := range existing {
		if !sh.Cancelled && sh.CashOnDelivery {
			b.deps.Notifier.Notify(ctx, Notification{
				Type:    NotificationCashOnDeliveryExists,
				OrderID: order.ID,
				Message: fmt.Sprintf("shipment %s already collects cash on delivery", sh.ID),
			})
			return false, nil
		}
	}

	amount := Money{Amount: order.AmountTotal, Currency: order.Currency}
	*bp = bp.WithConfig(caps.CashOnDelivery.EnableCashOnDelivery(bp.Config, amount))
	return true, nil
}

func (b *BlueprintBuilder) repack(ctx context.Context, bp *ShipmentBlueprint, carrierName string, skip bool) error {
	packingCfg, err := b.deps.Config.PackingConfig(ctx, carrierName)
	if err != nil {
		return fmt.Errorf("resolve packing config for %s: %w", carrierName, err)
	}

	var parcels []Parcel
	if skip {
		parcels, err = b.deps.Packer.AdjustMetadata(ctx, bp.Parcels, packingCfg)
	} else {
		parcels, err = b.deps.Packer.Repack(ctx, bp.Parcels, packingCfg)
	}
	if err != nil {
		return fmt.Errorf("repack parcels: %w", err)
	}
	*bp = bp.WithParcels(parcels)
	return nil
}
