// Package canadapost provides the Canada Post carrier integration.
package canadapost

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/delivro/shipment/pkg/shipment"
)

const carrierName = "canadapost"

// Configuration keys read from the resolved carrier settings.
const (
	configKeyServiceCode = "serviceCode"
	configKeyGroupID     = "groupId"

	// configKeyShipmentID holds the Canada Post shipment ID on the
	// shipment row after registration; cancellation needs it to void.
	configKeyShipmentID = "canadapostShipmentId"

	defaultServiceCode = "DOM.RP"
	defaultGroupID     = "default"
)

// Config holds Canada Post configuration.
type Config struct {
	APIKey    string
	AccountID string
	BaseURL   string
	UseMock   bool
}

// Client is the Canada Post carrier integration. It loads the shipment
// rows it operates on, calls the Canada Post API per shipment, and
// persists tracking codes and the carrier shipment ID back onto the row.
type Client struct {
	config    Config
	apiClient APIClient
	shipments shipment.ShipmentStore
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

var (
	_ shipment.Carrier               = (*Client)(nil)
	_ shipment.ReturnShipmentCarrier = (*Client)(nil)
	_ shipment.TrackingURLProvider   = (*Client)(nil)
	_ shipment.HealthChecker         = (*Client)(nil)
)

// New creates a new Canada Post client.
func New(cfg Config, shipments shipment.ShipmentStore, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			AccountID: cfg.AccountID,
			Timeout:   30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		shipments: shipments,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Canada Post client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, shipments shipment.ShipmentStore, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		shipments: shipments,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// RegisterShipments books the given shipments with Canada Post. An API
// failure for one shipment is recorded as a failed result; a persistence
// failure aborts the whole operation.
func (c *Client) RegisterShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	ctx, span := c.span(ctx, "canadapost.RegisterShipments")
	defer span.End()

	set := shipment.NewOperationResultSet()
	for _, id := range shipmentIDs {
		sh, err := c.shipments.FindShipment(ctx, id)
		if err != nil {
			return nil, err
		}

		resp, err := c.apiClient.CreateShipment(ctx, c.shipmentRequest(sh, cfg.Settings))
		if err != nil {
			c.logger.Ctx(ctx).Error("Canada Post API error",
				zap.String("shipment_id", id),
				zap.Error(err),
			)
			set.Add(shipment.NewFailureResult("Registering shipment failed", []string{err.Error()}, id))
			continue
		}

		sh.TrackingCodes = append(sh.TrackingCodes, shipment.TrackingCode{
			Code:      resp.TrackingPIN,
			Direction: shipment.TrackingOutgoing,
		})
		if sh.Config == nil {
			sh.Config = shipment.ShipmentConfig{}
		}
		sh.Config[configKeyShipmentID] = resp.ShipmentID
		if err := c.shipments.UpdateShipment(ctx, sh); err != nil {
			return nil, fmt.Errorf("persist registration of shipment %s: %w", id, err)
		}

		c.logger.Ctx(ctx).Info("Registered Canada Post shipment",
			zap.String("shipment_id", id),
			zap.String("canadapost_shipment_id", resp.ShipmentID),
			zap.String("tracking_pin", resp.TrackingPIN),
		)
		set.Add(shipment.NewSuccessResult("Shipment registered", id))
	}
	return set, nil
}

// CancelShipments voids the given shipments with Canada Post. Shipments
// that are already cancelled are reported as a no-operation.
func (c *Client) CancelShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	ctx, span := c.span(ctx, "canadapost.CancelShipments")
	defer span.End()

	set := shipment.NewOperationResultSet()
	for _, id := range shipmentIDs {
		sh, err := c.shipments.FindShipment(ctx, id)
		if err != nil {
			return nil, err
		}
		if sh.Cancelled {
			set.Add(shipment.NoOperationResult(id))
			continue
		}

		cpID, _ := sh.Config[configKeyShipmentID].(string)
		if cpID == "" {
			set.Add(shipment.NewFailureResult("Cancelling shipment failed",
				[]string{"shipment was never registered with Canada Post"}, id))
			continue
		}

		if err := c.apiClient.VoidShipment(ctx, cpID); err != nil {
			c.logger.Ctx(ctx).Error("Canada Post API error",
				zap.String("shipment_id", id),
				zap.Error(err),
			)
			set.Add(shipment.NewFailureResult("Cancelling shipment failed", []string{err.Error()}, id))
			continue
		}

		set.Add(shipment.NewSuccessResult("Shipment cancelled", id))
	}
	return set, nil
}

// RegisterReturnShipments creates return authorizations for the given
// shipments.
func (c *Client) RegisterReturnShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	ctx, span := c.span(ctx, "canadapost.RegisterReturnShipments")
	defer span.End()

	set := shipment.NewOperationResultSet()
	for _, id := range shipmentIDs {
		sh, err := c.shipments.FindShipment(ctx, id)
		if err != nil {
			return nil, err
		}

		req := &ReturnRequest{
			ServiceCode:  settingOrDefault(cfg.Settings, configKeyServiceCode, defaultServiceCode),
			Sender:       addressToAPI(sh.Sender),
			Receiver:     addressToAPI(sh.Receiver),
			ParcelWeight: totalWeight(sh.Parcels),
		}
		resp, err := c.apiClient.CreateAuthorizedReturn(ctx, req)
		if err != nil {
			c.logger.Ctx(ctx).Error("Canada Post API error",
				zap.String("shipment_id", id),
				zap.Error(err),
			)
			set.Add(shipment.NewFailureResult("Registering return shipment failed", []string{err.Error()}, id))
			continue
		}

		sh.TrackingCodes = append(sh.TrackingCodes, shipment.TrackingCode{
			Code:      resp.TrackingPIN,
			Direction: shipment.TrackingIncoming,
		})
		if sh.Config == nil {
			sh.Config = shipment.ShipmentConfig{}
		}
		sh.Config[configKeyShipmentID] = resp.AuthorizationID
		if err := c.shipments.UpdateShipment(ctx, sh); err != nil {
			return nil, fmt.Errorf("persist registration of return shipment %s: %w", id, err)
		}

		set.Add(shipment.NewSuccessResult("Return shipment registered", id))
	}
	return set, nil
}

// CancelReturnShipments voids the given return shipments. Canada Post
// voids return authorizations through the same endpoint as shipments.
func (c *Client) CancelReturnShipments(ctx context.Context, shipmentIDs []string, cfg shipment.CarrierConfig) (*shipment.OperationResultSet, error) {
	return c.CancelShipments(ctx, shipmentIDs, cfg)
}

// TrackingURL builds one Canada Post tracking URL for the first code.
func (c *Client) TrackingURL(codes []string) (string, bool) {
	if len(codes) == 0 {
		return "", false
	}
	return "https://www.canadapost-postescanada.ca/track-reperage/en#/search?searchFor=" + codes[0], true
}

// Ping verifies connectivity with the Canada Post API.
func (c *Client) Ping(ctx context.Context) error {
	return c.apiClient.Ping(ctx)
}

func (c *Client) shipmentRequest(sh *shipment.Shipment, settings shipment.ShipmentConfig) *ShipmentRequest {
	req := &ShipmentRequest{
		GroupID:      settingOrDefault(settings, configKeyGroupID, defaultGroupID),
		ServiceCode:  settingOrDefault(settings, configKeyServiceCode, defaultServiceCode),
		Sender:       addressToAPI(sh.Sender),
		Destination:  addressToAPI(sh.Receiver),
		ParcelWeight: totalWeight(sh.Parcels),
	}
	if len(sh.Parcels) > 0 {
		p := sh.Parcels[0]
		req.ParcelDimensions = Dimensions{Length: p.Length, Width: p.Width, Height: p.Height}
	}
	return req
}

func (c *Client) span(ctx context.Context, name string) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return c.tracer.Start(ctx, name)
}

func settingOrDefault(settings shipment.ShipmentConfig, key, fallback string) string {
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func totalWeight(parcels []shipment.Parcel) float64 {
	var total float64
	for _, p := range parcels {
		total += p.Weight
	}
	return total
}

func addressToAPI(a shipment.Address) Address {
	return Address{
		Name:         a.Name,
		Company:      a.Company,
		AddressLine1: a.Street + " " + a.HouseNumber,
		City:         a.City,
		Province:     a.StateCode,
		PostalCode:   a.Zip,
		CountryCode:  a.CountryCode,
		Phone:        a.Phone,
		Email:        a.Email,
	}
}
