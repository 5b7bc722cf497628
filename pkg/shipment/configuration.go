package shipment

import (
	"context"
	"fmt"
)

// CarrierSettings is the static per-carrier configuration backing
// StaticConfiguration.
type CarrierSettings struct {
	Active            bool
	ForwardConfig     ShipmentConfig
	ReturnConfig      ShipmentConfig
	Packing           PackingConfig
	SenderAddress     *Address
	ImporterOfRecord  *Address
	CODPaymentMethods []string
}

// StaticConfiguration is a CarrierConfigurationService backed by in-memory
// data. Production deployments feed it from the environment; tests build
// it directly.
type StaticConfiguration struct {
	Carriers        map[string]CarrierSettings
	ShippingMethods map[string]ShippingMethod
	SenderAddress   Address
	Customs         CustomsInfo
}

var _ CarrierConfigurationService = (*StaticConfiguration)(nil)

func (c *StaticConfiguration) IsActive(carrierName string) bool {
	return c.Carriers[carrierName].Active
}

func (c *StaticConfiguration) ShippingMethod(_ context.Context, methodID string) (*ShippingMethod, error) {
	m, ok := c.ShippingMethods[methodID]
	if !ok {
		return nil, fmt.Errorf("shipping method %q not configured", methodID)
	}
	return &m, nil
}

func (c *StaticConfiguration) ShipmentConfig(_ context.Context, carrierName string, dir ShipmentDirection) (ShipmentConfig, error) {
	settings, ok := c.Carriers[carrierName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, carrierName)
	}
	if dir == DirectionReturn {
		return settings.ReturnConfig.Clone(), nil
	}
	return settings.ForwardConfig.Clone(), nil
}

func (c *StaticConfiguration) PackingConfig(_ context.Context, carrierName string) (PackingConfig, error) {
	return c.Carriers[carrierName].Packing, nil
}

func (c *StaticConfiguration) AlternativeSenderAddress(_ context.Context, carrierName string) (*Address, error) {
	return c.Carriers[carrierName].SenderAddress, nil
}

func (c *StaticConfiguration) ImporterOfRecord(_ context.Context, carrierName string) (*Address, error) {
	return c.Carriers[carrierName].ImporterOfRecord, nil
}

func (c *StaticConfiguration) CashOnDeliveryPaymentMethods(_ context.Context, carrierName string) ([]string, error) {
	return c.Carriers[carrierName].CODPaymentMethods, nil
}

func (c *StaticConfiguration) CommonSenderAddress(_ context.Context) (Address, error) {
	return c.SenderAddress, nil
}

func (c *StaticConfiguration) CustomsDefaults(_ context.Context) (CustomsInfo, error) {
	return c.Customs, nil
}
