package canadapost

import (
	"context"
)

// APIClient defines the interface for Canada Post API operations. This
// abstraction allows for mock implementations during testing and real
// implementations in production.
type APIClient interface {
	// CreateShipment creates a new outbound shipment
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// CreateAuthorizedReturn creates a return authorization with a
	// customer-bound return label
	CreateAuthorizedReturn(ctx context.Context, req *ReturnRequest) (*ReturnResponse, error)

	// VoidShipment voids/cancels an existing shipment
	VoidShipment(ctx context.Context, shipmentID string) error

	// Ping verifies connectivity with the Canada Post API
	Ping(ctx context.Context) error
}

// ============================================================================
// API Request/Response Types (match Canada Post REST/XML API structure)
// ============================================================================

// Dimensions represents package dimensions in centimetres.
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// Address represents a Canada Post address.
type Address struct {
	Name         string
	Company      string
	AddressLine1 string
	AddressLine2 string
	City         string
	Province     string
	PostalCode   string
	CountryCode  string
	Phone        string
	Email        string
}

// ShipmentRequest represents a Canada Post shipment creation request.
type ShipmentRequest struct {
	GroupID          string
	ServiceCode      string
	Sender           Address
	Destination      Address
	ParcelWeight     float64
	ParcelDimensions Dimensions
}

// ShipmentResponse represents the Canada Post shipment creation response.
type ShipmentResponse struct {
	ShipmentID     string
	TrackingPIN    string
	ShipmentStatus string
}

// ReturnRequest represents a Canada Post authorized-return request. The
// parcel travels from the customer back to the merchant.
type ReturnRequest struct {
	ServiceCode  string
	Sender       Address
	Receiver     Address
	ParcelWeight float64
}

// ReturnResponse represents the Canada Post authorized-return response.
type ReturnResponse struct {
	AuthorizationID string
	TrackingPIN     string
}

// APIError represents an error from the Canada Post API.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Description
}
