package canadapost

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipment         func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnCreateAuthorizedReturn func(ctx context.Context, req *ReturnRequest) (*ReturnResponse, error)
	OnVoidShipment           func(ctx context.Context, shipmentID string) error
	OnPing                   func(ctx context.Context) error
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CreateShipment creates a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}

	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}

	shipmentID := "cp-ship-" + uuid.New().String()[:8]
	trackingPIN := fmt.Sprintf("%d", 1000000000000+time.Now().UnixNano()%9000000000000)

	return &ShipmentResponse{
		ShipmentID:     shipmentID,
		TrackingPIN:    trackingPIN,
		ShipmentStatus: "created",
	}, nil
}

// CreateAuthorizedReturn creates a mock return authorization.
func (m *MockAPIClient) CreateAuthorizedReturn(ctx context.Context, req *ReturnRequest) (*ReturnResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}

	if m.OnCreateAuthorizedReturn != nil {
		return m.OnCreateAuthorizedReturn(ctx, req)
	}

	return &ReturnResponse{
		AuthorizationID: "cp-return-" + uuid.New().String()[:8],
		TrackingPIN:     fmt.Sprintf("%d", 2000000000000+time.Now().UnixNano()%9000000000000),
	}, nil
}

// VoidShipment cancels a mock shipment.
func (m *MockAPIClient) VoidShipment(ctx context.Context, shipmentID string) error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}

	if m.OnVoidShipment != nil {
		return m.OnVoidShipment(ctx, shipmentID)
	}
	return nil
}

// Ping reports mock connectivity.
func (m *MockAPIClient) Ping(ctx context.Context) error {
	if m.SimulateErrors {
		return &APIError{Code: "MOCK_ERROR", Description: "Simulated API error"}
	}
	if m.OnPing != nil {
		return m.OnPing(ctx)
	}
	return nil
}

var _ APIClient = (*MockAPIClient)(nil)
