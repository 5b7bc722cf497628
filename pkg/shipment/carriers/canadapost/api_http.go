package canadapost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP/XML.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	accountID  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string // Password for Basic Auth
	AccountID string
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		accountID: cfg.AccountID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// XML Request/Response structures for Canada Post API
// ============================================================================

type parcelCharacteristics struct {
	Weight     float64        `xml:"weight"`
	Dimensions *xmlDimensions `xml:"dimensions,omitempty"`
}

type xmlDimensions struct {
	Length float64 `xml:"length"`
	Width  float64 `xml:"width"`
	Height float64 `xml:"height"`
}

// shipmentInfo is the XML structure for shipment requests
type shipmentInfo struct {
	XMLName            xml.Name     `xml:"shipment"`
	Xmlns              string       `xml:"xmlns,attr"`
	GroupID            string       `xml:"group-id,omitempty"`
	CpcPickupIndicator bool         `xml:"cpc-pickup-indicator"`
	DeliverySpec       deliverySpec `xml:"delivery-spec"`
}

type deliverySpec struct {
	ServiceCode      string                `xml:"service-code"`
	Sender           xmlSenderInfo         `xml:"sender"`
	Destination      xmlDestinationInfo    `xml:"destination"`
	ParcelCharacter  parcelCharacteristics `xml:"parcel-characteristics"`
	PrintPreferences printPreferences      `xml:"print-preferences,omitempty"`
}

type xmlSenderInfo struct {
	Name           string            `xml:"name"`
	Company        string            `xml:"company,omitempty"`
	ContactPhone   string            `xml:"contact-phone"`
	AddressDetails xmlAddressDetails `xml:"address-details"`
}

type xmlDestinationInfo struct {
	Name           string            `xml:"name"`
	Company        string            `xml:"company,omitempty"`
	AddressDetails xmlAddressDetails `xml:"address-details"`
}

type xmlAddressDetails struct {
	AddressLine1  string `xml:"address-line-1"`
	AddressLine2  string `xml:"address-line-2,omitempty"`
	City          string `xml:"city"`
	ProvState     string `xml:"prov-state"`
	PostalZipCode string `xml:"postal-zip-code"`
	CountryCode   string `xml:"country-code"`
}

type printPreferences struct {
	OutputFormat string `xml:"output-format"` // "4x6", "8.5x11"
	Encoding     string `xml:"encoding"`      // "PDF", "ZPL"
}

// shipmentInfoResponse is the XML response for shipment creation
type shipmentInfoResponse struct {
	XMLName        xml.Name `xml:"shipment-info"`
	ShipmentID     string   `xml:"shipment-id"`
	ShipmentStatus string   `xml:"shipment-status"`
	TrackingPIN    string   `xml:"tracking-pin"`
}

// authorizedReturn is the XML structure for authorized-return requests
type authorizedReturn struct {
	XMLName          xml.Name              `xml:"authorized-return"`
	Xmlns            string                `xml:"xmlns,attr"`
	ServiceCode      string                `xml:"service-code"`
	Returner         xmlSenderInfo         `xml:"returner"`
	Receiver         xmlDestinationInfo    `xml:"receiver"`
	ParcelCharacter  parcelCharacteristics `xml:"parcel-characteristics"`
	PrintPreferences printPreferences      `xml:"print-preferences,omitempty"`
}

// authorizedReturnInfo is the XML response for authorized-return creation
type authorizedReturnInfo struct {
	XMLName         xml.Name `xml:"authorized-return-info"`
	AuthorizationID string   `xml:"return-authorization-id"`
	TrackingPIN     string   `xml:"tracking-pin"`
}

// messages is the XML error response structure
type messages struct {
	XMLName xml.Name  `xml:"messages"`
	Message []message `xml:"message"`
}

type message struct {
	Code        string `xml:"code"`
	Description string `xml:"description"`
}

// ============================================================================
// API Implementation
// ============================================================================

// CreateShipment creates a new shipment via the Canada Post API.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	info := shipmentInfo{
		Xmlns:              "http://www.canadapost.ca/ws/shipment-v8",
		GroupID:            req.GroupID,
		CpcPickupIndicator: true,
		DeliverySpec: deliverySpec{
			ServiceCode: req.ServiceCode,
			Sender: xmlSenderInfo{
				Name:           req.Sender.Name,
				Company:        req.Sender.Company,
				ContactPhone:   req.Sender.Phone,
				AddressDetails: addressDetailsToXML(req.Sender),
			},
			Destination: xmlDestinationInfo{
				Name:           req.Destination.Name,
				Company:        req.Destination.Company,
				AddressDetails: addressDetailsToXML(req.Destination),
			},
			ParcelCharacter: parcelCharacteristics{
				Weight: req.ParcelWeight,
			},
			PrintPreferences: printPreferences{
				OutputFormat: "4x6",
				Encoding:     "PDF",
			},
		},
	}

	if req.ParcelDimensions.Length > 0 {
		info.DeliverySpec.ParcelCharacter.Dimensions = &xmlDimensions{
			Length: req.ParcelDimensions.Length,
			Width:  req.ParcelDimensions.Width,
			Height: req.ParcelDimensions.Height,
		}
	}

	xmlBody, err := xml.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/rs/%s/%s/shipment", c.accountID, req.GroupID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, "application/vnd.cpc.shipment-v8+xml", xmlBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var shipmentResp shipmentInfoResponse
	if err := xml.NewDecoder(resp.Body).Decode(&shipmentResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ShipmentResponse{
		ShipmentID:     shipmentResp.ShipmentID,
		TrackingPIN:    shipmentResp.TrackingPIN,
		ShipmentStatus: shipmentResp.ShipmentStatus,
	}, nil
}

// CreateAuthorizedReturn creates a return authorization via the Canada
// Post API.
func (c *HTTPAPIClient) CreateAuthorizedReturn(ctx context.Context, req *ReturnRequest) (*ReturnResponse, error) {
	ret := authorizedReturn{
		Xmlns:       "http://www.canadapost.ca/ws/authreturn-v2",
		ServiceCode: req.ServiceCode,
		Returner: xmlSenderInfo{
			Name:           req.Sender.Name,
			Company:        req.Sender.Company,
			ContactPhone:   req.Sender.Phone,
			AddressDetails: addressDetailsToXML(req.Sender),
		},
		Receiver: xmlDestinationInfo{
			Name:           req.Receiver.Name,
			Company:        req.Receiver.Company,
			AddressDetails: addressDetailsToXML(req.Receiver),
		},
		ParcelCharacter: parcelCharacteristics{
			Weight: req.ParcelWeight,
		},
		PrintPreferences: printPreferences{
			OutputFormat: "4x6",
			Encoding:     "PDF",
		},
	}

	xmlBody, err := xml.Marshal(ret)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	path := fmt.Sprintf("/rs/%s/%s/authorizedreturn", c.accountID, c.accountID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, "application/vnd.cpc.authreturn-v2+xml", xmlBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var returnResp authorizedReturnInfo
	if err := xml.NewDecoder(resp.Body).Decode(&returnResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ReturnResponse{
		AuthorizationID: returnResp.AuthorizationID,
		TrackingPIN:     returnResp.TrackingPIN,
	}, nil
}

// VoidShipment voids a shipment via the Canada Post API.
func (c *HTTPAPIClient) VoidShipment(ctx context.Context, shipmentID string) error {
	path := fmt.Sprintf("/rs/%s/shipment/%s", c.accountID, shipmentID)
	resp, err := c.doRequest(ctx, http.MethodDelete, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}
	return nil
}

// Ping verifies connectivity by fetching the service info endpoint.
func (c *HTTPAPIClient) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/rs/serviceinfo/shipment", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return c.parseError(resp)
	}
	return nil
}

// ============================================================================
// HTTP Helpers
// ============================================================================

func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path, contentType string, body []byte) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Canada Post uses Basic Auth with API key:secret
	credentials := c.apiKey
	if c.apiSecret != "" {
		credentials = c.apiKey + ":" + c.apiSecret
	}
	auth := base64.StdEncoding.EncodeToString([]byte(credentials))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept-Language", "en-CA")

	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if contentType != "" {
		req.Header.Set("Accept", contentType)
	}

	return c.httpClient.Do(req)
}

func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	// Try to parse as XML error
	var msgs messages
	if err := xml.Unmarshal(body, &msgs); err == nil && len(msgs.Message) > 0 {
		return &APIError{
			Code:        msgs.Message[0].Code,
			Description: msgs.Message[0].Description,
		}
	}

	return &APIError{
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Description: string(body),
	}
}

func addressDetailsToXML(a Address) xmlAddressDetails {
	return xmlAddressDetails{
		AddressLine1:  a.AddressLine1,
		AddressLine2:  a.AddressLine2,
		City:          a.City,
		ProvState:     a.Province,
		PostalZipCode: normalizePostalCode(a.PostalCode),
		CountryCode:   a.CountryCode,
	}
}

// normalizePostalCode removes spaces from postal codes
func normalizePostalCode(pc string) string {
	return strings.ReplaceAll(strings.ToUpper(pc), " ", "")
}

var _ APIClient = (*HTTPAPIClient)(nil)
