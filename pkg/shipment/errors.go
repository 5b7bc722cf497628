package shipment

import (
	"errors"
	"fmt"
	"strings"
)

// CarrierError represents an error from a carrier integration.
type CarrierError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *CarrierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CarrierError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CarrierError.
func (e *CarrierError) Is(target error) bool {
	t, ok := target.(*CarrierError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewCarrierError creates a new CarrierError.
func NewCarrierError(carrier, code, message string) *CarrierError {
	return &CarrierError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *CarrierError) WithCause(err error) *CarrierError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *CarrierError) WithStatusCode(code int) *CarrierError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *CarrierError) WithRetryable(retryable bool) *CarrierError {
	e.Retryable = retryable
	return e
}

// ContractViolationError reports a carrier adapter that returned a result set
// omitting shipment IDs it was asked to process. This is a carrier-integration
// bug, never user input.
type ContractViolationError struct {
	Carrier    string
	MissingIDs []string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("carrier %s violated the operation contract: no result for shipments [%s]",
		e.Carrier, strings.Join(e.MissingIDs, ", "))
}

func (e *ContractViolationError) Is(target error) bool {
	return target == ErrAdapterContract
}

// Sentinel errors for shipment operations. The first group are precondition
// errors raised before any persistence; callers may show them to users.
var (
	// ErrCarrierNotSelected indicates the blueprint names no carrier.
	ErrCarrierNotSelected = errors.New("no carrier selected")

	// ErrCarrierNotActive indicates the selected carrier is deactivated.
	ErrCarrierNotActive = errors.New("carrier not activated")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrMixedCarriers indicates a batch naming more than one carrier.
	ErrMixedCarriers = errors.New("multiple carriers in one batch")

	// ErrMixedSalesChannels indicates a batch spanning sales channels.
	ErrMixedSalesChannels = errors.New("multiple sales channels in one batch")

	// ErrReturnNotSupported indicates the carrier has no return capability.
	ErrReturnNotSupported = errors.New("carrier does not support return shipments")

	// ErrAdapterContract indicates a result set that omits requested IDs.
	ErrAdapterContract = errors.New("adapter violated result contract")

	// ErrMixedCurrencies indicates a monetary sum across currencies.
	ErrMixedCurrencies = errors.New("mixed currencies")

	// ErrUnknownCountryCode indicates a code missing from the ISO table.
	ErrUnknownCountryCode = errors.New("unknown country code")

	// ErrNoCountry indicates an address without a country code.
	ErrNoCountry = errors.New("no country code set")

	// ErrInvalidInvoiceDate indicates an invoice date not in YYYY-MM-DD form.
	ErrInvalidInvoiceDate = errors.New("invalid invoice date")

	// ErrShipmentNotFound indicates the shipment ID was not found.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrOrderNotFound indicates the order ID was not found.
	ErrOrderNotFound = errors.New("order not found")

	// ErrElevatedScopeRequired indicates a tracking-code write attempted
	// without the system scope.
	ErrElevatedScopeRequired = errors.New("elevated write scope required")

	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		return carrierErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
