package shipment

// OperationOutcome classifies the aggregate outcome of all carrier
// operations that referenced one shipment ID.
type OperationOutcome int

const (
	// OutcomeNotAffected means no operation referenced the shipment.
	OutcomeNotAffected OperationOutcome = iota
	// OutcomeSuccessful means every referencing operation succeeded.
	OutcomeSuccessful
	// OutcomePartlySuccessful means some referencing operations succeeded.
	OutcomePartlySuccessful
	// OutcomeNoneSuccessful means every referencing operation failed.
	OutcomeNoneSuccessful
)

func (o OperationOutcome) String() string {
	switch o {
	case OutcomeSuccessful:
		return "successful"
	case OutcomePartlySuccessful:
		return "partly_successful"
	case OutcomeNoneSuccessful:
		return "none_successful"
	default:
		return "not_affected"
	}
}

// noOperationDescription marks a successful result recorded when an entity
// was already in the target state.
const noOperationDescription = "No operation"

// OperationResult is the immutable record of one carrier operation.
type OperationResult struct {
	Success     bool
	Description string
	Errors      []string
	ShipmentIDs []string
}

// NewSuccessResult records a successful operation over the given shipments.
func NewSuccessResult(description string, shipmentIDs ...string) OperationResult {
	return OperationResult{
		Success:     true,
		Description: description,
		ShipmentIDs: shipmentIDs,
	}
}

// NewFailureResult records a failed operation over the given shipments.
func NewFailureResult(description string, errs []string, shipmentIDs ...string) OperationResult {
	return OperationResult{
		Success:     false,
		Description: description,
		Errors:      errs,
		ShipmentIDs: shipmentIDs,
	}
}

// NoOperationResult records that the shipments were already in the target
// state. It counts as successful.
func NoOperationResult(shipmentIDs ...string) OperationResult {
	return NewSuccessResult(noOperationDescription, shipmentIDs...)
}

// IsNoOperation reports whether the result records an already-satisfied
// state rather than actual carrier work.
func (r OperationResult) IsNoOperation() bool {
	return r.Success && r.Description == noOperationDescription
}

// OperationResultSet accumulates the results of a batch carrier operation
// and classifies the aggregate outcome per shipment ID.
type OperationResultSet struct {
	results []OperationResult
}

// NewOperationResultSet creates a result set from the given results.
func NewOperationResultSet(results ...OperationResult) *OperationResultSet {
	set := &OperationResultSet{}
	for _, r := range results {
		set.Add(r)
	}
	return set
}

// Add appends an operation result.
func (s *OperationResultSet) Add(r OperationResult) {
	s.results = append(s.results, r)
}

// Results returns the accumulated results in insertion order.
func (s *OperationResultSet) Results() []OperationResult {
	out := make([]OperationResult, len(s.results))
	copy(out, s.results)
	return out
}

// ResultFor classifies the aggregate outcome for one shipment ID by
// counting successful versus total operations referencing it.
func (s *OperationResultSet) ResultFor(shipmentID string) OperationOutcome {
	var total, successful int
	for _, r := range s.results {
		for _, id := range r.ShipmentIDs {
			if id != shipmentID {
				continue
			}
			total++
			if r.Success {
				successful++
			}
		}
	}
	switch {
	case total == 0:
		return OutcomeNotAffected
	case successful == total:
		return OutcomeSuccessful
	case successful == 0:
		return OutcomeNoneSuccessful
	default:
		return OutcomePartlySuccessful
	}
}

// ProcessedAll reports whether every given shipment ID was referenced by at
// least one operation.
func (s *OperationResultSet) ProcessedAll(shipmentIDs ...string) bool {
	for _, id := range shipmentIDs {
		if s.ResultFor(id) == OutcomeNotAffected {
			return false
		}
	}
	return true
}

// Succeeded reports whether the shipment saw at least one successful
// operation (fully or partly successful aggregate).
func (s *OperationResultSet) Succeeded(shipmentID string) bool {
	outcome := s.ResultFor(shipmentID)
	return outcome == OutcomeSuccessful || outcome == OutcomePartlySuccessful
}

// Merge appends all results from another set.
func (s *OperationResultSet) Merge(other *OperationResultSet) {
	if other == nil {
		return
	}
	s.results = append(s.results, other.results...)
}
