package normalizer

// KeyResolver decides the natural keys used to deduplicate parties.
type KeyResolver interface {
	VendorKey(partyNumber, recordID string) string
	CustomerKey(partyNumber, recordID string) string
}

// SyntheticKeys uses the business party number when the extraction has one
// and otherwise derives a key from the record id. Derived keys are only as
// stable as the upstream record ids.
type SyntheticKeys struct{}

func (SyntheticKeys) VendorKey(partyNumber, recordID string) string {
	if partyNumber != "" {
		return partyNumber
	}
	return "vendor-" + recordID
}

func (SyntheticKeys) CustomerKey(partyNumber, recordID string) string {
	if partyNumber != "" {
		return partyNumber
	}
	return "customer-" + recordID
}
