package extraction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field names a canonical value that can be found in an extraction tree.
type Field string

const (
	LLMData Field = "llmData"

	InvoiceNumber Field = "invoiceNumber"
	InvoiceDate   Field = "invoiceDate"
	DueDate       Field = "dueDate"

	VendorName        Field = "vendorName"
	VendorPartyNumber Field = "vendorPartyNumber"
	VendorAddress     Field = "vendorAddress"
	VendorTaxID       Field = "vendorTaxId"
	VendorCategory    Field = "vendorCategory"

	CustomerName        Field = "customerName"
	CustomerPartyNumber Field = "customerPartyNumber"
	CustomerAddress     Field = "customerAddress"

	Subtotal      Field = "subtotal"
	Tax           Field = "tax"
	TotalAmount   Field = "totalAmount"
	Currency      Field = "currency"
	PaymentData   Field = "payment"
	PaymentMethod Field = "paymentMethod"
	PaymentDate   Field = "paymentDate"
	PaymentStatus Field = "paymentStatus"

	LineItems Field = "lineItems"

	// Fields below are resolved against a single line item node.
	LineDescription Field = "lineDescription"
	LineQuantity    Field = "lineQuantity"
	LineUnitPrice   Field = "lineUnitPrice"
	LineTotal       Field = "lineTotal"
	LineCategory    Field = "lineCategory"
)

// DefaultPaths maps each field to its candidate paths, most preferred first.
// Paths are dotted keys relative to the record's extractedData node (or to a
// line item node for the Line* fields).
var DefaultPaths = map[Field][]string{
	LLMData: {"llmData"},

	InvoiceNumber: {"llmData.invoice.value.invoiceId.value"},
	InvoiceDate:   {"llmData.invoice.value.invoiceDate.value"},
	DueDate:       {"llmData.invoice.value.dueDate.value"},

	VendorName:        {"llmData.vendor.value.vendorName.value"},
	VendorPartyNumber: {"llmData.vendor.value.vendorPartyNumber.value"},
	VendorAddress:     {"llmData.vendor.value.vendorAddress.value"},
	VendorTaxID:       {"llmData.vendor.value.vendorTaxId.value"},
	VendorCategory:    {"llmData.vendor.value.vendorCategory.value"},

	CustomerName:        {"llmData.customer.value.customerName.value"},
	CustomerPartyNumber: {"llmData.customer.value.customerPartyNumber.value"},
	CustomerAddress:     {"llmData.customer.value.customerAddress.value"},

	Subtotal:      {"llmData.summary.value.subTotal.value", "llmData.payment.value.subtotal.value"},
	Tax:           {"llmData.summary.value.totalTax.value", "llmData.payment.value.tax.value"},
	TotalAmount:   {"llmData.summary.value.invoiceTotal.value", "llmData.payment.value.totalAmount.value"},
	Currency:      {"llmData.summary.value.currencySymbol.value", "llmData.payment.value.currency.value"},
	PaymentData:   {"llmData.payment.value"},
	PaymentMethod: {"llmData.payment.value.paymentMethod.value"},
	PaymentDate:   {"llmData.payment.value.paymentDate.value"},
	PaymentStatus: {"llmData.payment.value.paymentStatus.value"},

	LineItems: {"llmData.lineItems.value", "llmData.lineItems.value.items.value"},

	LineDescription: {"description.value"},
	LineQuantity:    {"quantity.value"},
	LineUnitPrice:   {"unitPrice.value"},
	LineTotal:       {"total.value", "totalPrice.value"},
	LineCategory:    {"category.value", "Sachkonto.value"},
}

// Path is a sequence of object keys.
type Path []string

// ParsePath splits a dotted path.
func ParsePath(dotted string) Path {
	return Path(strings.Split(dotted, "."))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Lookup walks node along p. A missing key or a non-object intermediate
// value at any depth reports absent.
func Lookup(node Node, p Path) (any, bool) {
	var cur any = node
	for _, key := range p {
		m, ok := cur.(map[string]any)
		if !ok || m == nil {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Extractor resolves canonical fields by probing candidate paths in order.
type Extractor struct {
	paths map[Field][]Path
}

// NewExtractor builds an extractor from dotted candidate paths.
func NewExtractor(paths map[Field][]string) *Extractor {
	e := &Extractor{paths: make(map[Field][]Path, len(paths))}
	for field, candidates := range paths {
		for _, c := range candidates {
			e.paths[field] = append(e.paths[field], ParsePath(c))
		}
	}
	return e
}

// Default returns an extractor over DefaultPaths.
func Default() *Extractor {
	return NewExtractor(DefaultPaths)
}

// With returns a copy of e that also tries the given paths for field,
// after the ones already registered.
func (e *Extractor) With(field Field, dotted ...string) *Extractor {
	next := &Extractor{paths: make(map[Field][]Path, len(e.paths))}
	for f, ps := range e.paths {
		next.paths[f] = append([]Path(nil), ps...)
	}
	for _, d := range dotted {
		next.paths[field] = append(next.paths[field], ParsePath(d))
	}
	return next
}

// Paths returns the candidate paths registered for field.
func (e *Extractor) Paths(field Field) []Path {
	return e.paths[field]
}

// Value returns the first present value for field. Empty strings, numeric
// zero and empty containers count as absent.
func (e *Extractor) Value(node Node, field Field) (any, bool) {
	for _, p := range e.paths[field] {
		if v, ok := Lookup(node, p); ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

// String returns the first present value for field rendered as trimmed text.
func (e *Extractor) String(node Node, field Field) (string, bool) {
	v, ok := e.Value(node, field)
	if !ok {
		return "", false
	}
	s := strings.TrimSpace(toString(v))
	return s, s != ""
}

// Object returns the first non-empty object found for field.
func (e *Extractor) Object(node Node, field Field) (Node, bool) {
	for _, p := range e.paths[field] {
		if v, ok := Lookup(node, p); ok {
			if m, isMap := v.(map[string]any); isMap && len(m) > 0 {
				return m, true
			}
		}
	}
	return nil, false
}

// Exists reports whether any candidate for field holds an object, even an
// empty one.
func (e *Extractor) Exists(node Node, field Field) bool {
	for _, p := range e.paths[field] {
		if v, ok := Lookup(node, p); ok {
			if _, isMap := v.(map[string]any); isMap {
				return true
			}
		}
	}
	return false
}

// List returns the object elements of the first candidate that holds an
// array. When no candidate holds one the result is empty.
func (e *Extractor) List(node Node, field Field) []Node {
	for _, p := range e.paths[field] {
		v, ok := Lookup(node, p)
		if !ok {
			continue
		}
		items, isList := v.([]any)
		if !isList {
			continue
		}
		out := make([]Node, 0, len(items))
		for _, it := range items {
			if m, isMap := it.(map[string]any); isMap {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case bool:
		return t
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
