package extraction

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeNode(t *testing.T, raw string) Node {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var n Node
	require.NoError(t, dec.Decode(&n))
	return n
}

func TestLookup_NullSafe(t *testing.T) {
	node := decodeNode(t, `{"llmData": {"invoice": {"value": null}, "vendor": "oops"}}`)

	for _, p := range []string{
		"llmData.invoice.value.invoiceId.value",
		"llmData.vendor.value.vendorName.value",
		"llmData.customer.value",
		"missing",
	} {
		v, ok := Lookup(node, ParsePath(p))
		assert.False(t, ok, p)
		assert.Nil(t, v, p)
	}

	_, ok := Lookup(nil, ParsePath("llmData"))
	assert.False(t, ok)
}

func TestExtractor_FallsBackThroughCandidates(t *testing.T) {
	e := Default()

	t.Run("summary preferred over payment", func(t *testing.T) {
		node := decodeNode(t, `{"llmData": {
			"summary": {"value": {"invoiceTotal": {"value": "120.00"}}},
			"payment": {"value": {"totalAmount": {"value": 99}}}}}`)
		v, ok := e.Value(node, TotalAmount)
		require.True(t, ok)
		assert.Equal(t, "120.00", v)
	})

	t.Run("empty summary value falls back to payment", func(t *testing.T) {
		node := decodeNode(t, `{"llmData": {
			"summary": {"value": {"invoiceTotal": {"value": ""}, "currencySymbol": {"value": null}}},
			"payment": {"value": {"totalAmount": {"value": 99}, "currency": {"value": "USD"}}}}}`)
		v, ok := e.Value(node, TotalAmount)
		require.True(t, ok)
		assert.Equal(t, json.Number("99"), v)

		cur, ok := e.String(node, Currency)
		require.True(t, ok)
		assert.Equal(t, "USD", cur)
	})

	t.Run("numeric zero counts as absent", func(t *testing.T) {
		node := decodeNode(t, `{"llmData": {"summary": {"value": {"subTotal": {"value": 0}}}}}`)
		_, ok := e.Value(node, Subtotal)
		assert.False(t, ok)
	})

	t.Run("numbers render as text", func(t *testing.T) {
		node := decodeNode(t, `{"llmData": {"invoice": {"value": {"invoiceId": {"value": 10023}}}}}`)
		s, ok := e.String(node, InvoiceNumber)
		require.True(t, ok)
		assert.Equal(t, "10023", s)
	})
}

func TestExtractor_LineItemShapes(t *testing.T) {
	e := Default()

	t.Run("direct list", func(t *testing.T) {
		node := decodeNode(t, `{"llmData": {"lineItems": {"value": [
			{"description": {"value": "Paper"}}, {"description": {"value": "Toner"}}]}}}`)
		items := e.List(node, LineItems)
		require.Len(t, items, 2)
		d, _ := e.String(items[1], LineDescription)
		assert.Equal(t, "Toner", d)
	})

	t.Run("nested under items", func(t *testing.T) {
		node := decodeNode(t, `{"llmData": {"lineItems": {"value": {"items": {"value": [
			{"description": {"value": "Consulting"}, "totalPrice": {"value": "500"}}]}}}}}`)
		items := e.List(node, LineItems)
		require.Len(t, items, 1)
		total, ok := e.Value(items[0], LineTotal)
		require.True(t, ok)
		assert.Equal(t, "500", total)
	})

	t.Run("neither shape", func(t *testing.T) {
		node := decodeNode(t, `{"llmData": {"lineItems": {"value": {"other": 1}}}}`)
		assert.Empty(t, e.List(node, LineItems))
		assert.Empty(t, e.List(Node{}, LineItems))
	})

	t.Run("total preferred over totalPrice", func(t *testing.T) {
		item := decodeNode(t, `{"total": {"value": "10"}, "totalPrice": {"value": "12"}}`)
		v, ok := e.Value(item, LineTotal)
		require.True(t, ok)
		assert.Equal(t, "10", v)
	})

	t.Run("legacy category key", func(t *testing.T) {
		item := decodeNode(t, `{"Sachkonto": {"value": "4930"}}`)
		c, ok := e.String(item, LineCategory)
		require.True(t, ok)
		assert.Equal(t, "4930", c)
	})
}

func TestExtractor_WithAddsCandidateWithoutTouchingOriginal(t *testing.T) {
	base := Default()
	extended := base.With(InvoiceNumber, "llmData.header.value.number.value")
	node := decodeNode(t, `{"llmData": {"header": {"value": {"number": {"value": "H-1"}}}}}`)

	_, ok := base.String(node, InvoiceNumber)
	assert.False(t, ok)

	got, ok := extended.String(node, InvoiceNumber)
	require.True(t, ok)
	assert.Equal(t, "H-1", got)
	assert.Len(t, extended.Paths(InvoiceNumber), 2)
	assert.Len(t, base.Paths(InvoiceNumber), 1)
}

func TestExtractor_Object(t *testing.T) {
	e := Default()
	empty := decodeNode(t, `{"llmData": {"payment": {"value": {}}}}`)
	_, ok := e.Object(empty, PaymentData)
	assert.False(t, ok)

	full := decodeNode(t, `{"llmData": {"payment": {"value": {"paymentMethod": {"value": "card"}}}}}`)
	obj, ok := e.Object(full, PaymentData)
	require.True(t, ok)
	assert.Contains(t, obj, "paymentMethod")
}

func TestExtractor_Exists(t *testing.T) {
	e := Default()
	assert.True(t, e.Exists(decodeNode(t, `{"llmData": {"payment": {"value": {}}}}`), PaymentData))
	assert.True(t, e.Exists(decodeNode(t, `{"llmData": {"payment": {"value": {"paymentMethod": {"value": "card"}}}}}`), PaymentData))
	assert.False(t, e.Exists(decodeNode(t, `{"llmData": {"payment": {"value": null}}}`), PaymentData))
	assert.False(t, e.Exists(decodeNode(t, `{"llmData": {"payment": {"value": "card"}}}`), PaymentData))
	assert.False(t, e.Exists(decodeNode(t, `{"llmData": {}}`), PaymentData))
}

func TestRecordID_Shapes(t *testing.T) {
	var recs []RawRecord
	require.NoError(t, json.Unmarshal([]byte(`[
		{"_id": "abc"}, {"_id": 17}, {"_id": {"$oid": "65f0"}}, {}]`), &recs))
	require.Len(t, recs, 4)
	assert.Equal(t, RecordID("abc"), recs[0].ID)
	assert.Equal(t, RecordID("17"), recs[1].ID)
	assert.Equal(t, RecordID("65f0"), recs[2].ID)
	assert.Equal(t, RecordID(""), recs[3].ID)

	var bad RawRecord
	assert.Error(t, json.Unmarshal([]byte(`{"_id": [1]}`), &bad))
}
