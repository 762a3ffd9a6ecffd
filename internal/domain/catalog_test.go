package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshalAcceptsNumbersAndStrings(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[7, "abc", null, 12]`), &ids))
	assert.Equal(t, []ID{"7", "abc", "", "12"}, ids)
}

func TestIDUnmarshalRejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
}

func TestProductDecodesDecimalPrice(t *testing.T) {
	var products []Product
	body := `[{"id":1,"name":"Arepa","price":"12.50"},{"id":2,"name":"Empanada","price":3.1}]`
	require.NoError(t, json.Unmarshal([]byte(body), &products))

	require.Len(t, products, 2)
	assert.Equal(t, ID("1"), products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, products[1].Price.Equal(decimal.RequireFromString("3.1")))
}

func TestCatalogOptionsStartWithPlaceholder(t *testing.T) {
	c := Catalog{
		Products:  []Product{{ID: "1", Name: "Arepa"}, {ID: "2", Name: "Empanada"}},
		Customers: []Customer{{ID: "9", Name: "Ana"}},
	}

	products := c.ProductOptions()
	require.Len(t, products, 3)
	assert.Equal(t, Option{Value: "", Label: PlaceholderLabel}, products[0])
	assert.Equal(t, Option{Value: "2", Label: "Empanada"}, products[2])

	customers := c.CustomerOptions()
	require.Len(t, customers, 2)
	assert.Equal(t, ID("9"), customers[1].Value)
	assert.True(t, c.HasCustomer("9"))
	assert.False(t, c.HasCustomer("1"))
}

func TestEmptyCatalogStillHasPlaceholder(t *testing.T) {
	assert.Equal(t, []Option{{Value: "", Label: PlaceholderLabel}}, Catalog{}.ProductOptions())
}

func TestDraftJSONShape(t *testing.T) {
	draft := OrderDraft{
		Customer: "C1",
		Items: []DraftItem{
			{Product: "productA", Quantity: FormatQuantity(2)},
			{Product: "productB", Quantity: FormatQuantity(5)},
		},
	}
	out, err := json.Marshal(draft)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"customer":"C1","items":[{"product":"productA","quantity":"2"},{"product":"productB","quantity":"5"}]}`,
		string(out))
}

func TestRowDisplayTotal(t *testing.T) {
	assert.Equal(t, "-", Row{Slot: 1, Quantity: 1}.DisplayTotal())
	total := decimal.RequireFromString("25")
	assert.Equal(t, "25", Row{Slot: 1, Quantity: 2, Total: &total}.DisplayTotal())
}
