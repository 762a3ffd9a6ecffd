package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ID is an upstream identifier. The backend emits integer primary keys while
// the form posts them back as strings, so both JSON shapes decode into ID.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid identifier %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

func (id ID) IsEmpty() bool { return id == "" }

type Product struct {
	ID    ID              `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Customer struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Catalog is loaded once per form session and never refreshed.
type Catalog struct {
	Products  []Product  `json:"products"`
	Customers []Customer `json:"customers"`
}

// Option is one entry of a selector. The placeholder option has an empty value.
type Option struct {
	Value ID     `json:"value"`
	Label string `json:"label"`
}

const PlaceholderLabel = "Seleccionar"

func (c Catalog) ProductOptions() []Option {
	opts := make([]Option, 0, len(c.Products)+1)
	opts = append(opts, Option{Value: "", Label: PlaceholderLabel})
	for _, p := range c.Products {
		opts = append(opts, Option{Value: p.ID, Label: p.Name})
	}
	return opts
}

func (c Catalog) CustomerOptions() []Option {
	opts := make([]Option, 0, len(c.Customers)+1)
	opts = append(opts, Option{Value: "", Label: PlaceholderLabel})
	for _, cu := range c.Customers {
		opts = append(opts, Option{Value: cu.ID, Label: cu.Name})
	}
	return opts
}

func (c Catalog) HasCustomer(id ID) bool {
	for _, cu := range c.Customers {
		if cu.ID == id {
			return true
		}
	}
	return false
}

// FormatQuantity renders a quantity the way the form field posts it.
func FormatQuantity(q int) string {
	return strconv.Itoa(q)
}
