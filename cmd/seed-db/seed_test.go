package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProducts(t *testing.T) {
	products, err := decodeProducts([]byte(`[
		{"id": "1", "name": "Waffle", "price": "6.50", "quantity": 4, "category": "Waffle"},
		{"id": "2", "name": "Brownie", "price": 4.5, "quantity": 0}
	]`))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Waffle", products[0].Name)
	assert.True(t, decimal.RequireFromString("6.5").Equal(products[0].Price))
	assert.Equal(t, 4, products[0].Quantity)
	assert.True(t, decimal.RequireFromString("4.5").Equal(products[1].Price))
}

func TestDecodeProducts_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "not an array", data: `{}`},
		{name: "missing id", data: `[{"name": "x", "price": 1, "quantity": 1}]`, want: "product 0: id required"},
		{name: "negative price", data: `[{"id": "1", "price": "-1", "quantity": 1}]`, want: "product 1: negative price"},
		{name: "negative quantity", data: `[{"id": "1", "price": 1, "quantity": -2}]`, want: "product 1: negative quantity"},
		{name: "bad price", data: `[{"id": "1", "price": "abc", "quantity": 1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeProducts([]byte(tt.data))
			require.Error(t, err)
			if tt.want != "" {
				assert.ErrorContains(t, err, tt.want)
			}
		})
	}
}

func TestDecodeCustomers(t *testing.T) {
	customers, err := decodeCustomers([]byte(`[{"id": "C1", "name": "Ada", "email": "ada@example.com", "vip": true}]`))
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "C1", customers[0].ID)
	assert.Equal(t, "ada@example.com", customers[0].Email)

	_, err = decodeCustomers([]byte(`[{"name": "anonymous"}]`))
	require.ErrorContains(t, err, "customer 0: id required")
}

func TestLoadEmbeddedFixtures(t *testing.T) {
	customers, err := loadCustomers("")
	require.NoError(t, err)
	assert.NotEmpty(t, customers)

	products, err := loadProducts("")
	require.NoError(t, err)
	assert.NotEmpty(t, products)
}

func TestLoadProducts_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`[{"id": "P1", "name": "Cake", "price": "3.00", "quantity": 7}]`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "products.json.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	products, err := loadProducts(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 7, products[0].Quantity)
}

func TestLoadProducts_MissingFile(t *testing.T) {
	_, err := loadProducts(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
