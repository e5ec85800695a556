package main

import (
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-orders/db"
	"github.com/xenking/kart-orders/internal/domain/customer"
	"github.com/xenking/kart-orders/internal/domain/product"
)

// readSeed returns the contents of file, or of the embedded fixture named
// fallback when file is empty. Files ending in .gz are decompressed.
func readSeed(file, fallback string) ([]byte, error) {
	var (
		r    io.ReadCloser
		name = file
		err  error
	)
	if file == "" {
		name = fallback
		r, err = db.Seed.Open(path.Join("seed", fallback))
	} else {
		r, err = os.Open(file)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = r.Close() }()

	if strings.HasSuffix(name, ".gz") {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer func() { _ = gz.Close() }()
		return io.ReadAll(gz)
	}
	return io.ReadAll(r)
}

func loadCustomers(file string) ([]customer.Customer, error) {
	data, err := readSeed(file, "customers.json")
	if err != nil {
		return nil, err
	}
	return decodeCustomers(data)
}

func loadProducts(file string) ([]product.Product, error) {
	data, err := readSeed(file, "products.json")
	if err != nil {
		return nil, err
	}
	return decodeProducts(data)
}

// decodeCustomers parses [{"id", "name", "email"}].
func decodeCustomers(data []byte) ([]customer.Customer, error) {
	var out []customer.Customer
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var c customer.Customer
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id":
				c.ID, err = d.Str()
			case "name":
				c.Name, err = d.Str()
			case "email":
				c.Email, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if c.ID == "" {
			return errors.Errorf("customer %d: id required", len(out))
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode customers")
	}
	return out, nil
}

// decodeProducts parses [{"id", "name", "price", "quantity"}]. Price may be a
// JSON number or a decimal string.
func decodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "price":
				p.Price, err = decodeDecimal(d)
			case "quantity":
				p.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		switch {
		case p.ID == "":
			return errors.Errorf("product %d: id required", len(out))
		case p.Price.IsNegative():
			return errors.Errorf("product %s: negative price", p.ID)
		case p.Quantity < 0:
			return errors.Errorf("product %s: negative quantity", p.ID)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return out, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}
