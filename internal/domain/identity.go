package domain

import (
	"fmt"
	"strconv"
)

// ProductID and CustomerID are distinct integer identities. They are only
// constructed through the Parse functions below, so a barcode string can
// never slip into an identity field: "7891234567" parses, "ABC123" and
// "milk 2l" do not.

type ProductID int64

type CustomerID int64

func (id ProductID) Valid() bool  { return id > 0 }
func (id CustomerID) Valid() bool { return id > 0 }

func (id ProductID) String() string  { return strconv.FormatInt(int64(id), 10) }
func (id CustomerID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseProductID accepts only a string of ASCII digits encoding a positive
// integer. Anything else, barcodes with letters included, is rejected.
func ParseProductID(raw string) (ProductID, error) {
	n, err := parseIdentity(raw)
	if err != nil {
		return 0, fmt.Errorf("product id %q: %w", raw, ErrInvalidIdentity)
	}
	return ProductID(n), nil
}

func ParseCustomerID(raw string) (CustomerID, error) {
	n, err := parseIdentity(raw)
	if err != nil {
		return 0, fmt.Errorf("customer id %q: %w", raw, ErrInvalidIdentity)
	}
	return CustomerID(n), nil
}

func parseIdentity(raw string) (int64, error) {
	if raw == "" {
		return 0, ErrInvalidIdentity
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, ErrInvalidIdentity
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidIdentity
	}
	return n, nil
}
