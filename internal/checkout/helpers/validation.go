package helpers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// DefaultMaxItems bounds a cart when no limit is configured.
const DefaultMaxItems = 100

// CartLine is the subset of a cart line the validator inspects.
type CartLine struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// FieldError names the offending line and field.
type FieldError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateCart checks the cart posted by the browser. Every problem is
// reported at once in the error details.
func ValidateCart(lines []CartLine, maxItems int) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if len(lines) > maxItems {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "cart exceeds %d items", maxItems)
	}

	var problems []FieldError
	for i, line := range lines {
		if strings.TrimSpace(line.ID) == "" {
			problems = append(problems, FieldError{Index: i, Field: "id", Message: "required"})
		}
		if strings.TrimSpace(line.Name) == "" {
			problems = append(problems, FieldError{Index: i, Field: "name", Message: "required"})
		}
		if line.Quantity < 1 {
			problems = append(problems, FieldError{Index: i, Field: "quantity", Message: "must be at least 1"})
		}
		if line.Price.IsNegative() {
			problems = append(problems, FieldError{Index: i, Field: "price", Message: "must not be negative"})
		} else if !line.Price.Equal(line.Price.Round(2)) {
			problems = append(problems, FieldError{Index: i, Field: "price", Message: "must have at most 2 decimal places"})
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart has %d invalid field(s)", len(problems))).
			WithDetails(problems)
	}
	return nil
}

// Total sums price × quantity. Validated prices carry at most two decimals,
// so rounding to cents never changes the sum.
func Total(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

// NormalizeEmail trims and lowercases; blank input yields nil.
func NormalizeEmail(values ...string) *string {
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			return &v
		}
	}
	return nil
}
