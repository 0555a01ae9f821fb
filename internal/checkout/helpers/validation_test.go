package helpers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func line(id string, price string, qty int) CartLine {
	return CartLine{ID: id, Name: "item " + id, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestValidateCartAcceptsValidLines(t *testing.T) {
	require.NoError(t, ValidateCart([]CartLine{line("a", "10", 1), line("b", "0", 3)}, 0))
}

func TestValidateCartRejectsEmpty(t *testing.T) {
	err := ValidateCart(nil, 10)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestValidateCartRejectsTooMany(t *testing.T) {
	err := ValidateCart([]CartLine{line("a", "1", 1), line("b", "1", 1)}, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestValidateCartReportsFields(t *testing.T) {
	err := ValidateCart([]CartLine{
		{ID: "", Name: "", Price: decimal.RequireFromString("-1"), Quantity: 0},
	}, 10)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	problems, ok := typed.Details().([]FieldError)
	require.True(t, ok)
	fields := make([]string, 0, len(problems))
	for _, p := range problems {
		fields = append(fields, p.Field)
	}
	assert.ElementsMatch(t, []string{"id", "name", "quantity", "price"}, fields)
}

func TestValidateCartRejectsSubCentPrices(t *testing.T) {
	require.NoError(t, ValidateCart([]CartLine{line("a", "10.500", 1)}, 10))

	err := ValidateCart([]CartLine{line("a", "10.10", 1), line("b", "0.333", 2)}, 10)
	require.Error(t, err)
	problems, ok := pkgerrors.As(err).Details().([]FieldError)
	require.True(t, ok)
	require.Len(t, problems, 1)
	assert.Equal(t, FieldError{Index: 1, Field: "price", Message: "must have at most 2 decimal places"}, problems[0])
}

func TestTotal(t *testing.T) {
	total := Total([]CartLine{line("a", "10.10", 3), line("b", "0.33", 1)})
	assert.Equal(t, "30.63", total.StringFixed(2))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Nil(t, NormalizeEmail("", "  "))
	got := NormalizeEmail(" ", " Buyer@Example.COM ")
	require.NotNil(t, got)
	assert.Equal(t, "buyer@example.com", *got)
}
