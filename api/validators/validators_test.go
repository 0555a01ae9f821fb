package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type cartBody struct {
	Items []struct {
		ID       string `json:"id" validate:"required"`
		Quantity int    `json:"quantity" validate:"min=1"`
	} `json:"items" validate:"required,min=1,dive"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
	var body loginBody
	require.NoError(t, DecodeJSONBody(httptest.NewRecorder(), req, &body))
	assert.Equal(t, "a@b.co", body.Email)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"x","admin":true}`))
	var body loginBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"id":"p1","quantity":0}]}`))
	var body cartBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &body)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at least 1", details["items[0].quantity"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&bad=x", nil)
	got, err := ParseQueryInt(req, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, got)

	_, err = ParseQueryInt(req, "limit", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(req, "bad", 25, 1, 100)
	assert.Error(t, err)
}

func TestParseQueryBoolAndUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?in_stock=true", nil)
	v, err := ParseQueryBool(req, "in_stock")
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseUUID("nope", "order_id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "ñañ", SanitizeString("ñañito", 3))
	assert.Equal(t, "x", SanitizeString(" x ", 0))
}
