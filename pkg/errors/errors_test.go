package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusBadGateway, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
			assert.NotEmpty(t, meta.PublicMessage)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing items")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing items", base.Message())
	assert.Nil(t, base.Details())

	base.WithDetails(map[string]any{"field": "items"})
	assert.NotNil(t, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "create preference")
	assert.True(t, stdErrors.Is(wrapped, cause))
	assert.Equal(t, CodeDependency, wrapped.Code())
	assert.Contains(t, wrapped.Error(), "boom")

	formatted := Newf(CodeNotFound, "order %s not found", "abc")
	assert.Equal(t, "order abc not found", formatted.Message())
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	got := As(err)
	require.NotNil(t, got)
	assert.Equal(t, CodeForbidden, got.Code())
	assert.True(t, IsCode(err, CodeForbidden))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.Nil(t, As(nil))
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users", Message: "duplicate key"}
	err := Wrap(CodeConflict, pgErr, "insert user")

	d := Dump(err)
	assert.Equal(t, CodeConflict, d.Code)
	assert.Equal(t, "23505", d.PGCode)
	assert.Equal(t, "users_email_key", d.PGConstraint)
	assert.Equal(t, "users", d.PGTable)
	assert.Len(t, d.Chain, 2)
}

func TestDumpFieldsOmitEmpty(t *testing.T) {
	fields := Dump(New(CodeValidation, "bad")).Fields()
	assert.Equal(t, "VALIDATION_ERROR", fields["error_code"])
	assert.NotContains(t, fields, "pg_code")
	assert.NotContains(t, fields, "error_chain")

	pgFields := Dump(Wrap(CodeConflict, &pgconn.PgError{Code: "23505"}, "insert")).Fields()
	assert.Equal(t, "23505", pgFields["pg_code"])
}
