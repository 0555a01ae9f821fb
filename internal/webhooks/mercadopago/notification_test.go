package mercadopagowebhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestParseNotificationAcceptsStringAndNumberIDs(t *testing.T) {
	n, err := ParseNotification([]byte(`{"id":12345,"action":"payment.updated","type":"payment","data":{"id":"987"}}`))
	require.NoError(t, err)
	assert.Equal(t, "987", n.DataID)
	assert.Equal(t, "12345", n.ID)
	assert.Equal(t, enums.WebhookActionPaymentUpdated, n.Action)

	n, err = ParseNotification([]byte(`{"action":"payment.created","data":{"id":987654321012}}`))
	require.NoError(t, err)
	assert.Equal(t, "987654321012", n.DataID)
}

func TestParseNotificationRejectsMalformed(t *testing.T) {
	bodies := []string{
		`not json`,
		`{}`,
		`{"action":"payment.updated"}`,
		`{"action":"payment.updated","data":{"id":null}}`,
		`{"action":"payment.updated","data":{"id":""}}`,
		`{"action":"","data":{"id":"1"}}`,
		`{"action":"payment.updated","data":{"id":{"nested":true}}}`,
	}
	for _, body := range bodies {
		_, err := ParseNotification([]byte(body))
		require.Error(t, err, body)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), body)
	}
}
