package mercadopagowebhook

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Notification is the pointer the gateway pushes. Only data.id matters; the
// payment itself is fetched afterwards.
type Notification struct {
	ID       string
	Action   enums.WebhookAction
	Type     string
	DataID   string
	LiveMode bool
}

type notificationBody struct {
	ID       json.RawMessage `json:"id"`
	Action   string          `json:"action"`
	Type     string          `json:"type"`
	LiveMode bool            `json:"live_mode"`
	Data     struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

var errInvalidPayload = pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook payload")

// ParseNotification decodes a webhook body. data.id arrives as a string or a
// bare number depending on the notification version; both are accepted.
func ParseNotification(body []byte) (Notification, error) {
	var raw notificationBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return Notification{}, errInvalidPayload
	}
	dataID, ok := scalarID(raw.Data.ID)
	action := strings.TrimSpace(raw.Action)
	if !ok || dataID == "" || action == "" {
		return Notification{}, errInvalidPayload
	}
	id, _ := scalarID(raw.ID)
	return Notification{
		ID:       id,
		Action:   enums.WebhookAction(action),
		Type:     strings.TrimSpace(raw.Type),
		DataID:   dataID,
		LiveMode: raw.LiveMode,
	}, nil
}

func scalarID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}
