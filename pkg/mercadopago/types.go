package mercadopago

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PreferenceItem is one line of a hosted checkout preference.
type PreferenceItem struct {
	ID         string
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	CurrencyID string
	PictureURL string
}

// BackURLs are the browser redirect targets after the hosted payment page.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest describes a hosted checkout to create.
type PreferenceRequest struct {
	Items             []PreferenceItem
	ExternalReference string
	BackURLs          BackURLs
	PayerEmail        string
	NotificationURL   string
	Installments      int
	IdempotencyKey    string
}

// Preference is the gateway's answer to a preference creation.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Payment is the subset of the gateway payment resource the storefront reads.
// Raw holds the full response body as received.
type Payment struct {
	ID                json.Number         `json:"id"`
	Status            enums.PaymentStatus `json:"status"`
	StatusDetail      string              `json:"status_detail"`
	ExternalReference string              `json:"external_reference"`
	TransactionAmount decimal.Decimal     `json:"transaction_amount"`
	CurrencyID        string              `json:"currency_id"`
	DateLastUpdated   *time.Time          `json:"date_last_updated"`
	Raw               json.RawMessage     `json:"-"`
}

// HasExternalReference reports whether the payment was tagged with an order id.
func (p *Payment) HasExternalReference() bool {
	return p != nil && strings.TrimSpace(p.ExternalReference) != ""
}

type preferenceItemBody struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id,omitempty"`
	PictureURL string  `json:"picture_url,omitempty"`
}

type preferenceBody struct {
	Items             []preferenceItemBody `json:"items"`
	ExternalReference string               `json:"external_reference"`
	BackURLs          BackURLs             `json:"back_urls"`
	AutoReturn        string               `json:"auto_return,omitempty"`
	NotificationURL   string               `json:"notification_url,omitempty"`
	Payer             *payerBody           `json:"payer,omitempty"`
	PaymentMethods    *paymentMethodsBody  `json:"payment_methods,omitempty"`
}

type payerBody struct {
	Email string `json:"email"`
}

type paymentMethodsBody struct {
	Installments int `json:"installments"`
}

type searchResult struct {
	Results []json.RawMessage `json:"results"`
}

// apiError is the gateway's error envelope.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func (r PreferenceRequest) body() preferenceBody {
	items := make([]preferenceItemBody, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, preferenceItemBody{
			ID:         item.ID,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.InexactFloat64(),
			CurrencyID: item.CurrencyID,
			PictureURL: item.PictureURL,
		})
	}
	body := preferenceBody{
		Items:             items,
		ExternalReference: r.ExternalReference,
		BackURLs:          r.BackURLs,
		NotificationURL:   r.NotificationURL,
	}
	if r.BackURLs.Success != "" {
		body.AutoReturn = "approved"
	}
	if r.PayerEmail != "" {
		body.Payer = &payerBody{Email: r.PayerEmail}
	}
	if r.Installments > 0 {
		body.PaymentMethods = &paymentMethodsBody{Installments: r.Installments}
	}
	return body
}
