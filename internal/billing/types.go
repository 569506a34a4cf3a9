package billing

import "time"

// Amount represents a monetary value in the YooKassa wire format.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Confirmation carries the redirect settings of a payment.
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// createPaymentRequest is the POST /payments body.
type createPaymentRequest struct {
	Amount       Amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation Confirmation      `json:"confirmation"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// paymentResponse is the payment object returned by the API.
type paymentResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Description  string            `json:"description"`
	CreatedAt    time.Time         `json:"created_at"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Payment statuses returned by YooKassa.
const (
	paymentStatusPending   = "pending"
	paymentStatusSucceeded = "succeeded"
	paymentStatusCanceled  = "canceled"
)

// Bill describes an issued payment request.
type Bill struct {
	ID              string
	ConfirmationURL string
	TariffID        int64
	TariffDays      int
	CreatedAt       time.Time
}
