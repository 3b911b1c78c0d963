package domain

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest is captured when the customer accepts the purchase.
// Items and Total are frozen at that point; Phone is set only by the assisted flow.
type PaymentRequest struct {
	ID    uuid.UUID
	Items []Product
	Total decimal.Decimal
	Phone string
}

func NewPaymentRequest(items []Product, total decimal.Decimal) *PaymentRequest {
	frozen := make([]Product, len(items))
	copy(frozen, items)
	return &PaymentRequest{
		ID:    uuid.New(),
		Items: frozen,
		Total: total,
	}
}

func (r *PaymentRequest) UIDs() []string {
	uids := make([]string, 0, len(r.Items))
	for _, p := range r.Items {
		uids = append(uids, p.UID)
	}
	return uids
}

// QRPayload is the document the mobile app reads from the payment QR code.
type QRPayload struct {
	UID   []string `json:"uid"`
	Total string   `json:"total"`
}

func NewQRPayload(r *PaymentRequest) QRPayload {
	return QRPayload{
		UID:   r.UIDs(),
		Total: FormatPrice(r.Total),
	}
}

func (p QRPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// FormatPrice renders an amount the way the kiosk displays it, e.g. "$3.99".
func FormatPrice(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

type TransactionProduct struct {
	ProductUID string `json:"productUid"`
}

// Transaction is the body of POST /api/transactions.
type Transaction struct {
	UserCustomerID string               `json:"userCustomerId"`
	ProductsList   []TransactionProduct `json:"productsList"`
	PaymentMethod  string               `json:"paymentMethod"`
	PaymentPhone   string               `json:"paymentPhone"`
	TotalPrice     json.Number          `json:"totalPrice"`
}

func NewTransaction(customerID, method string, r *PaymentRequest) Transaction {
	products := make([]TransactionProduct, 0, len(r.Items))
	for _, p := range r.Items {
		products = append(products, TransactionProduct{ProductUID: p.CatalogID})
	}
	return Transaction{
		UserCustomerID: customerID,
		ProductsList:   products,
		PaymentMethod:  method,
		PaymentPhone:   r.Phone,
		TotalPrice:     json.Number(r.Total.StringFixed(2)),
	}
}
