package mapper

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMap is the loosely typed document a gateway response arrives as.
// Transport decodes the bank's XML/JSON/form body into this shape before the
// mapper ever sees it. It never travels past the mapping boundary except
// verbatim inside the All / ThreeDAll audit fields.
type RawMap = map[string]any

// Status is the canonical approved/declined outcome of an operation.
type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// StatusDetail classifies why an operation ended the way it did.
// A nil *StatusDetail on a declined record means the bank's code was not
// classifiable from the available data, never "unknown success".
type StatusDetail string

const (
	DetailApproved            StatusDetail = "approved"
	DetailGeneralError        StatusDetail = "general_error"
	DetailReject              StatusDetail = "reject"
	DetailTryAgain            StatusDetail = "try_again"
	DetailRequestRejected     StatusDetail = "request_rejected"
	DetailTransactionNotFound StatusDetail = "transaction_not_found"
	DetailInvalidTransaction  StatusDetail = "invalid_transaction"
)

// TxType is the canonical, gateway-agnostic transaction type.
type TxType string

const (
	TxTypePay          TxType = "pay"
	TxTypePreAuth      TxType = "pre"
	TxTypePostAuth     TxType = "post"
	TxTypeCancel       TxType = "cancel"
	TxTypeRefund       TxType = "refund"
	TxTypeStatus       TxType = "status"
	TxTypeOrderHistory TxType = "order_history"
	TxTypeHistory      TxType = "history"
)

// PaymentModel identifies which payment flow produced a record. For 3-D
// flows it is determined by which entry point was called, not by the
// outcome, so it is always set even on failure.
type PaymentModel string

const (
	ModelRegular PaymentModel = "regular"
	Model3D      PaymentModel = "3d"
	Model3DPay   PaymentModel = "3d_pay"
	Model3DHost  PaymentModel = "3d_host"
)

// TransactionSecurity describes the 3-D Secure authentication outcome,
// independent of whether the final payment succeeded.
type TransactionSecurity string

const (
	SecurityFull        TransactionSecurity = "Full 3D Secure"
	SecurityHalf        TransactionSecurity = "Half 3D Secure"
	SecurityMPIFallback TransactionSecurity = "MPI fallback"
	SecurityNone        TransactionSecurity = "None"
)

// OrderStatus is the canonical order lifecycle state reported by status and
// history inquiries. Gateways whose own enumeration cannot be classified
// pass their raw code through unchanged.
type OrderStatus string

const (
	OrderPaymentPending   OrderStatus = "PAYMENT_PENDING"
	OrderPaymentCompleted OrderStatus = "PAYMENT_COMPLETED"
	OrderPreAuthCompleted OrderStatus = "PRE_AUTH_COMPLETED"
	OrderCanceled         OrderStatus = "CANCELED"
	OrderError            OrderStatus = "ERROR"
)

// Currency is the canonical ISO 4217 alpha code.
type Currency string

const (
	CurrencyTRY Currency = "TRY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyRUB Currency = "RUB"
)

// TransactionRecord is the unified result of a single gateway operation.
// Nullable fields use pointers; nil always means "the bank did not supply a
// usable value", it is never an error condition on its own.
type TransactionRecord struct {
	OrderID       string `json:"order_id,omitempty"`
	GroupID       string `json:"group_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	RecurringID   string `json:"recurring_id,omitempty"`

	TransactionType     TxType               `json:"transaction_type,omitempty"`
	PaymentModel        PaymentModel         `json:"payment_model,omitempty"`
	TransactionSecurity *TransactionSecurity `json:"transaction_security,omitempty"`

	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      Currency         `json:"currency,omitempty"`
	FirstAmount   *decimal.Decimal `json:"first_amount,omitempty"`
	CaptureAmount *decimal.Decimal `json:"capture_amount,omitempty"`

	TransactionTime *time.Time `json:"transaction_time,omitempty"`
	CaptureTime     *time.Time `json:"capture_time,omitempty"`
	CancelTime      *time.Time `json:"cancel_time,omitempty"`
	RefundTime      *time.Time `json:"refund_time,omitempty"`

	Status         Status        `json:"status"`
	StatusDetail   *StatusDetail `json:"status_detail,omitempty"`
	ProcReturnCode *string       `json:"proc_return_code,omitempty"`
	ErrorCode      *string       `json:"error_code,omitempty"`
	ErrorMessage   *string       `json:"error_message,omitempty"`

	AuthCode         *string `json:"auth_code,omitempty"`
	RefRetNum        *string `json:"ref_ret_num,omitempty"`
	MaskedNumber     *string `json:"masked_number,omitempty"`
	BatchNum         *string `json:"batch_num,omitempty"`
	InstallmentCount *int    `json:"installment_count,omitempty"`

	MdStatus       *string `json:"md_status,omitempty"`
	MdErrorMessage *string `json:"md_error_message,omitempty"`
	Eci            *string `json:"eci,omitempty"`
	Cavv           *string `json:"cavv,omitempty"`
	TxStatus       string  `json:"tx_status,omitempty"`

	// OrderStatus, Capture and RecurringOrder are populated on status,
	// order-history and history results, including the per-leg sub-records.
	OrderStatus    OrderStatus `json:"order_status,omitempty"`
	Capture        *bool       `json:"capture,omitempty"`
	RecurringOrder *int        `json:"recurring_order,omitempty"`

	// All holds the raw response verbatim; ThreeDAll the raw 3-D callback
	// payload. They are the audit escape hatch for bank fields that never
	// got promoted to a canonical one.
	All       RawMap `json:"all,omitempty"`
	ThreeDAll RawMap `json:"3d_all,omitempty"`
}

// OrderStatusRecord is the result of a status or order-history inquiry: one
// canonical record for the order itself, plus the per-leg sub-records when
// the response embeds a history of sub-transactions.
type OrderStatusRecord struct {
	TransactionRecord

	Transactions []TransactionRecord `json:"transactions,omitempty"`
}

// HistoryRecord is the result of a bulk (date-range) history listing.
// TransCount counts the mapped legs, not the raw entries: unparsable raw
// entries are skipped, logged, and excluded from the count.
type HistoryRecord struct {
	Transactions []TransactionRecord `json:"transactions"`
	TransCount   int                 `json:"trans_count"`
}
