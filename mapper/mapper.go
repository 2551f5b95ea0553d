package mapper

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotImplemented is returned when a gateway does not offer a mapping
// operation (for example a bank with no history endpoint). It is a hard
// failure for the caller, never retried and never silently defaulted.
// Gateways wrap it with their own name.
var ErrNotImplemented = errors.New("operation not implemented by this gateway")

// Order carries the contextual data of the original request. The banks are
// inconsistent about echoing amounts, currencies and installment counts
// back, so mappers fall back to these values where the raw response is
// silent.
type Order struct {
	ID               string          `json:"id" validate:"required"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         Currency        `json:"currency" validate:"required,len=3"`
	InstallmentCount int             `json:"installmentCount" validate:"gte=0,lte=12"`
}

// ResponseMapper normalizes one gateway family's raw responses into
// canonical records. Implementations are stateless after construction and
// safe for concurrent use; every operation is a pure function of its inputs
// and the injected collaborators.
//
// Raw payloads arrive as RawMap, already decoded and signature-verified by
// the transport layer. Business failures (declined payment, order not
// found) are returned as data on the record, never as an error; the error
// return is reserved for ErrNotImplemented.
type ResponseMapper interface {
	// MapPaymentResponse maps a synchronous (non 3-D) payment result.
	MapPaymentResponse(raw RawMap, txType TxType, order Order) (*TransactionRecord, error)

	// Map3DPaymentData merges the 3-D Secure authentication callback with
	// the subsequent backend confirmation. paymentRaw may be nil or empty
	// when 3-D authentication failed and the backend call was never made.
	Map3DPaymentData(threeDRaw, paymentRaw RawMap, txType TxType, order Order) (*TransactionRecord, error)

	// Map3DPayResponseData maps a 3D-Pay callback, where the callback
	// itself is the final payment result.
	Map3DPayResponseData(raw RawMap, txType TxType, order Order) (*TransactionRecord, error)

	// Map3DHostResponseData maps a hosted-page 3-D callback.
	Map3DHostResponseData(raw RawMap, txType TxType, order Order) (*TransactionRecord, error)

	// MapStatusResponse maps a single-order status inquiry, expanding to
	// per-leg sub-records when the bank reports a recurring schedule.
	MapStatusResponse(raw RawMap) (*OrderStatusRecord, error)

	// MapRefundResponse maps a refund result.
	MapRefundResponse(raw RawMap) (*TransactionRecord, error)

	// MapCancelResponse maps a cancel (void) result.
	MapCancelResponse(raw RawMap) (*TransactionRecord, error)

	// MapOrderHistoryResponse maps all legs of one order, ascending by
	// transaction time.
	MapOrderHistoryResponse(raw RawMap) (*OrderStatusRecord, error)

	// MapHistoryResponse maps a date-range listing across many orders.
	MapHistoryResponse(raw RawMap) (*HistoryRecord, error)

	// Is3DAuthSuccess reports whether the given md status counts as a
	// successful 3-D authentication for this gateway. Exposed separately
	// so the caller can decide whether to attempt the backend
	// confirmation call at all.
	Is3DAuthSuccess(mdStatus string) bool

	// ExtractMDStatus pulls the gateway's md status field out of a raw
	// 3-D callback; empty string when absent.
	ExtractMDStatus(raw RawMap) string
}

// MapperFactory is a function type that creates a new ResponseMapper.
type MapperFactory func() ResponseMapper
