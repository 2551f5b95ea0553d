package mapper

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValueMapper translates a gateway's raw enumeration codes into canonical
// values. Each gateway package ships its own tables as the default wiring;
// implementations must be side-effect free and safe for concurrent use.
type ValueMapper interface {
	// MapCurrency translates a raw currency code ("949", "TL", ...);
	// empty when unknown.
	MapCurrency(raw string, txType TxType) Currency

	// MapTxType translates a raw transaction-type code ("Auth", "S", ...);
	// empty when unknown.
	MapTxType(raw string) TxType

	// MapSecureType translates a raw secure-type code into the payment
	// model it implies; empty when unknown.
	MapSecureType(raw string, txType TxType) PaymentModel
}

// ValueFormatter parses a gateway's raw amount, date and installment
// encodings. Formatting rules can vary per transaction type, which is why
// every method receives one. Malformed input yields nil, never an error:
// the formatter boundary absorbs the banks' format quirks.
type ValueFormatter interface {
	FormatAmount(raw string, txType TxType) *decimal.Decimal
	FormatDateTime(raw string, txType TxType) *time.Time
	FormatInstallment(raw string, txType TxType) *int
}

// Logger receives mapping diagnostics such as unrecognized status codes.
// Implementations must never panic; a failure to log must not abort
// mapping. infra/logger provides a zap-backed implementation.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
}

// NopLogger discards all diagnostics. It is the default logger of every
// gateway mapper.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]any) {}
func (NopLogger) Warn(string, map[string]any)  {}
