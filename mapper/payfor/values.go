package payfor

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

// Values holds PayFor's enumeration tables.
type Values struct{}

var currencyCodes = map[string]mapper.Currency{
	"949": mapper.CurrencyTRY,
	"840": mapper.CurrencyUSD,
	"978": mapper.CurrencyEUR,
	"826": mapper.CurrencyGBP,
	"392": mapper.CurrencyJPY,
	"643": mapper.CurrencyRUB,
}

var txTypes = map[string]mapper.TxType{
	"Auth":     mapper.TxTypePay,
	"PreAuth":  mapper.TxTypePreAuth,
	"PostAuth": mapper.TxTypePostAuth,
	"Void":     mapper.TxTypeCancel,
	"Refund":   mapper.TxTypeRefund,
}

var secureTypes = map[string]mapper.PaymentModel{
	"NonSecure": mapper.ModelRegular,
	"3DModel":   mapper.Model3D,
	"3DPay":     mapper.Model3DPay,
	"3DHost":    mapper.Model3DHost,
}

func (Values) MapCurrency(raw string, _ mapper.TxType) mapper.Currency {
	return currencyCodes[raw]
}

func (Values) MapTxType(raw string) mapper.TxType {
	return txTypes[raw]
}

func (Values) MapSecureType(raw string, _ mapper.TxType) mapper.PaymentModel {
	return secureTypes[raw]
}

// Formatter parses PayFor's amount and date encodings.
type Formatter struct{}

// FormatAmount parses PayFor's plain decimal amount strings ("100.25").
func (Formatter) FormatAmount(raw string, _ mapper.TxType) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

// FormatDateTime parses PayFor's "dd.mm.yyyy HH:ii:ss" timestamps. Some
// reporting fields come back ISO formatted instead, so that layout is
// accepted as a fallback.
func (Formatter) FormatDateTime(raw string, _ mapper.TxType) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"02.01.2006 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// FormatInstallment parses the installment count; single payments ("0",
// "1", empty) come back nil.
func (Formatter) FormatInstallment(raw string, _ mapper.TxType) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 1 {
		return nil
	}
	return &n
}
