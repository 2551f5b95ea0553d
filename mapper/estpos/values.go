package estpos

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

// Values holds the EST family's enumeration tables.
type Values struct{}

var currencyCodes = map[string]mapper.Currency{
	"949": mapper.CurrencyTRY,
	"840": mapper.CurrencyUSD,
	"978": mapper.CurrencyEUR,
	"826": mapper.CurrencyGBP,
	"392": mapper.CurrencyJPY,
	"643": mapper.CurrencyRUB,
}

// txTypes covers both the request vocabulary (Auth, PreAuth, ...) and the
// single-letter charge type codes the reporting endpoints use.
var txTypes = map[string]mapper.TxType{
	"Auth":     mapper.TxTypePay,
	"PreAuth":  mapper.TxTypePreAuth,
	"PostAuth": mapper.TxTypePostAuth,
	"Void":     mapper.TxTypeCancel,
	"Credit":   mapper.TxTypeRefund,
	"S":        mapper.TxTypePay,
	"C":        mapper.TxTypeRefund,
}

var secureTypes = map[string]mapper.PaymentModel{
	"regular": mapper.ModelRegular,
	"3d":      mapper.Model3D,
	"3d_pay":  mapper.Model3DPay,
	"3d_host": mapper.Model3DHost,
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

// Formatter parses the EST family's amount and date encodings.
type Formatter struct{}

// FormatAmount parses EST amounts. The reporting endpoints pad amounts with
// spaces and occasionally switch to a comma decimal separator.
func (Formatter) FormatAmount(raw string, _ mapper.TxType) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

// FormatDateTime parses the three date shapes EST mixes freely: the payment
// TRXDATE ("20240301 10:15:30"), the reporting timestamps with milliseconds
// ("2024-03-01 10:15:30.287") and plain ISO.
func (Formatter) FormatDateTime(raw string, _ mapper.TxType) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	layouts := []string{
		"20060102 15:04:05",
		"2006-01-02 15:04:05.999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// FormatInstallment parses the installment count; "0", "1" and empty mean a
// single payment.
func (Formatter) FormatInstallment(raw string, _ mapper.TxType) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 1 {
		return nil
	}
	return &n
}
