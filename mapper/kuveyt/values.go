package kuveyt

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

// Values holds KuveytTürk's enumeration tables.
type Values struct{}

var currencyCodes = map[string]mapper.Currency{
	"0949": mapper.CurrencyTRY,
	"949":  mapper.CurrencyTRY,
	"0840": mapper.CurrencyUSD,
	"840":  mapper.CurrencyUSD,
	"0978": mapper.CurrencyEUR,
	"978":  mapper.CurrencyEUR,
	"0826": mapper.CurrencyGBP,
	"826":  mapper.CurrencyGBP,
}

var txTypes = map[string]mapper.TxType{
	"sale":              mapper.TxTypePay,
	"preauthorization":  mapper.TxTypePreAuth,
	"postauthorization": mapper.TxTypePostAuth,
	"salereversal":      mapper.TxTypeCancel,
	"drawback":          mapper.TxTypeRefund,
	"partialdrawback":   mapper.TxTypeRefund,
}

var secureTypes = map[string]mapper.PaymentModel{
	"0": mapper.ModelRegular,
	"3": mapper.Model3D,
}

func (Values) MapCurrency(raw string, _ mapper.TxType) mapper.Currency {
	return currencyCodes[raw]
}

func (Values) MapTxType(raw string) mapper.TxType {
	return txTypes[strings.ToLower(raw)]
}

func (Values) MapSecureType(raw string, _ mapper.TxType) mapper.PaymentModel {
	return secureTypes[raw]
}

// Formatter parses KuveytTürk's amount and date encodings.
type Formatter struct{}

// FormatAmount parses plain decimal amounts ("1.01")
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

// FormatDateTime parses the ISO timestamps with fractional seconds the
// gateway answers with ("2024-03-01T10:15:30.797")
func (Formatter) FormatDateTime(raw string, _ mapper.TxType) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func (Formatter) FormatInstallment(raw string, _ mapper.TxType) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 1 {
		return nil
	}
	return &n
}
