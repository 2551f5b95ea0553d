package posnet

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

// Values holds PosNet's enumeration tables. PosNet is the odd one out with
// two-letter currency codes and short lowercase transaction states.
type Values struct{}

var currencyCodes = map[string]mapper.Currency{
	"TL": mapper.CurrencyTRY,
	"YT": mapper.CurrencyTRY,
	"US": mapper.CurrencyUSD,
	"EU": mapper.CurrencyEUR,
	"GB": mapper.CurrencyGBP,
	"JP": mapper.CurrencyJPY,
	"RU": mapper.CurrencyRUB,
}

var txTypes = map[string]mapper.TxType{
	"sale":    mapper.TxTypePay,
	"auth":    mapper.TxTypePreAuth,
	"capt":    mapper.TxTypePostAuth,
	"reverse": mapper.TxTypeCancel,
	"return":  mapper.TxTypeRefund,
}

var secureTypes = map[string]mapper.PaymentModel{
	"nonsecure": mapper.ModelRegular,
	"oos":       mapper.Model3D,
}

func (Values) MapCurrency(raw string, _ mapper.TxType) mapper.Currency {
	return currencyCodes[strings.ToUpper(raw)]
}

func (Values) MapTxType(raw string) mapper.TxType {
	return txTypes[strings.ToLower(raw)]
}

func (Values) MapSecureType(raw string, _ mapper.TxType) mapper.PaymentModel {
	return secureTypes[strings.ToLower(raw)]
}

// Formatter parses PosNet's amount and date encodings.
type Formatter struct{}

// FormatAmount parses PosNet amounts, which arrive in kuruş without a
// separator ("17550" is 175.50). A dotted value is already in major units.
func (Formatter) FormatAmount(raw string, _ mapper.TxType) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Contains(raw, ".") {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil
		}
		return &d
	}
	minor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	d := decimal.New(minor, -2)
	return &d
}

// FormatDateTime parses PosNet's packed yymmddHHiiss tranDate plus the
// dashed variants its reporting endpoints use.
func (Formatter) FormatDateTime(raw string, _ mapper.TxType) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"060102150405", "2006-01-02 15:04:05.999", "2006-01-02 15:04:05", "2006-01-02"} {
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
