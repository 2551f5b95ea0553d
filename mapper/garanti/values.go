package garanti

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

// Values holds GVP's enumeration tables.
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
	"sales":    mapper.TxTypePay,
	"preauth":  mapper.TxTypePreAuth,
	"postauth": mapper.TxTypePostAuth,
	"void":     mapper.TxTypeCancel,
	"refund":   mapper.TxTypeRefund,
}

var secureTypes = map[string]mapper.PaymentModel{
	"":       mapper.ModelRegular,
	"3D":     mapper.Model3D,
	"3D_PAY": mapper.Model3DPay,
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

// Formatter parses GVP's amount and date encodings.
type Formatter struct{}

// FormatAmount parses GVP amounts. The reporting endpoints answer in kuruş
// without a separator ("10025" is 100.25 TRY); anything carrying a dot is
// already in major units.
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

// FormatDateTime parses GVP's ProvDate shapes: "20240301 10:15:30" on the
// transaction endpoints and dashed variants on the inquiry ones.
func (Formatter) FormatDateTime(raw string, _ mapper.TxType) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"20060102 15:04:05", "2006-01-02 15:04:05", "02.01.2006 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// FormatInstallment parses InstallmentCnt; "0", "1" and empty mean single
// payment.
func (Formatter) FormatInstallment(raw string, _ mapper.TxType) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 1 {
		return nil
	}
	return &n
}
