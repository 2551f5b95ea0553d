package interpos

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

// Values holds InterPos's enumeration tables.
type Values struct{}

var currencyCodes = map[string]mapper.Currency{
	"949": mapper.CurrencyTRY,
	"840": mapper.CurrencyUSD,
	"978": mapper.CurrencyEUR,
	"826": mapper.CurrencyGBP,
}

var txTypes = map[string]mapper.TxType{
	"auth":     mapper.TxTypePay,
	"preauth":  mapper.TxTypePreAuth,
	"postauth": mapper.TxTypePostAuth,
	"void":     mapper.TxTypeCancel,
	"refund":   mapper.TxTypeRefund,
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
	return txTypes[strings.ToLower(raw)]
}

func (Values) MapSecureType(raw string, _ mapper.TxType) mapper.PaymentModel {
	return secureTypes[raw]
}

// Formatter parses InterPos's amount encodings. The gateway never echoes a
// timestamp, so FormatDateTime only handles the ISO shapes of manually
// backfilled payloads.
type Formatter struct{}

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

func (Formatter) FormatDateTime(raw string, _ mapper.TxType) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
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
