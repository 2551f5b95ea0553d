// Package payfor normalizes QNB Finansbank PayFor gateway responses.
//
// PayFor signals success with ProcReturnCode "00" on every operation and
// carries its human readable result in ErrMsg. The 3-D authentication
// outcome travels in the 3DStatus field of the callback; only "1" counts as
// a completed authentication, "2".."4" are MPI fallback variants that still
// settle on the 3D-Pay and 3D-Host models.
package payfor

import (
	"fmt"

	"github.com/vposmap/vposmap/mapper"
)

const (
	// Known-good return code for every PayFor operation
	codeApproved = "00"

	mdStatusAuthenticated = "1"
)

// statusCodes maps PayFor return codes to canonical status details. Codes
// missing from the table leave the detail unclassified on purpose; the bank
// ships hundreds of codes and only these have a stable canonical meaning.
var statusCodes = mapper.CodeTable{
	"00":   mapper.DetailApproved,
	"96":   mapper.DetailGeneralError,
	"M041": mapper.DetailReject,
	"M088": mapper.DetailReject,
	"V004": mapper.DetailInvalidTransaction,
	"V013": mapper.DetailTransactionNotFound,
	"V014": mapper.DetailRequestRejected,
	"M097": mapper.DetailTryAgain,
}

// PayForMapper implements mapper.ResponseMapper for the PayFor gateway
type PayForMapper struct {
	values mapper.ValueMapper
	format mapper.ValueFormatter
	logger mapper.Logger
}

// NewMapper creates a PayFor response mapper with the package's own
// enumeration tables and formatters
func NewMapper() mapper.ResponseMapper {
	return NewMapperWith(Values{}, Formatter{}, mapper.NopLogger{})
}

// NewMapperWith creates a PayFor response mapper with custom collaborators
func NewMapperWith(values mapper.ValueMapper, format mapper.ValueFormatter, logger mapper.Logger) mapper.ResponseMapper {
	return &PayForMapper{values: values, format: format, logger: logger}
}

// MapPaymentResponse maps a synchronous (non 3-D) payment result
func (m *PayForMapper) MapPaymentResponse(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	procCode := mapper.String(raw, "ProcReturnCode")

	record := &mapper.TransactionRecord{
		OrderID:         mapper.String(raw, "OrderId"),
		TransactionID:   mapper.String(raw, "TransId"),
		TransactionType: txType,
		PaymentModel:    mapper.ModelRegular,
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(raw, "ProcReturnCode"),
		Currency:        order.Currency,
		All:             raw,
	}

	if c := m.values.MapCurrency(mapper.String(raw, "Currency"), txType); c != "" {
		record.Currency = c
	}
	if amount := m.format.FormatAmount(mapper.String(raw, "PurchAmount"), txType); amount != nil {
		record.Amount = amount
	} else if !order.Amount.IsZero() {
		amount := order.Amount
		record.Amount = &amount
	}
	record.InstallmentCount = m.format.FormatInstallment(mapper.String(raw, "InstallmentCount"), txType)

	if procCode == codeApproved {
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "AuthCode")
		record.RefRetNum = mapper.OptString(raw, "HostRefNum")
		record.TransactionTime = m.format.FormatDateTime(mapper.String(raw, "InsertDatetime"), txType)
		return record, nil
	}

	record.StatusDetail = m.classify(procCode)
	record.ErrorCode = mapper.OptString(raw, "ProcReturnCode")
	record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
	return record, nil
}

// Map3DPaymentData merges the 3-D callback with the backend confirmation.
// The callback alone never approves a payment on this model: PayFor calls
// the merchant back after MPI, then expects a second provision request
// whose result is authoritative.
func (m *PayForMapper) Map3DPaymentData(threeDRaw, paymentRaw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	mdStatus := m.ExtractMDStatus(threeDRaw)
	security := securityFromMDStatus(mdStatus)

	if m.Is3DAuthSuccess(mdStatus) && len(paymentRaw) > 0 {
		record, err := m.MapPaymentResponse(paymentRaw, txType, order)
		if err != nil {
			return nil, err
		}
		record.PaymentModel = mapper.Model3D
		record.TransactionSecurity = &security
		record.MdStatus = mapper.OptString(threeDRaw, "3DStatus")
		record.Eci = mapper.OptString(threeDRaw, "Eci")
		record.Cavv = mapper.OptString(threeDRaw, "Cavv")
		record.ThreeDAll = threeDRaw
		return record, nil
	}

	// 3-D authentication failed, or the provision request was never sent
	record := &mapper.TransactionRecord{
		OrderID:             mapper.String(threeDRaw, "OrderId"),
		TransactionID:       mapper.String(threeDRaw, "TransId"),
		TransactionType:     txType,
		PaymentModel:        mapper.Model3D,
		TransactionSecurity: &security,
		Status:              mapper.StatusDeclined,
		StatusDetail:        mapper.DetailPtr(mapper.DetailReject),
		ProcReturnCode:      mapper.OptString(threeDRaw, "ProcReturnCode"),
		ErrorCode:           mapper.OptString(threeDRaw, "ProcReturnCode"),
		ErrorMessage:        mapper.OptString(threeDRaw, "ErrMsg"),
		MdStatus:            mapper.OptString(threeDRaw, "3DStatus"),
		MdErrorMessage:      mapper.OptString(threeDRaw, "ErrMsg"),
		Currency:            order.Currency,
		All:                 paymentRaw,
		ThreeDAll:           threeDRaw,
	}
	if !order.Amount.IsZero() {
		amount := order.Amount
		record.Amount = &amount
	}
	return record, nil
}

// Map3DPayResponseData maps a 3D-Pay callback, which is the final result
func (m *PayForMapper) Map3DPayResponseData(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	return m.map3DFinal(raw, txType, order, mapper.Model3DPay)
}

// Map3DHostResponseData maps a hosted-page callback, which is the final result
func (m *PayForMapper) Map3DHostResponseData(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	return m.map3DFinal(raw, txType, order, mapper.Model3DHost)
}

func (m *PayForMapper) map3DFinal(raw mapper.RawMap, txType mapper.TxType, order mapper.Order, model mapper.PaymentModel) (*mapper.TransactionRecord, error) {
	record, err := m.MapPaymentResponse(raw, txType, order)
	if err != nil {
		return nil, err
	}
	mdStatus := m.ExtractMDStatus(raw)
	security := securityFromMDStatus(mdStatus)

	record.PaymentModel = model
	record.TransactionSecurity = &security
	record.MdStatus = mapper.OptString(raw, "3DStatus")
	record.Eci = mapper.OptString(raw, "Eci")
	record.Cavv = mapper.OptString(raw, "Cavv")
	record.ThreeDAll = raw
	return record, nil
}

// MapStatusResponse maps a single-order status inquiry
func (m *PayForMapper) MapStatusResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	record := &mapper.OrderStatusRecord{TransactionRecord: m.mapTransactionDetail(raw)}
	return record, nil
}

// MapRefundResponse maps a refund result
func (m *PayForMapper) MapRefundResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeRefund), nil
}

// MapCancelResponse maps a void result
func (m *PayForMapper) MapCancelResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeCancel), nil
}

// MapOrderHistoryResponse maps every leg of one order, ascending by time
func (m *PayForMapper) MapOrderHistoryResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	legs := m.mapHistoryLegs(raw)

	record := &mapper.OrderStatusRecord{Transactions: legs}
	if len(legs) > 0 {
		// the latest dated leg carries the order's current state
		record.TransactionRecord = legs[len(legs)-1]
	} else {
		record.Status = mapper.StatusDeclined
	}
	record.All = raw
	return record, nil
}

// MapHistoryResponse maps a date-range listing
func (m *PayForMapper) MapHistoryResponse(raw mapper.RawMap) (*mapper.HistoryRecord, error) {
	legs := m.mapHistoryLegs(raw)
	return &mapper.HistoryRecord{Transactions: legs, TransCount: len(legs)}, nil
}

// Is3DAuthSuccess reports whether 3DStatus counts as an authenticated MPI
// result. Only a completed authentication allows the provision request on
// the full 3-D model.
func (m *PayForMapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == mdStatusAuthenticated
}

// ExtractMDStatus pulls PayFor's 3DStatus out of a callback payload
func (m *PayForMapper) ExtractMDStatus(raw mapper.RawMap) string {
	return mapper.String(raw, "3DStatus")
}

func (m *PayForMapper) mapHistoryLegs(raw mapper.RawMap) []mapper.TransactionRecord {
	rawLegs := mapper.Slice(mapper.SubMap(raw, "PaymentFacadeHistory"), "txnHistory")

	legs := make([]mapper.TransactionRecord, 0, len(rawLegs))
	for _, rawLeg := range rawLegs {
		if mapper.String(rawLeg, "OrderId") == "" && mapper.String(rawLeg, "ProcReturnCode") == "" {
			m.logger.Debug("payfor: skipping history entry without order id or return code", map[string]any{"entry": rawLeg})
			continue
		}
		legs = append(legs, m.mapTransactionDetail(rawLeg))
	}
	mapper.SortTransactionsByTime(legs)
	return legs
}

// mapTransactionDetail maps the per-transaction detail shape shared by the
// status and history endpoints.
func (m *PayForMapper) mapTransactionDetail(raw mapper.RawMap) mapper.TransactionRecord {
	procCode := mapper.String(raw, "ProcReturnCode")
	txType := m.values.MapTxType(mapper.String(raw, "TxnType"))

	record := mapper.TransactionRecord{
		OrderID:         mapper.String(raw, "OrderId"),
		TransactionID:   mapper.String(raw, "TransId"),
		TransactionType: txType,
		PaymentModel:    m.values.MapSecureType(mapper.String(raw, "SecureType"), txType),
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(raw, "ProcReturnCode"),
		Currency:        m.values.MapCurrency(mapper.String(raw, "Currency"), txType),
		All:             raw,
	}
	record.FirstAmount = m.format.FormatAmount(mapper.String(raw, "PurchAmount"), txType)

	if procCode != codeApproved {
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = m.classify(procCode)
		record.ErrorCode = mapper.OptString(raw, "ProcReturnCode")
		record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
		return record
	}

	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.AuthCode = mapper.OptString(raw, "AuthCode")
	record.RefRetNum = mapper.OptString(raw, "HostRefNum")
	record.MaskedNumber = mapper.OptString(raw, "MaskedPan")
	record.InstallmentCount = m.format.FormatInstallment(mapper.String(raw, "InstallmentCount"), txType)
	record.TransactionTime = m.format.FormatDateTime(mapper.String(raw, "InsertDatetime"), txType)

	captured := record.FirstAmount != nil && record.FirstAmount.IsPositive()

	switch txType {
	case mapper.TxTypePay, mapper.TxTypePostAuth:
		record.OrderStatus = mapper.OrderPaymentCompleted
		if captured {
			record.CaptureAmount = record.FirstAmount
			record.CaptureTime = record.TransactionTime
		}
		record.Capture = mapper.BoolPtr(captured)
	case mapper.TxTypePreAuth:
		record.OrderStatus = mapper.OrderPreAuthCompleted
		record.Capture = mapper.BoolPtr(false)
	case mapper.TxTypeCancel:
		record.OrderStatus = mapper.OrderCanceled
		record.CancelTime = record.TransactionTime
	case mapper.TxTypeRefund:
		// no canonical refunded state: the raw type passes through
		record.OrderStatus = mapper.OrderStatus(mapper.String(raw, "TxnType"))
		record.RefundTime = record.TransactionTime
	default:
		record.OrderStatus = mapper.OrderStatus(mapper.String(raw, "TxnType"))
	}

	// a void date on a sale leg overrides: the order was taken back
	if voidTime := m.format.FormatDateTime(mapper.String(raw, "VoidDatetime"), txType); voidTime != nil {
		record.OrderStatus = mapper.OrderCanceled
		record.CancelTime = voidTime
	}
	return record
}

// mapFollowUp maps refund and cancel results, which share one flat shape
func (m *PayForMapper) mapFollowUp(raw mapper.RawMap, txType mapper.TxType) *mapper.TransactionRecord {
	procCode := mapper.String(raw, "ProcReturnCode")

	record := &mapper.TransactionRecord{
		OrderID:         mapper.String(raw, "OrderId"),
		TransactionID:   mapper.String(raw, "TransId"),
		TransactionType: txType,
		PaymentModel:    mapper.ModelRegular,
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(raw, "ProcReturnCode"),
		All:             raw,
	}

	if procCode == codeApproved {
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "AuthCode")
		record.RefRetNum = mapper.OptString(raw, "HostRefNum")
		record.TransactionTime = m.format.FormatDateTime(mapper.String(raw, "InsertDatetime"), txType)
		return record
	}

	record.StatusDetail = m.classify(procCode)
	record.ErrorCode = mapper.OptString(raw, "ProcReturnCode")
	record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
	return record
}

func (m *PayForMapper) classify(code string) *mapper.StatusDetail {
	if detail := statusCodes.Detail(code); detail != nil {
		return detail
	}
	if code != "" {
		m.logger.Warn(fmt.Sprintf("payfor: unrecognized proc return code %q", code), map[string]any{"code": code})
	}
	return nil
}

func securityFromMDStatus(mdStatus string) mapper.TransactionSecurity {
	switch mdStatus {
	case "1":
		return mapper.SecurityFull
	case "2", "3", "4":
		return mapper.SecurityHalf
	default:
		return mapper.SecurityMPIFallback
	}
}
