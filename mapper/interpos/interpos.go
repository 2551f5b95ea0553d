// Package interpos normalizes Denizbank InterPos gateway responses.
//
// InterPos answers with the sparsest envelope of the supported gateways: a
// ProcReturnCode whose known-good value is "00", an ErrorCode/ErrorMessage
// pair on failure, and no timestamp anywhere. Approved payments therefore
// get the mapping time as their transaction time; it marks when the
// approval was observed, not when the bank booked it. The 3-D callback
// carries its outcome in a 3DStatus field where "1" is a full
// authentication and "4" a half one. There is no history endpoint in
// either form.
package interpos

import (
	"fmt"
	"time"

	"github.com/vposmap/vposmap/mapper"
)

const codeApproved = "00"

var statusCodes = mapper.CodeTable{
	"00": mapper.DetailApproved,
	"05": mapper.DetailReject,
	"12": mapper.DetailInvalidTransaction,
	"99": mapper.DetailGeneralError,
}

// orderStates maps the inquiry's TxnStat flag to canonical order states
var orderStates = map[string]mapper.OrderStatus{
	"Y": mapper.OrderPaymentCompleted,
	"C": mapper.OrderPaymentCompleted,
	"V": mapper.OrderCanceled,
	"N": mapper.OrderError,
}

// InterPosMapper implements mapper.ResponseMapper for InterPos
type InterPosMapper struct {
	values mapper.ValueMapper
	format mapper.ValueFormatter
	logger mapper.Logger
	now    func() time.Time
}

// NewMapper creates an InterPos response mapper with the package's own
// enumeration tables and formatters
func NewMapper() mapper.ResponseMapper {
	return NewMapperWith(Values{}, Formatter{}, mapper.NopLogger{})
}

// NewMapperWith creates an InterPos response mapper with custom
// collaborators
func NewMapperWith(values mapper.ValueMapper, format mapper.ValueFormatter, logger mapper.Logger) mapper.ResponseMapper {
	return &InterPosMapper{values: values, format: format, logger: logger, now: time.Now}
}

// MapPaymentResponse maps a synchronous (non 3-D) payment result
func (m *InterPosMapper) MapPaymentResponse(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	procCode := mapper.String(raw, "ProcReturnCode")

	record := &mapper.TransactionRecord{
		OrderID:         firstNonEmpty(mapper.String(raw, "OrderId"), order.ID),
		TransactionID:   mapper.String(raw, "TransId"),
		TransactionType: txType,
		PaymentModel:    mapper.ModelRegular,
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(raw, "ProcReturnCode"),
		Currency:        order.Currency,
		All:             raw,
	}
	if !order.Amount.IsZero() {
		amount := order.Amount
		record.Amount = &amount
	}
	if order.InstallmentCount > 1 {
		record.InstallmentCount = mapper.IntPtr(order.InstallmentCount)
	}

	if procCode == codeApproved {
		now := m.now()
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "AuthCode")
		record.RefRetNum = mapper.OptString(raw, "HostRefNum")
		record.TransactionTime = &now
		return record, nil
	}

	record.StatusDetail = m.classify(procCode, mapper.String(raw, "ErrorCode"))
	record.ErrorCode = mapper.OptString(raw, "ErrorCode")
	record.ErrorMessage = mapper.OptString(raw, "ErrorMessage")
	return record, nil
}

// Map3DPaymentData merges the MPI callback with the provision result
func (m *InterPosMapper) Map3DPaymentData(threeDRaw, paymentRaw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
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
		record.MdErrorMessage = mapper.OptString(threeDRaw, "ErrorMessage")
		record.Eci = mapper.OptString(threeDRaw, "Eci")
		record.ThreeDAll = threeDRaw
		return record, nil
	}

	record := &mapper.TransactionRecord{
		OrderID:             firstNonEmpty(mapper.String(threeDRaw, "OrderId"), order.ID),
		TransactionType:     txType,
		PaymentModel:        mapper.Model3D,
		TransactionSecurity: &security,
		Status:              mapper.StatusDeclined,
		StatusDetail:        mapper.DetailPtr(mapper.DetailReject),
		MdStatus:            mapper.OptString(threeDRaw, "3DStatus"),
		MdErrorMessage:      mapper.OptString(threeDRaw, "ErrorMessage"),
		Eci:                 mapper.OptString(threeDRaw, "Eci"),
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
func (m *InterPosMapper) Map3DPayResponseData(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	return m.map3DFinal(raw, txType, order, mapper.Model3DPay)
}

// Map3DHostResponseData maps a hosted-page callback
func (m *InterPosMapper) Map3DHostResponseData(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	return m.map3DFinal(raw, txType, order, mapper.Model3DHost)
}

func (m *InterPosMapper) map3DFinal(raw mapper.RawMap, txType mapper.TxType, order mapper.Order, model mapper.PaymentModel) (*mapper.TransactionRecord, error) {
	mdStatus := m.ExtractMDStatus(raw)
	security := securityFromMDStatus(mdStatus)
	authenticated := m.Is3DAuthSuccess(mdStatus)
	procCode := mapper.String(raw, "ProcReturnCode")

	record := &mapper.TransactionRecord{
		OrderID:             firstNonEmpty(mapper.String(raw, "OrderId"), order.ID),
		TransactionID:       mapper.String(raw, "TransId"),
		TransactionType:     txType,
		PaymentModel:        model,
		TransactionSecurity: &security,
		Status:              mapper.StatusDeclined,
		ProcReturnCode:      mapper.OptString(raw, "ProcReturnCode"),
		MdStatus:            mapper.OptString(raw, "3DStatus"),
		MdErrorMessage:      mapper.OptString(raw, "ErrorMessage"),
		Eci:                 mapper.OptString(raw, "Eci"),
		Currency:            order.Currency,
		All:                 raw,
		ThreeDAll:           raw,
	}
	if amount := m.format.FormatAmount(mapper.String(raw, "PurchAmount"), txType); amount != nil {
		record.Amount = amount
	} else if !order.Amount.IsZero() {
		amount := order.Amount
		record.Amount = &amount
	}

	if authenticated && procCode == codeApproved {
		now := m.now()
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "AuthCode")
		record.RefRetNum = mapper.OptString(raw, "HostRefNum")
		record.TransactionTime = &now
		return record, nil
	}

	if !authenticated {
		record.StatusDetail = mapper.DetailPtr(mapper.DetailReject)
	} else {
		record.StatusDetail = m.classify(procCode, mapper.String(raw, "ErrorCode"))
	}
	record.ErrorCode = mapper.OptString(raw, "ErrorCode")
	record.ErrorMessage = mapper.OptString(raw, "ErrorMessage")
	return record, nil
}

// MapStatusResponse maps an inquiry. InterPos reports almost nothing: an
// approval flag, the TxnStat state and the purchase amount. Every
// timestamp on the result stays nil.
func (m *InterPosMapper) MapStatusResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	procCode := mapper.String(raw, "ProcReturnCode")

	record := &mapper.OrderStatusRecord{}
	record.OrderID = mapper.String(raw, "OrderId")
	record.TransactionID = mapper.String(raw, "TransId")
	record.ProcReturnCode = mapper.OptString(raw, "ProcReturnCode")
	record.All = raw

	if procCode != codeApproved {
		record.Status = mapper.StatusDeclined
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = m.classify(procCode, mapper.String(raw, "ErrorCode"))
		record.ErrorCode = mapper.OptString(raw, "ErrorCode")
		record.ErrorMessage = mapper.OptString(raw, "ErrorMessage")
		return record, nil
	}

	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.AuthCode = mapper.OptString(raw, "AuthCode")
	record.RefRetNum = mapper.OptString(raw, "HostRefNum")
	record.FirstAmount = m.format.FormatAmount(mapper.String(raw, "PurchAmount"), mapper.TxTypeStatus)

	captured := record.FirstAmount != nil && record.FirstAmount.IsPositive()
	record.Capture = mapper.BoolPtr(captured)
	if captured {
		record.CaptureAmount = record.FirstAmount
	}

	txnStat := mapper.String(raw, "TxnStat")
	if state, ok := orderStates[txnStat]; ok {
		record.OrderStatus = state
	} else {
		if txnStat != "" {
			m.logger.Warn(fmt.Sprintf("interpos: unrecognized txn stat %q", txnStat), map[string]any{"txn_stat": txnStat})
		}
		record.OrderStatus = mapper.OrderStatus(txnStat)
	}
	return record, nil
}

// MapRefundResponse maps a refund result
func (m *InterPosMapper) MapRefundResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeRefund), nil
}

// MapCancelResponse maps a void result
func (m *InterPosMapper) MapCancelResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeCancel), nil
}

// MapOrderHistoryResponse is not offered by InterPos
func (m *InterPosMapper) MapOrderHistoryResponse(mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	return nil, fmt.Errorf("interpos: order history: %w", mapper.ErrNotImplemented)
}

// MapHistoryResponse is not offered by InterPos
func (m *InterPosMapper) MapHistoryResponse(mapper.RawMap) (*mapper.HistoryRecord, error) {
	return nil, fmt.Errorf("interpos: history: %w", mapper.ErrNotImplemented)
}

// Is3DAuthSuccess reports whether 3DStatus counts as authenticated; "1"
// is a full authentication, "4" an attempt the scheme still honors
func (m *InterPosMapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == "1" || mdStatus == "4"
}

// ExtractMDStatus pulls 3DStatus out of a callback payload
func (m *InterPosMapper) ExtractMDStatus(raw mapper.RawMap) string {
	return mapper.String(raw, "3DStatus")
}

func (m *InterPosMapper) mapFollowUp(raw mapper.RawMap, txType mapper.TxType) *mapper.TransactionRecord {
	record, _ := m.MapPaymentResponse(raw, txType, mapper.Order{})
	record.TransactionType = txType
	if record.Status == mapper.StatusApproved {
		// follow-ups report the action time of the original booking, which
		// InterPos does not echo
		record.TransactionTime = nil
	}
	return record
}

func (m *InterPosMapper) classify(procCode, errorCode string) *mapper.StatusDetail {
	if detail := statusCodes.Detail(errorCode); detail != nil {
		return detail
	}
	if detail := statusCodes.Detail(procCode); detail != nil {
		return detail
	}
	if procCode != "" || errorCode != "" {
		m.logger.Warn("interpos: unrecognized return code", map[string]any{"proc_return_code": procCode, "error_code": errorCode})
	}
	return nil
}

func securityFromMDStatus(mdStatus string) mapper.TransactionSecurity {
	switch mdStatus {
	case "1":
		return mapper.SecurityFull
	case "4":
		return mapper.SecurityHalf
	default:
		return mapper.SecurityMPIFallback
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
