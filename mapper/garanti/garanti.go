// Package garanti normalizes Garanti BBVA GVP gateway responses.
//
// GVP nests everything: the outcome lives in Transaction.Response with a
// ReasonCode whose known-good value is "00", inquiries answer through
// Order.OrderInqResult and history through Order.OrderHistInqResult. The
// same raw inquiry Status can mean different canonical states depending on
// the accompanying charge type, so the derivation combines both with the
// captured amount.
package garanti

import (
	"fmt"
	"time"

	"github.com/vposmap/vposmap/mapper"
)

const codeApproved = "00"

// statusCodes maps GVP reason codes to canonical details. GVP reuses ISO
// 8583 response codes with a handful of four-digit gateway codes on top.
var statusCodes = mapper.CodeTable{
	"00":   mapper.DetailApproved,
	"92":   mapper.DetailInvalidTransaction,
	"0208": mapper.DetailTransactionNotFound,
	"0209": mapper.DetailTransactionNotFound,
	"0111": mapper.DetailTransactionNotFound,
	"05":   mapper.DetailReject,
	"96":   mapper.DetailGeneralError,
}

// GarantiMapper implements mapper.ResponseMapper for GVP
type GarantiMapper struct {
	values mapper.ValueMapper
	format mapper.ValueFormatter
	logger mapper.Logger
}

// NewMapper creates a GVP response mapper with the package's own
// enumeration tables and formatters
func NewMapper() mapper.ResponseMapper {
	return NewMapperWith(Values{}, Formatter{}, mapper.NopLogger{})
}

// NewMapperWith creates a GVP response mapper with custom collaborators
func NewMapperWith(values mapper.ValueMapper, format mapper.ValueFormatter, logger mapper.Logger) mapper.ResponseMapper {
	return &GarantiMapper{values: values, format: format, logger: logger}
}

// MapPaymentResponse maps a synchronous (non 3-D) payment result
func (m *GarantiMapper) MapPaymentResponse(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	transaction := mapper.SubMap(raw, "Transaction")
	response := mapper.SubMap(transaction, "Response")
	orderBlock := mapper.SubMap(raw, "Order")
	reasonCode := mapper.String(response, "ReasonCode")

	record := &mapper.TransactionRecord{
		OrderID:         mapper.String(orderBlock, "OrderID"),
		GroupID:         mapper.String(orderBlock, "GroupID"),
		TransactionID:   mapper.String(transaction, "TransID"),
		TransactionType: txType,
		PaymentModel:    mapper.ModelRegular,
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(response, "ReasonCode"),
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

	if reasonCode == codeApproved {
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(transaction, "AuthCode")
		record.RefRetNum = mapper.OptString(transaction, "RetrefNum")
		record.BatchNum = mapper.OptString(transaction, "BatchNum")
		record.MaskedNumber = mapper.OptString(transaction, "CardNumberMasked")
		record.TransactionTime = m.format.FormatDateTime(mapper.String(transaction, "ProvDate"), txType)
		return record, nil
	}

	record.StatusDetail = m.classify(reasonCode)
	record.ErrorCode = mapper.OptString(response, "ReasonCode")
	record.ErrorMessage = firstNonNil(mapper.OptString(response, "ErrorMsg"), mapper.OptString(response, "SysErrMsg"))
	return record, nil
}

// Map3DPaymentData merges the MPI callback with the provision result
func (m *GarantiMapper) Map3DPaymentData(threeDRaw, paymentRaw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	mdStatus := m.ExtractMDStatus(threeDRaw)
	security := securityFromMDStatus(mdStatus)

	if m.Is3DAuthSuccess(mdStatus) && len(paymentRaw) > 0 {
		record, err := m.MapPaymentResponse(paymentRaw, txType, order)
		if err != nil {
			return nil, err
		}
		record.PaymentModel = mapper.Model3D
		record.TransactionSecurity = &security
		record.MdStatus = mapper.OptString(threeDRaw, "mdstatus")
		record.MdErrorMessage = mapper.OptString(threeDRaw, "mderrormessage")
		record.Eci = mapper.OptString(threeDRaw, "eci")
		record.Cavv = mapper.OptString(threeDRaw, "cavv")
		record.ThreeDAll = threeDRaw
		return record, nil
	}

	record := &mapper.TransactionRecord{
		OrderID:             mapper.String(threeDRaw, "oid"),
		TransactionType:     txType,
		PaymentModel:        mapper.Model3D,
		TransactionSecurity: &security,
		Status:              mapper.StatusDeclined,
		StatusDetail:        mapper.DetailPtr(mapper.DetailReject),
		MdStatus:            mapper.OptString(threeDRaw, "mdstatus"),
		MdErrorMessage:      mapper.OptString(threeDRaw, "mderrormessage"),
		Eci:                 mapper.OptString(threeDRaw, "eci"),
		Cavv:                mapper.OptString(threeDRaw, "cavv"),
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

// Map3DPayResponseData maps a 3D-Pay callback, which carries the final
// provision result in its lowercase form fields
func (m *GarantiMapper) Map3DPayResponseData(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	mdStatus := m.ExtractMDStatus(raw)
	procCode := mapper.String(raw, "procreturncode")
	security := securityFromMDStatus(mdStatus)
	authenticated := m.Is3DAuthSuccess(mdStatus)

	record := &mapper.TransactionRecord{
		OrderID:             mapper.String(raw, "oid"),
		TransactionID:       mapper.String(raw, "transid"),
		TransactionType:     txType,
		PaymentModel:        mapper.Model3DPay,
		TransactionSecurity: &security,
		Status:              mapper.StatusDeclined,
		ProcReturnCode:      mapper.OptString(raw, "procreturncode"),
		MdStatus:            mapper.OptString(raw, "mdstatus"),
		MdErrorMessage:      mapper.OptString(raw, "mderrormessage"),
		Eci:                 mapper.OptString(raw, "eci"),
		Cavv:                mapper.OptString(raw, "cavv"),
		Currency:            order.Currency,
		All:                 raw,
		ThreeDAll:           raw,
	}
	if c := m.values.MapCurrency(mapper.String(raw, "txncurrencycode"), txType); c != "" {
		record.Currency = c
	}
	if amount := m.format.FormatAmount(mapper.String(raw, "txnamount"), txType); amount != nil {
		record.Amount = amount
	} else if !order.Amount.IsZero() {
		amount := order.Amount
		record.Amount = &amount
	}

	if authenticated && procCode == codeApproved {
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "authcode")
		record.RefRetNum = mapper.OptString(raw, "hostrefnum")
		record.BatchNum = mapper.OptString(raw, "batchnum")
		return record, nil
	}

	if !authenticated {
		record.StatusDetail = mapper.DetailPtr(mapper.DetailReject)
	} else {
		record.StatusDetail = m.classify(procCode)
	}
	record.ErrorCode = mapper.OptString(raw, "procreturncode")
	record.ErrorMessage = mapper.OptString(raw, "errmsg")
	return record, nil
}

// Map3DHostResponseData is not offered by GVP
func (m *GarantiMapper) Map3DHostResponseData(mapper.RawMap, mapper.TxType, mapper.Order) (*mapper.TransactionRecord, error) {
	return nil, fmt.Errorf("garanti: 3d host: %w", mapper.ErrNotImplemented)
}

// MapStatusResponse maps a single-order inquiry. The canonical order state
// comes from the raw Status combined with the charge type and the captured
// amount; the same Status value means different things per charge type.
func (m *GarantiMapper) MapStatusResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	transaction := mapper.SubMap(raw, "Transaction")
	response := mapper.SubMap(transaction, "Response")
	orderBlock := mapper.SubMap(raw, "Order")
	inquiry := mapper.SubMap(orderBlock, "OrderInqResult")
	reasonCode := mapper.String(response, "ReasonCode")

	record := &mapper.OrderStatusRecord{}
	record.OrderID = mapper.String(orderBlock, "OrderID")
	record.ProcReturnCode = mapper.OptString(response, "ReasonCode")
	record.All = raw

	if reasonCode != codeApproved {
		record.Status = mapper.StatusDeclined
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = m.classify(reasonCode)
		record.ErrorCode = mapper.OptString(response, "ReasonCode")
		record.ErrorMessage = firstNonNil(mapper.OptString(response, "ErrorMsg"), mapper.OptString(response, "SysErrMsg"))
		return record, nil
	}

	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.TransactionID = mapper.String(inquiry, "TransID")
	record.AuthCode = mapper.OptString(inquiry, "AuthCode")
	record.RefRetNum = mapper.OptString(inquiry, "RetrefNum")
	record.BatchNum = mapper.OptString(inquiry, "BatchNum")
	record.MaskedNumber = mapper.OptString(inquiry, "CardNumberMasked")
	record.InstallmentCount = m.format.FormatInstallment(mapper.String(inquiry, "InstallmentCnt"), mapper.TxTypeStatus)

	preAuth := m.format.FormatAmount(mapper.String(inquiry, "PreAuthAmount"), mapper.TxTypeStatus)
	captureAmount := m.format.FormatAmount(mapper.String(inquiry, "AuthAmount"), mapper.TxTypeStatus)
	captured := captureAmount != nil && captureAmount.IsPositive()

	if preAuth != nil && preAuth.IsPositive() {
		record.FirstAmount = preAuth
	} else {
		record.FirstAmount = captureAmount
	}
	if captured {
		record.CaptureAmount = captureAmount
		record.CaptureTime = m.format.FormatDateTime(mapper.String(inquiry, "AuthDate"), mapper.TxTypeStatus)
	}
	record.Capture = mapper.BoolPtr(captured)
	record.TransactionTime = firstTime(
		m.format.FormatDateTime(mapper.String(inquiry, "PreAuthDate"), mapper.TxTypeStatus),
		m.format.FormatDateTime(mapper.String(inquiry, "AuthDate"), mapper.TxTypeStatus),
		m.format.FormatDateTime(mapper.String(inquiry, "ProvDate"), mapper.TxTypeStatus),
	)

	status := mapper.String(inquiry, "Status")
	chargeType := mapper.String(inquiry, "ChargeType")
	record.OrderStatus = m.deriveOrderStatus(status, chargeType, captured)
	switch {
	case record.OrderStatus == mapper.OrderCanceled:
		record.CancelTime = m.format.FormatDateTime(mapper.String(inquiry, "ProvDate"), mapper.TxTypeStatus)
	case status == "APPROVED" && chargeType == "C":
		record.RefundTime = m.format.FormatDateTime(mapper.String(inquiry, "ProvDate"), mapper.TxTypeStatus)
	}
	return record, nil
}

// MapRefundResponse maps a refund result
func (m *GarantiMapper) MapRefundResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeRefund), nil
}

// MapCancelResponse maps a void result
func (m *GarantiMapper) MapCancelResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeCancel), nil
}

// MapOrderHistoryResponse maps every leg of one order, ascending by time
func (m *GarantiMapper) MapOrderHistoryResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	orderBlock := mapper.SubMap(raw, "Order")
	orderID := mapper.String(orderBlock, "OrderID")
	legs := m.mapHistoryLegs(raw, orderID)

	record := &mapper.OrderStatusRecord{Transactions: legs}
	if len(legs) > 0 {
		record.TransactionRecord = legs[len(legs)-1]
	} else {
		record.Status = mapper.StatusDeclined
	}
	record.OrderID = orderID
	record.All = raw
	return record, nil
}

// MapHistoryResponse maps a date-range listing, which reuses the
// order-history transaction list shape
func (m *GarantiMapper) MapHistoryResponse(raw mapper.RawMap) (*mapper.HistoryRecord, error) {
	legs := m.mapHistoryLegs(raw, "")
	return &mapper.HistoryRecord{Transactions: legs, TransCount: len(legs)}, nil
}

// Is3DAuthSuccess reports whether mdstatus counts as authenticated. GVP
// accepts the half-secure fallbacks "2".."4" alongside the full "1".
func (m *GarantiMapper) Is3DAuthSuccess(mdStatus string) bool {
	switch mdStatus {
	case "1", "2", "3", "4":
		return true
	default:
		return false
	}
}

// ExtractMDStatus pulls GVP's lowercase mdstatus out of a callback payload
func (m *GarantiMapper) ExtractMDStatus(raw mapper.RawMap) string {
	return mapper.String(raw, "mdstatus")
}

func (m *GarantiMapper) mapHistoryLegs(raw mapper.RawMap, orderID string) []mapper.TransactionRecord {
	orderBlock := mapper.SubMap(raw, "Order")
	txList := mapper.Slice(mapper.SubMap(mapper.SubMap(orderBlock, "OrderHistInqResult"), "OrderTxnList"), "OrderTxn")

	legs := make([]mapper.TransactionRecord, 0, len(txList))
	for _, rawLeg := range txList {
		txType := m.values.MapTxType(mapper.String(rawLeg, "Type"))
		if txType == "" {
			m.logger.Debug("garanti: skipping history entry with unknown type", map[string]any{"type": mapper.String(rawLeg, "Type")})
			continue
		}
		legs = append(legs, m.mapHistoryLeg(rawLeg, txType, orderID))
	}
	mapper.SortTransactionsByTime(legs)
	return legs
}

func (m *GarantiMapper) mapHistoryLeg(raw mapper.RawMap, txType mapper.TxType, orderID string) mapper.TransactionRecord {
	returnCode := mapper.String(raw, "ReturnCode")
	approved := returnCode == codeApproved

	record := mapper.TransactionRecord{
		OrderID:         orderID,
		TransactionID:   mapper.String(raw, "TransID"),
		TransactionType: txType,
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(raw, "ReturnCode"),
	}
	record.FirstAmount = m.format.FormatAmount(mapper.String(raw, "AuthAmount"), txType)

	if !approved {
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = m.classify(returnCode)
		return record
	}

	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.AuthCode = mapper.OptString(raw, "AuthCode")
	record.RefRetNum = mapper.OptString(raw, "RetrefNum")
	record.BatchNum = mapper.OptString(raw, "BatchNum")
	record.TransactionTime = m.format.FormatDateTime(mapper.String(raw, "ProvDate"), txType)

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
		record.OrderStatus = mapper.OrderStatus(mapper.String(raw, "Type"))
		record.RefundTime = record.TransactionTime
	}
	return record
}

func (m *GarantiMapper) mapFollowUp(raw mapper.RawMap, txType mapper.TxType) *mapper.TransactionRecord {
	record, _ := m.MapPaymentResponse(raw, txType, mapper.Order{})
	record.TransactionType = txType
	return record
}

// deriveOrderStatus combines the raw inquiry Status with the charge type
// and the captured-amount check. "APPROVED" alone is ambiguous: a voided
// sale and a settled one both report it.
func (m *GarantiMapper) deriveOrderStatus(status, chargeType string, captured bool) mapper.OrderStatus {
	switch status {
	case "WAITINGPOSTAUTH":
		return mapper.OrderPreAuthCompleted
	case "INITIALIZED", "WAITINGAUTH":
		return mapper.OrderPaymentPending
	case "ERROR", "DECLINED":
		return mapper.OrderError
	case "APPROVED":
		switch chargeType {
		case "V":
			return mapper.OrderCanceled
		case "C":
			// refunds have no canonical order state, pass the charge
			// type through verbatim
			return mapper.OrderStatus(chargeType)
		case "S", "":
			if captured {
				return mapper.OrderPaymentCompleted
			}
			return mapper.OrderPreAuthCompleted
		}
	}
	m.logger.Warn(fmt.Sprintf("garanti: unrecognized inquiry status %q", status), map[string]any{"status": status, "charge_type": chargeType})
	return mapper.OrderStatus(status)
}

func (m *GarantiMapper) classify(code string) *mapper.StatusDetail {
	if detail := statusCodes.Detail(code); detail != nil {
		return detail
	}
	if code != "" {
		m.logger.Warn(fmt.Sprintf("garanti: unrecognized reason code %q", code), map[string]any{"code": code})
	}
	// GVP convention: anything unlisted is a generic host error
	return mapper.DetailPtr(mapper.DetailGeneralError)
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

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstTime(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
