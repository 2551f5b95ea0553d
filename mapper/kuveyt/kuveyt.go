// Package kuveyt normalizes KuveytTürk gateway responses.
//
// KuveytTürk answers with a flat contract whose ResponseCode is "00" on
// success; the approval carries ProvisionNumber, RRN and Stan. The 3-D
// flow has no graded md status: the enrollment callback either carries a
// usable MD inside AuthenticationResponse or the payment never happens,
// so the security outcome is full or nothing. Inquiries answer through
// GetMerchantOrderDetailResult.Value.OrderContract with a numeric order
// status. There is no 3D-Pay, hosted-page or history endpoint.
package kuveyt

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

const codeApproved = "00"

// statusCodes maps KuveytTürk response codes to canonical details.
// Alongside the ISO-style numerics the gateway emits symbolic codes for
// its own validation layer.
var statusCodes = mapper.CodeTable{
	"00":               mapper.DetailApproved,
	"05":               mapper.DetailReject,
	"51":               mapper.DetailReject,
	"12":               mapper.DetailInvalidTransaction,
	"EmptyMDException": mapper.DetailInvalidTransaction,
	"HashDataError":    mapper.DetailRequestRejected,
	"OrderNotFound":    mapper.DetailTransactionNotFound,
	"MDStatusFalse":    mapper.DetailReject,
}

// KuveytMapper implements mapper.ResponseMapper for KuveytTürk
type KuveytMapper struct {
	values mapper.ValueMapper
	format mapper.ValueFormatter
	logger mapper.Logger
}

// NewMapper creates a KuveytTürk response mapper with the package's own
// enumeration tables and formatters
func NewMapper() mapper.ResponseMapper {
	return NewMapperWith(Values{}, Formatter{}, mapper.NopLogger{})
}

// NewMapperWith creates a KuveytTürk response mapper with custom
// collaborators
func NewMapperWith(values mapper.ValueMapper, format mapper.ValueFormatter, logger mapper.Logger) mapper.ResponseMapper {
	return &KuveytMapper{values: values, format: format, logger: logger}
}

// MapPaymentResponse maps a synchronous (non 3-D) payment result
func (m *KuveytMapper) MapPaymentResponse(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	responseCode := mapper.String(raw, "ResponseCode")

	record := &mapper.TransactionRecord{
		OrderID:         firstNonEmpty(mapper.String(raw, "MerchantOrderId"), order.ID),
		TransactionID:   mapper.String(raw, "OrderId"),
		TransactionType: txType,
		PaymentModel:    mapper.ModelRegular,
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(raw, "ResponseCode"),
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

	if responseCode == codeApproved {
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "ProvisionNumber")
		record.RefRetNum = mapper.OptString(raw, "RRN")
		record.BatchNum = mapper.OptString(raw, "BatchId")
		record.TransactionTime = m.format.FormatDateTime(mapper.String(raw, "TransactionTime"), txType)
		return record, nil
	}

	record.StatusDetail = m.classify(responseCode)
	record.ErrorCode = mapper.OptString(raw, "ResponseCode")
	record.ErrorMessage = mapper.OptString(raw, "ResponseMessage")
	return record, nil
}

// Map3DPaymentData merges the enrollment callback with the provision
// result. KuveytTürk carries no graded md status: a callback whose
// AuthenticationResponse holds an MD authenticated fully, anything else
// did not authenticate at all.
func (m *KuveytMapper) Map3DPaymentData(threeDRaw, paymentRaw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	md := m.ExtractMDStatus(threeDRaw)

	if m.Is3DAuthSuccess(md) && len(paymentRaw) > 0 {
		record, err := m.MapPaymentResponse(paymentRaw, txType, order)
		if err != nil {
			return nil, err
		}
		record.PaymentModel = mapper.Model3D
		record.TransactionSecurity = mapper.SecurityPtr(mapper.SecurityFull)
		record.ThreeDAll = threeDRaw
		return record, nil
	}

	record := &mapper.TransactionRecord{
		OrderID:             firstNonEmpty(mapper.String(threeDRaw, "MerchantOrderId"), order.ID),
		TransactionType:     txType,
		PaymentModel:        mapper.Model3D,
		TransactionSecurity: mapper.SecurityPtr(mapper.SecurityMPIFallback),
		Status:              mapper.StatusDeclined,
		StatusDetail:        mapper.DetailPtr(mapper.DetailReject),
		MdErrorMessage:      mapper.OptString(threeDRaw, "ResponseMessage"),
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

// Map3DPayResponseData is not offered by KuveytTürk
func (m *KuveytMapper) Map3DPayResponseData(mapper.RawMap, mapper.TxType, mapper.Order) (*mapper.TransactionRecord, error) {
	return nil, fmt.Errorf("kuveyt: 3d pay: %w", mapper.ErrNotImplemented)
}

// Map3DHostResponseData is not offered by KuveytTürk
func (m *KuveytMapper) Map3DHostResponseData(mapper.RawMap, mapper.TxType, mapper.Order) (*mapper.TransactionRecord, error) {
	return nil, fmt.Errorf("kuveyt: 3d host: %w", mapper.ErrNotImplemented)
}

// MapStatusResponse maps an order-detail inquiry. The canonical state
// comes from the contract's numeric status combined with the cancel and
// drawback amounts, since a voided and a refunded order report the same
// numeric status as a settled one.
func (m *KuveytMapper) MapStatusResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	contract := orderContract(raw)

	record := &mapper.OrderStatusRecord{}
	record.All = raw

	if len(contract) == 0 {
		record.Status = mapper.StatusDeclined
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = mapper.DetailPtr(mapper.DetailTransactionNotFound)
		record.ErrorMessage = mapper.OptString(raw, "ResponseMessage")
		return record, nil
	}

	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.OrderID = mapper.String(contract, "MerchantOrderId")
	record.TransactionID = mapper.String(contract, "OrderId")
	record.AuthCode = mapper.OptString(contract, "ProvNumber")
	record.RefRetNum = mapper.OptString(contract, "RRN")
	record.MaskedNumber = mapper.OptString(contract, "CardNumber")
	record.Currency = m.values.MapCurrency(mapper.String(contract, "FEC"), mapper.TxTypeStatus)
	record.TransactionTime = m.format.FormatDateTime(mapper.String(contract, "OrderDate"), mapper.TxTypeStatus)

	firstAmount := m.format.FormatAmount(mapper.String(contract, "FirstAmount"), mapper.TxTypeStatus)
	cancelAmount := m.format.FormatAmount(mapper.String(contract, "CancelAmount"), mapper.TxTypeStatus)
	drawbackAmount := m.format.FormatAmount(mapper.String(contract, "DrawbackAmount"), mapper.TxTypeStatus)
	record.FirstAmount = firstAmount

	record.OrderStatus = m.deriveOrderStatus(contract, firstAmount, cancelAmount)

	captured := firstAmount != nil && firstAmount.IsPositive() &&
		record.OrderStatus != mapper.OrderPreAuthCompleted &&
		record.OrderStatus != mapper.OrderPaymentPending
	record.Capture = mapper.BoolPtr(captured)
	if captured {
		record.CaptureAmount = firstAmount
		record.CaptureTime = record.TransactionTime
	}
	if record.OrderStatus == mapper.OrderCanceled {
		record.CancelTime = m.format.FormatDateTime(mapper.String(contract, "UpdateSystemDate"), mapper.TxTypeStatus)
	}
	if drawbackAmount != nil && drawbackAmount.IsPositive() {
		record.RefundTime = m.format.FormatDateTime(mapper.String(contract, "UpdateSystemDate"), mapper.TxTypeStatus)
	}
	return record, nil
}

// MapRefundResponse maps a drawback result
func (m *KuveytMapper) MapRefundResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeRefund), nil
}

// MapCancelResponse maps a sale-reversal result
func (m *KuveytMapper) MapCancelResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeCancel), nil
}

// MapOrderHistoryResponse is not offered by KuveytTürk
func (m *KuveytMapper) MapOrderHistoryResponse(mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	return nil, fmt.Errorf("kuveyt: order history: %w", mapper.ErrNotImplemented)
}

// MapHistoryResponse is not offered by KuveytTürk
func (m *KuveytMapper) MapHistoryResponse(mapper.RawMap) (*mapper.HistoryRecord, error) {
	return nil, fmt.Errorf("kuveyt: history: %w", mapper.ErrNotImplemented)
}

// Is3DAuthSuccess reports whether the enrollment produced a usable MD
func (m *KuveytMapper) Is3DAuthSuccess(md string) bool {
	return md != ""
}

// ExtractMDStatus pulls the MD token out of the enrollment callback
func (m *KuveytMapper) ExtractMDStatus(raw mapper.RawMap) string {
	return mapper.String(mapper.SubMap(raw, "AuthenticationResponse"), "MD")
}

func (m *KuveytMapper) mapFollowUp(raw mapper.RawMap, txType mapper.TxType) *mapper.TransactionRecord {
	record, _ := m.MapPaymentResponse(raw, txType, mapper.Order{})
	record.TransactionType = txType
	return record
}

func (m *KuveytMapper) deriveOrderStatus(contract mapper.RawMap, firstAmount, cancelAmount *decimal.Decimal) mapper.OrderStatus {
	status := mapper.String(contract, "OrderStatus")
	switch status {
	case "1":
		if cancelAmount != nil && firstAmount != nil && cancelAmount.IsPositive() && cancelAmount.Equal(*firstAmount) {
			return mapper.OrderCanceled
		}
		if firstAmount == nil || !firstAmount.IsPositive() {
			return mapper.OrderPreAuthCompleted
		}
		return mapper.OrderPaymentCompleted
	case "4":
		return mapper.OrderPreAuthCompleted
	case "5":
		return mapper.OrderPaymentPending
	case "6":
		return mapper.OrderCanceled
	default:
		m.logger.Warn(fmt.Sprintf("kuveyt: unrecognized order status %q", status), map[string]any{"status": status})
		return mapper.OrderStatus(status)
	}
}

func (m *KuveytMapper) classify(code string) *mapper.StatusDetail {
	if detail := statusCodes.Detail(code); detail != nil {
		return detail
	}
	if code != "" {
		m.logger.Warn(fmt.Sprintf("kuveyt: unrecognized response code %q", code), map[string]any{"code": code})
	}
	return nil
}

// orderContract digs out GetMerchantOrderDetailResult.Value.OrderContract,
// which sometimes arrives as a single-element list
func orderContract(raw mapper.RawMap) mapper.RawMap {
	value := mapper.SubMap(mapper.SubMap(raw, "GetMerchantOrderDetailResult"), "Value")
	if contracts := mapper.Slice(value, "OrderContract"); len(contracts) > 0 {
		return contracts[0]
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
