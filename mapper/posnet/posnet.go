// Package posnet normalizes YapıKredi PosNet gateway responses.
//
// PosNet answers with a flat envelope whose approved flag is "1" for a
// fresh approval and "2" for a repeat of an already-approved request.
// Failures carry respCode/respText. Amounts travel in kuruş, dates in a
// packed yymmddHHiiss form, and the 3-D flow resolves merchant data
// through an oosResolveMerchantDataResponse envelope before the backend
// provision call. PosNet has no hosted-page flow and no date-range
// history endpoint.
package posnet

import (
	"fmt"

	"github.com/vposmap/vposmap/mapper"
)

// statusCodes maps PosNet respCode values to canonical details. The code
// space is sparse and undocumented beyond these; anything unlisted stays
// unclassified.
var statusCodes = mapper.CodeTable{
	"0001": mapper.DetailReject,
	"0127": mapper.DetailInvalidTransaction,
	"0148": mapper.DetailTransactionNotFound,
	"0150": mapper.DetailTransactionNotFound,
	"0434": mapper.DetailReject,
}

// PosNetMapper implements mapper.ResponseMapper for PosNet
type PosNetMapper struct {
	values mapper.ValueMapper
	format mapper.ValueFormatter
	logger mapper.Logger
}

// NewMapper creates a PosNet response mapper with the package's own
// enumeration tables and formatters
func NewMapper() mapper.ResponseMapper {
	return NewMapperWith(Values{}, Formatter{}, mapper.NopLogger{})
}

// NewMapperWith creates a PosNet response mapper with custom collaborators
func NewMapperWith(values mapper.ValueMapper, format mapper.ValueFormatter, logger mapper.Logger) mapper.ResponseMapper {
	return &PosNetMapper{values: values, format: format, logger: logger}
}

func approved(raw mapper.RawMap) bool {
	switch mapper.String(raw, "approved") {
	case "1", "2":
		return true
	default:
		return false
	}
}

// MapPaymentResponse maps a synchronous (non 3-D) payment result. PosNet
// does not echo the order id back, so it always comes from the order
// context.
func (m *PosNetMapper) MapPaymentResponse(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	record := &mapper.TransactionRecord{
		OrderID:         order.ID,
		TransactionType: txType,
		PaymentModel:    mapper.ModelRegular,
		Status:          mapper.StatusDeclined,
		ProcReturnCode:  mapper.OptString(raw, "approved"),
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

	if approved(raw) {
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "authCode")
		record.RefRetNum = mapper.OptString(raw, "hostlogkey")
		record.TransactionTime = m.format.FormatDateTime(mapper.String(raw, "tranDate"), txType)
		return record, nil
	}

	record.StatusDetail = m.classify(mapper.String(raw, "respCode"))
	record.ErrorCode = mapper.OptString(raw, "respCode")
	record.ErrorMessage = mapper.OptString(raw, "respText")
	return record, nil
}

// Map3DPaymentData merges the OOS merchant-data resolution with the
// backend provision result
func (m *PosNetMapper) Map3DPaymentData(threeDRaw, paymentRaw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	resolved := resolveBlock(threeDRaw)
	mdStatus := m.ExtractMDStatus(threeDRaw)
	security := securityFromMDStatus(mdStatus)

	if m.Is3DAuthSuccess(mdStatus) && len(paymentRaw) > 0 {
		record, err := m.MapPaymentResponse(paymentRaw, txType, order)
		if err != nil {
			return nil, err
		}
		record.PaymentModel = mapper.Model3D
		record.TransactionSecurity = &security
		record.MdStatus = mapper.OptString(resolved, "mdStatus")
		record.MdErrorMessage = mapper.OptString(resolved, "mdErrorMessage")
		if record.Amount == nil {
			record.Amount = m.format.FormatAmount(mapper.String(resolved, "amount"), txType)
		}
		record.ThreeDAll = threeDRaw
		return record, nil
	}

	record := &mapper.TransactionRecord{
		OrderID:             order.ID,
		TransactionType:     txType,
		PaymentModel:        mapper.Model3D,
		TransactionSecurity: &security,
		Status:              mapper.StatusDeclined,
		StatusDetail:        mapper.DetailPtr(mapper.DetailReject),
		MdStatus:            mapper.OptString(resolved, "mdStatus"),
		MdErrorMessage:      mapper.OptString(resolved, "mdErrorMessage"),
		Currency:            order.Currency,
		All:                 paymentRaw,
		ThreeDAll:           threeDRaw,
	}
	if amount := m.format.FormatAmount(mapper.String(resolved, "amount"), txType); amount != nil {
		record.Amount = amount
	} else if !order.Amount.IsZero() {
		amount := order.Amount
		record.Amount = &amount
	}
	return record, nil
}

// Map3DPayResponseData is not offered by PosNet
func (m *PosNetMapper) Map3DPayResponseData(mapper.RawMap, mapper.TxType, mapper.Order) (*mapper.TransactionRecord, error) {
	return nil, fmt.Errorf("posnet: 3d pay: %w", mapper.ErrNotImplemented)
}

// Map3DHostResponseData is not offered by PosNet
func (m *PosNetMapper) Map3DHostResponseData(mapper.RawMap, mapper.TxType, mapper.Order) (*mapper.TransactionRecord, error) {
	return nil, fmt.Errorf("posnet: 3d host: %w", mapper.ErrNotImplemented)
}

// MapStatusResponse maps an agreement inquiry, which answers with the
// order's transaction list. The canonical order state comes from the
// newest leg.
func (m *PosNetMapper) MapStatusResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	if !approved(raw) {
		record := &mapper.OrderStatusRecord{}
		record.Status = mapper.StatusDeclined
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = m.classify(mapper.String(raw, "respCode"))
		record.ProcReturnCode = mapper.OptString(raw, "approved")
		record.ErrorCode = mapper.OptString(raw, "respCode")
		record.ErrorMessage = mapper.OptString(raw, "respText")
		record.All = raw
		return record, nil
	}

	legs := m.mapTransactionList(raw)
	if len(legs) == 0 {
		record := &mapper.OrderStatusRecord{}
		record.Status = mapper.StatusDeclined
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = mapper.DetailPtr(mapper.DetailTransactionNotFound)
		record.ProcReturnCode = mapper.OptString(raw, "approved")
		record.All = raw
		return record, nil
	}

	// the summary comes from the newest leg, which carries none of the
	// envelope-level fields
	record := &mapper.OrderStatusRecord{
		TransactionRecord: legs[len(legs)-1],
		Transactions:      legs,
	}
	record.ProcReturnCode = mapper.OptString(raw, "approved")
	record.All = raw
	return record, nil
}

// MapRefundResponse maps a return result
func (m *PosNetMapper) MapRefundResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeRefund), nil
}

// MapCancelResponse maps a reverse result
func (m *PosNetMapper) MapCancelResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeCancel), nil
}

// MapOrderHistoryResponse maps every leg of one order, ascending by time
func (m *PosNetMapper) MapOrderHistoryResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	if !approved(raw) {
		record := &mapper.OrderStatusRecord{}
		record.Status = mapper.StatusDeclined
		record.StatusDetail = m.classify(mapper.String(raw, "respCode"))
		record.ErrorCode = mapper.OptString(raw, "respCode")
		record.ErrorMessage = mapper.OptString(raw, "respText")
		record.All = raw
		return record, nil
	}

	legs := m.mapTransactionList(raw)
	record := &mapper.OrderStatusRecord{Transactions: legs}
	if len(legs) > 0 {
		record.TransactionRecord = legs[len(legs)-1]
	} else {
		record.Status = mapper.StatusDeclined
	}
	record.All = raw
	return record, nil
}

// MapHistoryResponse is not offered by PosNet
func (m *PosNetMapper) MapHistoryResponse(mapper.RawMap) (*mapper.HistoryRecord, error) {
	return nil, fmt.Errorf("posnet: history: %w", mapper.ErrNotImplemented)
}

// Is3DAuthSuccess reports whether mdStatus counts as authenticated.
// PosNet provisions on a full authentication only.
func (m *PosNetMapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == "1"
}

// ExtractMDStatus pulls mdStatus out of the OOS resolution envelope,
// falling back to the top level for pre-unwrapped payloads
func (m *PosNetMapper) ExtractMDStatus(raw mapper.RawMap) string {
	return mapper.String(resolveBlock(raw), "mdStatus")
}

func (m *PosNetMapper) mapTransactionList(raw mapper.RawMap) []mapper.TransactionRecord {
	txList := mapper.Slice(raw, "transactions")
	legs := make([]mapper.TransactionRecord, 0, len(txList))
	for _, rawLeg := range txList {
		state := mapper.String(rawLeg, "state")
		txType := m.values.MapTxType(state)
		if txType == "" {
			m.logger.Debug("posnet: skipping transaction with unknown state", map[string]any{"state": state})
			continue
		}
		legs = append(legs, m.mapTransactionLeg(rawLeg, txType))
	}
	mapper.SortTransactionsByTime(legs)
	return legs
}

func (m *PosNetMapper) mapTransactionLeg(raw mapper.RawMap, txType mapper.TxType) mapper.TransactionRecord {
	record := mapper.TransactionRecord{
		OrderID:         mapper.String(raw, "orderID"),
		TransactionType: txType,
		Status:          mapper.StatusApproved,
		StatusDetail:    mapper.DetailPtr(mapper.DetailApproved),
		AuthCode:        mapper.OptString(raw, "authCode"),
		RefRetNum:       mapper.OptString(raw, "hostlogkey"),
		Currency:        m.values.MapCurrency(mapper.String(raw, "currencyCode"), txType),
		FirstAmount:     m.format.FormatAmount(mapper.String(raw, "amount"), txType),
		TransactionTime: m.format.FormatDateTime(mapper.String(raw, "tranDate"), txType),
	}

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
		record.OrderStatus = mapper.OrderStatus(mapper.String(raw, "state"))
		record.RefundTime = record.TransactionTime
	}
	return record
}

func (m *PosNetMapper) mapFollowUp(raw mapper.RawMap, txType mapper.TxType) *mapper.TransactionRecord {
	record, _ := m.MapPaymentResponse(raw, txType, mapper.Order{})
	record.TransactionType = txType
	return record
}

func (m *PosNetMapper) classify(code string) *mapper.StatusDetail {
	if detail := statusCodes.Detail(code); detail != nil {
		return detail
	}
	if code != "" {
		m.logger.Warn(fmt.Sprintf("posnet: unrecognized resp code %q", code), map[string]any{"code": code})
	}
	return nil
}

// resolveBlock unwraps the oosResolveMerchantDataResponse envelope when
// present
func resolveBlock(raw mapper.RawMap) mapper.RawMap {
	if inner := mapper.SubMap(raw, "oosResolveMerchantDataResponse"); len(inner) > 0 {
		return inner
	}
	return raw
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
