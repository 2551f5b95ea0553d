// Package estpos normalizes responses of the Payten EST (Asseco) gateway
// family used by İş Bankası, Akbank, Ziraat and several other Turkish banks.
//
// EST signals success with ProcReturnCode "00" everywhere and mirrors it in
// the textual Response field ("Approved"). The reporting endpoints answer
// through a flat Extra block whose field names repeat with a numeric suffix
// for recurring schedules, and the order-history endpoint packs each leg of
// an order into a tab-separated TRX_n blob.
package estpos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vposmap/vposmap/mapper"
)

const (
	codeApproved = "00"

	mdStatusFull = "1"
)

// statusCodes maps EST return and error codes to canonical status details.
// CORE-prefixed codes arrive in Extra.ERRORCODE rather than ProcReturnCode.
var statusCodes = mapper.CodeTable{
	"00":        mapper.DetailApproved,
	"05":        mapper.DetailReject,
	"12":        mapper.DetailInvalidTransaction,
	"51":        mapper.DetailReject,
	"54":        mapper.DetailInvalidTransaction,
	"99":        mapper.DetailGeneralError,
	"CORE-2008": mapper.DetailTransactionNotFound,
	"CORE-2508": mapper.DetailInvalidTransaction,
}

// transStats maps the reporting TRANS_STAT codes to canonical order states.
// "A" is an open authorization and upgrades to PAYMENT_COMPLETED once a
// capture amount shows up.
var transStats = map[string]mapper.OrderStatus{
	"PN":  mapper.OrderPaymentPending,
	"A":   mapper.OrderPreAuthCompleted,
	"C":   mapper.OrderPaymentCompleted,
	"S":   mapper.OrderPaymentCompleted,
	"V":   mapper.OrderCanceled,
	"D":   mapper.OrderError,
	"ERR": mapper.OrderError,
}

// mdStatusSettles lists the md statuses that still settle on the 3D-Pay and
// 3D-Host models. The full 3-D model accepts only "1".
var mdStatusSettles = map[string]bool{"1": true, "2": true, "3": true, "4": true}

// EstPosMapper implements mapper.ResponseMapper for the EST family
type EstPosMapper struct {
	values mapper.ValueMapper
	format mapper.ValueFormatter
	logger mapper.Logger
}

// NewMapper creates an EST response mapper with the package's own
// enumeration tables and formatters
func NewMapper() mapper.ResponseMapper {
	return NewMapperWith(Values{}, Formatter{}, mapper.NopLogger{})
}

// NewMapperWith creates an EST response mapper with custom collaborators
func NewMapperWith(values mapper.ValueMapper, format mapper.ValueFormatter, logger mapper.Logger) mapper.ResponseMapper {
	return &EstPosMapper{values: values, format: format, logger: logger}
}

// MapPaymentResponse maps a synchronous (non 3-D) payment result
func (m *EstPosMapper) MapPaymentResponse(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	procCode := mapper.String(raw, "ProcReturnCode")
	extra := mapper.SubMap(raw, "Extra")

	record := &mapper.TransactionRecord{
		OrderID:         mapper.String(raw, "OrderId"),
		GroupID:         mapper.String(raw, "GroupId"),
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
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "AuthCode")
		record.RefRetNum = mapper.OptString(raw, "HostRefNum")
		record.BatchNum = mapper.OptString(extra, "SETTLEID")
		record.TransactionTime = m.format.FormatDateTime(mapper.String(extra, "TRXDATE"), txType)
		return record, nil
	}

	record.StatusDetail = m.classify(procCode, mapper.String(extra, "ERRORCODE"))
	record.ErrorCode = firstNonNil(mapper.OptString(extra, "ERRORCODE"), mapper.OptString(raw, "ProcReturnCode"))
	record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
	return record, nil
}

// Map3DPaymentData merges the MPI callback with the backend provision
// result. The backend payload is empty when authentication failed and the
// provision request was never sent; the md outcome then decides everything.
func (m *EstPosMapper) Map3DPaymentData(threeDRaw, paymentRaw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	mdStatus := m.ExtractMDStatus(threeDRaw)
	security := securityFromMDStatus(mdStatus)

	if m.Is3DAuthSuccess(mdStatus) && len(paymentRaw) > 0 {
		record, err := m.MapPaymentResponse(paymentRaw, txType, order)
		if err != nil {
			return nil, err
		}
		record.PaymentModel = mapper.Model3D
		record.TransactionSecurity = &security
		record.MdStatus = mapper.OptString(threeDRaw, "mdStatus")
		record.MdErrorMessage = mapper.OptString(threeDRaw, "mdErrorMsg")
		record.Eci = mapper.OptString(threeDRaw, "eci")
		record.Cavv = mapper.OptString(threeDRaw, "cavv")
		record.MaskedNumber = mapper.OptString(threeDRaw, "maskedCreditCard")
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
		MdStatus:            mapper.OptString(threeDRaw, "mdStatus"),
		MdErrorMessage:      mapper.OptString(threeDRaw, "mdErrorMsg"),
		Eci:                 mapper.OptString(threeDRaw, "eci"),
		Cavv:                mapper.OptString(threeDRaw, "cavv"),
		MaskedNumber:        mapper.OptString(threeDRaw, "maskedCreditCard"),
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
func (m *EstPosMapper) Map3DPayResponseData(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	return m.map3DCallback(raw, txType, order, mapper.Model3DPay), nil
}

// Map3DHostResponseData maps a hosted-page callback, which is the final result
func (m *EstPosMapper) Map3DHostResponseData(raw mapper.RawMap, txType mapper.TxType, order mapper.Order) (*mapper.TransactionRecord, error) {
	return m.map3DCallback(raw, txType, order, mapper.Model3DHost), nil
}

// map3DCallback maps the flattened form-encoded callback EST posts back on
// the pay and host models. Field names differ from the backend payload:
// lowercase keys, the order id in "oid" and the Extra block flattened into
// dotted keys.
func (m *EstPosMapper) map3DCallback(raw mapper.RawMap, txType mapper.TxType, order mapper.Order, model mapper.PaymentModel) *mapper.TransactionRecord {
	mdStatus := m.ExtractMDStatus(raw)
	procCode := mapper.String(raw, "ProcReturnCode")
	security := securityFromMDStatus(mdStatus)
	settles := mdStatusSettles[mdStatus]

	record := &mapper.TransactionRecord{
		OrderID:             mapper.String(raw, "oid"),
		TransactionID:       mapper.String(raw, "TransId"),
		TransactionType:     txType,
		PaymentModel:        model,
		TransactionSecurity: &security,
		Status:              mapper.StatusDeclined,
		ProcReturnCode:      mapper.OptString(raw, "ProcReturnCode"),
		MdStatus:            mapper.OptString(raw, "mdStatus"),
		MdErrorMessage:      mapper.OptString(raw, "mdErrorMsg"),
		Eci:                 mapper.OptString(raw, "eci"),
		Cavv:                mapper.OptString(raw, "cavv"),
		MaskedNumber:        mapper.OptString(raw, "maskedCreditCard"),
		Currency:            order.Currency,
		All:                 raw,
		ThreeDAll:           raw,
	}
	if c := m.values.MapCurrency(mapper.String(raw, "currency"), txType); c != "" {
		record.Currency = c
	}
	if amount := m.format.FormatAmount(mapper.String(raw, "amount"), txType); amount != nil {
		record.Amount = amount
	} else if !order.Amount.IsZero() {
		amount := order.Amount
		record.Amount = &amount
	}
	record.InstallmentCount = m.format.FormatInstallment(mapper.String(raw, "taksit"), txType)

	// hosted-page callbacks omit ProcReturnCode unless the bank relays a
	// failure, so the host model approves on the settled mdStatus alone
	okCode := procCode == codeApproved
	if model == mapper.Model3DHost {
		okCode = procCode == "" || procCode == codeApproved
	}

	if settles && okCode {
		record.Status = mapper.StatusApproved
		record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
		record.AuthCode = mapper.OptString(raw, "AuthCode")
		record.RefRetNum = mapper.OptString(raw, "HostRefNum")
		record.TransactionTime = m.format.FormatDateTime(mapper.String(raw, "EXTRA.TRXDATE"), txType)
		return record
	}

	if !settles {
		record.StatusDetail = mapper.DetailPtr(mapper.DetailReject)
	} else {
		record.StatusDetail = m.classify(procCode, "")
	}
	record.ErrorCode = mapper.OptString(raw, "ProcReturnCode")
	record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
	return record
}

// MapStatusResponse maps a single-order inquiry. A RECURRINGCOUNT in the
// Extra block switches to the recurring shape, where every field name
// repeats with a 1-based numeric suffix per scheduled leg.
func (m *EstPosMapper) MapStatusResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	procCode := mapper.String(raw, "ProcReturnCode")
	extra := mapper.SubMap(raw, "Extra")

	if procCode != codeApproved {
		record := &mapper.OrderStatusRecord{}
		record.Status = mapper.StatusDeclined
		record.OrderStatus = mapper.OrderError
		record.ProcReturnCode = mapper.OptString(raw, "ProcReturnCode")
		record.StatusDetail = m.classify(procCode, mapper.String(extra, "ERRORCODE"))
		record.ErrorCode = firstNonNil(mapper.OptString(extra, "ERRORCODE"), mapper.OptString(raw, "ProcReturnCode"))
		record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
		record.All = raw
		return record, nil
	}

	if count := recurringCount(extra); count > 0 {
		return m.mapRecurringStatus(raw, extra, count), nil
	}

	leg := m.statusLegFromExtra(extra, "")
	record := &mapper.OrderStatusRecord{TransactionRecord: leg}
	record.ProcReturnCode = mapper.OptString(raw, "ProcReturnCode")
	record.All = raw
	return record, nil
}

func (m *EstPosMapper) mapRecurringStatus(raw, extra mapper.RawMap, count int) *mapper.OrderStatusRecord {
	recurringID := mapper.String(extra, "RECURRINGID")

	legs := make([]mapper.TransactionRecord, 0, count)
	for i := 1; i <= count; i++ {
		suffix := "_" + strconv.Itoa(i)
		if mapper.String(extra, "TRANS_STAT"+suffix) == "" {
			continue
		}
		leg := m.statusLegFromExtra(extra, suffix)
		leg.RecurringID = recurringID
		leg.RecurringOrder = mapper.IntPtr(i)
		legs = append(legs, leg)
	}
	mapper.SortTransactionsByTime(legs)

	record := &mapper.OrderStatusRecord{Transactions: legs}
	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.RecurringID = recurringID
	record.ProcReturnCode = mapper.OptString(raw, "ProcReturnCode")
	if len(legs) > 0 {
		record.OrderID = legs[0].OrderID
		record.OrderStatus = legs[len(legs)-1].OrderStatus
	}
	record.All = raw
	return record
}

// MapRefundResponse maps a refund result
func (m *EstPosMapper) MapRefundResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeRefund), nil
}

// MapCancelResponse maps a void result
func (m *EstPosMapper) MapCancelResponse(raw mapper.RawMap) (*mapper.TransactionRecord, error) {
	return m.mapFollowUp(raw, mapper.TxTypeCancel), nil
}

// MapOrderHistoryResponse maps every leg of one order, ascending by time.
// Legs arrive packed in tab-separated TRX_n blobs inside Extra.
func (m *EstPosMapper) MapOrderHistoryResponse(raw mapper.RawMap) (*mapper.OrderStatusRecord, error) {
	procCode := mapper.String(raw, "ProcReturnCode")
	orderID := mapper.String(raw, "OrderId")

	record := &mapper.OrderStatusRecord{}
	record.OrderID = orderID
	record.ProcReturnCode = mapper.OptString(raw, "ProcReturnCode")
	record.All = raw

	if procCode != codeApproved {
		record.Status = mapper.StatusDeclined
		record.OrderStatus = mapper.OrderError
		record.StatusDetail = m.classify(procCode, "")
		record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
		record.Transactions = []mapper.TransactionRecord{}
		return record, nil
	}

	legs := m.mapPackedLegs(mapper.SubMap(raw, "Extra"), orderID)
	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.Transactions = legs
	if len(legs) > 0 {
		record.OrderStatus = legs[len(legs)-1].OrderStatus
	}
	return record, nil
}

// MapHistoryResponse maps a date-range listing, which reuses the packed
// TRX_n blob shape of the order-history endpoint
func (m *EstPosMapper) MapHistoryResponse(raw mapper.RawMap) (*mapper.HistoryRecord, error) {
	legs := m.mapPackedLegs(mapper.SubMap(raw, "Extra"), "")
	return &mapper.HistoryRecord{Transactions: legs, TransCount: len(legs)}, nil
}

// Is3DAuthSuccess reports whether mdStatus completes 3-D authentication on
// the full 3-D model. The pay and host models also settle on "2".."4"; that
// decision lives in their own mapping paths.
func (m *EstPosMapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == mdStatusFull
}

// ExtractMDStatus pulls mdStatus out of an MPI callback payload
func (m *EstPosMapper) ExtractMDStatus(raw mapper.RawMap) string {
	return mapper.String(raw, "mdStatus")
}

// historyLeg is one decoded TRX_n blob. Decoding is kept apart from
// canonical mapping so the bank's packed format stays independently
// testable.
type historyLeg struct {
	chargeType    string
	transStat     string
	transID       string
	authCode      string
	hostRefNum    string
	authTime      string
	captureTime   string
	firstAmount   string
	captureAmount string
	pan           string
}

// decodeHistoryLeg splits one TRX_n blob into its positional fields:
//
//	0 CHARGE_TYPE_CD  1 TRANS_STAT   2 TRANS_ID        3 AUTH_CODE  4 HOST_REF_NUM
//	5 AUTH_DTTM       6 CAPTURE_DTTM 7 ORIG_TRANS_AMT  8 CAPTURE_AMT  9 PAN
//
// Missing trailing fields are tolerated; a blank blob is unparsable.
func decodeHistoryLeg(blob string) (historyLeg, bool) {
	if strings.TrimSpace(blob) == "" {
		return historyLeg{}, false
	}
	fields := strings.Split(blob, "\t")
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	return historyLeg{
		chargeType:    get(0),
		transStat:     get(1),
		transID:       get(2),
		authCode:      get(3),
		hostRefNum:    get(4),
		authTime:      get(5),
		captureTime:   get(6),
		firstAmount:   get(7),
		captureAmount: get(8),
		pan:           get(9),
	}, true
}

func (leg historyLeg) asExtra() mapper.RawMap {
	return mapper.RawMap{
		"CHARGE_TYPE_CD": leg.chargeType,
		"TRANS_STAT":     leg.transStat,
		"TRANS_ID":       leg.transID,
		"AUTH_CODE":      leg.authCode,
		"HOST_REF_NUM":   leg.hostRefNum,
		"AUTH_DTTM":      leg.authTime,
		"CAPTURE_DTTM":   leg.captureTime,
		"ORIG_TRANS_AMT": leg.firstAmount,
		"CAPTURE_AMT":    leg.captureAmount,
		"PAN":            leg.pan,
	}
}

func (m *EstPosMapper) mapPackedLegs(extra mapper.RawMap, orderID string) []mapper.TransactionRecord {
	count, _ := strconv.Atoi(mapper.String(extra, "TRXCOUNT"))

	legs := make([]mapper.TransactionRecord, 0, count)
	for i := 1; ; i++ {
		key := "TRX_" + strconv.Itoa(i)
		if _, exists := extra[key]; !exists {
			break
		}
		decoded, ok := decodeHistoryLeg(mapper.String(extra, key))
		if !ok {
			m.logger.Debug("estpos: skipping unparsable history blob", map[string]any{"field": key})
			continue
		}
		leg := m.statusLegFromExtra(decoded.asExtra(), "")
		leg.OrderID = orderID
		legs = append(legs, leg)
	}
	mapper.SortTransactionsByTime(legs)
	return legs
}

// statusLegFromExtra maps one reporting leg out of an Extra block. suffix is
// "" for plain inquiries and "_<n>" for recurring schedule legs.
func (m *EstPosMapper) statusLegFromExtra(extra mapper.RawMap, suffix string) mapper.TransactionRecord {
	get := func(key string) string { return mapper.String(extra, key+suffix) }
	opt := func(key string) *string { return mapper.OptString(extra, key+suffix) }

	transStat := get("TRANS_STAT")
	txType := m.values.MapTxType(get("CHARGE_TYPE_CD"))

	record := mapper.TransactionRecord{
		OrderID:         get("ORD_ID"),
		TransactionID:   get("TRANS_ID"),
		TransactionType: txType,
		AuthCode:        opt("AUTH_CODE"),
		RefRetNum:       opt("HOST_REF_NUM"),
		MaskedNumber:    opt("PAN"),
		TxStatus:        transStat,
	}

	record.FirstAmount = m.format.FormatAmount(get("ORIG_TRANS_AMT"), txType)
	captureAmount := m.format.FormatAmount(get("CAPTURE_AMT"), txType)
	captured := captureAmount != nil && captureAmount.IsPositive()
	if captured {
		record.CaptureAmount = captureAmount
		record.CaptureTime = m.format.FormatDateTime(get("CAPTURE_DTTM"), txType)
	}
	record.Capture = mapper.BoolPtr(captured)

	orderStatus, known := transStats[transStat]
	if !known {
		if transStat != "" {
			m.logger.Warn(fmt.Sprintf("estpos: unrecognized TRANS_STAT %q", transStat), map[string]any{"trans_stat": transStat})
		}
		orderStatus = mapper.OrderStatus(transStat)
	}
	if orderStatus == mapper.OrderPreAuthCompleted && captured {
		orderStatus = mapper.OrderPaymentCompleted
	}
	record.OrderStatus = orderStatus

	if orderStatus == mapper.OrderError {
		record.Status = mapper.StatusDeclined
		return record
	}

	record.Status = mapper.StatusApproved
	record.StatusDetail = mapper.DetailPtr(mapper.DetailApproved)
	record.TransactionTime = m.format.FormatDateTime(get("AUTH_DTTM"), txType)
	if orderStatus == mapper.OrderCanceled {
		record.CancelTime = m.format.FormatDateTime(get("VOID_DTTM"), txType)
	}
	return record
}

// mapFollowUp maps refund and void results, which reuse the payment shape
func (m *EstPosMapper) mapFollowUp(raw mapper.RawMap, txType mapper.TxType) *mapper.TransactionRecord {
	procCode := mapper.String(raw, "ProcReturnCode")
	extra := mapper.SubMap(raw, "Extra")

	record := &mapper.TransactionRecord{
		OrderID:         mapper.String(raw, "OrderId"),
		GroupID:         mapper.String(raw, "GroupId"),
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
		record.TransactionTime = m.format.FormatDateTime(mapper.String(extra, "TRXDATE"), txType)
		return record
	}

	record.StatusDetail = m.classify(procCode, mapper.String(extra, "ERRORCODE"))
	record.ErrorCode = firstNonNil(mapper.OptString(extra, "ERRORCODE"), mapper.OptString(raw, "ProcReturnCode"))
	record.ErrorMessage = mapper.OptString(raw, "ErrMsg")
	return record
}

// classify resolves a status detail, preferring the more specific Extra
// error code over the generic return code
func (m *EstPosMapper) classify(procCode, errorCode string) *mapper.StatusDetail {
	if detail := statusCodes.Detail(errorCode); detail != nil {
		return detail
	}
	if detail := statusCodes.Detail(procCode); detail != nil {
		return detail
	}
	if procCode != "" {
		m.logger.Warn(fmt.Sprintf("estpos: unrecognized return code %q", procCode), map[string]any{"code": procCode, "error_code": errorCode})
	}
	return nil
}

func recurringCount(extra mapper.RawMap) int {
	count, err := strconv.Atoi(mapper.String(extra, "RECURRINGCOUNT"))
	if err != nil {
		return 0
	}
	return count
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
