package payfor

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

func testOrder() mapper.Order {
	return mapper.Order{
		ID:       "order-2024-001",
		Amount:   decimal.NewFromFloat(100.25),
		Currency: mapper.CurrencyTRY,
	}
}

func TestNewMapper(t *testing.T) {
	m := NewMapper()
	if m == nil {
		t.Fatal("NewMapper should return a non-nil mapper")
	}

	pf, ok := m.(*PayForMapper)
	if !ok {
		t.Fatal("NewMapper should return a PayForMapper instance")
	}
	if pf.values == nil || pf.format == nil || pf.logger == nil {
		t.Error("PayForMapper should have non-nil collaborators")
	}
}

func TestPayForMapper_MapPaymentResponse_Approved(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "00",
		"Response":       "Approved",
		"OrderId":        "order-2024-001",
		"TransId":        "20240301054AB",
		"AuthCode":       "P48911",
		"HostRefNum":     "230200671758",
		"PurchAmount":    "100.25",
		"Currency":       "949",
		"InsertDatetime": "01.03.2024 10:15:30",
		"ErrMsg":         "",
	}

	m := NewMapper()
	record, err := m.MapPaymentResponse(raw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusApproved {
		t.Errorf("Status = %s, want approved", record.Status)
	}
	if record.StatusDetail == nil || *record.StatusDetail != mapper.DetailApproved {
		t.Errorf("StatusDetail = %v, want approved", record.StatusDetail)
	}
	if record.AuthCode == nil || *record.AuthCode != "P48911" {
		t.Errorf("AuthCode = %v, want P48911", record.AuthCode)
	}
	if record.RefRetNum == nil || *record.RefRetNum != "230200671758" {
		t.Errorf("RefRetNum = %v, want 230200671758", record.RefRetNum)
	}
	if record.ErrorCode != nil {
		t.Errorf("ErrorCode = %v, want nil", record.ErrorCode)
	}
	if record.OrderID != "order-2024-001" {
		t.Errorf("OrderID = %s, want order-2024-001", record.OrderID)
	}
	if record.Currency != mapper.CurrencyTRY {
		t.Errorf("Currency = %s, want TRY", record.Currency)
	}
	if record.Amount == nil || !record.Amount.Equal(decimal.NewFromFloat(100.25)) {
		t.Errorf("Amount = %v, want 100.25", record.Amount)
	}
	if record.TransactionTime == nil {
		t.Error("TransactionTime should be set on an approved payment")
	}
	if !reflect.DeepEqual(record.All, raw) {
		t.Error("All should retain the raw response verbatim")
	}
}

func TestPayForMapper_MapPaymentResponse_Declined(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "99",
		"OrderId":        "order-2024-001",
		"ErrMsg":         "Kredi karti numarasi gecerli formatta degil.",
	}

	m := NewMapper()
	record, err := m.MapPaymentResponse(raw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusDeclined {
		t.Errorf("Status = %s, want declined", record.Status)
	}
	if record.ErrorMessage == nil || *record.ErrorMessage != "Kredi karti numarasi gecerli formatta degil." {
		t.Errorf("ErrorMessage = %v, want the bank's message verbatim", record.ErrorMessage)
	}
	if record.AuthCode != nil {
		t.Errorf("AuthCode = %v, want nil", record.AuthCode)
	}
	if record.TransactionTime != nil {
		t.Errorf("TransactionTime = %v, want nil on decline", record.TransactionTime)
	}
	// "99" is not in the code table: the detail stays unclassified
	if record.StatusDetail != nil {
		t.Errorf("StatusDetail = %v, want nil for an unlisted code", record.StatusDetail)
	}
}

func TestPayForMapper_MapPaymentResponse_StatusDetailTable(t *testing.T) {
	tests := []struct {
		code string
		want mapper.StatusDetail
	}{
		{code: "96", want: mapper.DetailGeneralError},
		{code: "M041", want: mapper.DetailReject},
		{code: "V004", want: mapper.DetailInvalidTransaction},
		{code: "V013", want: mapper.DetailTransactionNotFound},
		{code: "V014", want: mapper.DetailRequestRejected},
		{code: "M097", want: mapper.DetailTryAgain},
	}

	m := NewMapper()
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			raw := mapper.RawMap{"ProcReturnCode": tt.code, "ErrMsg": "İşlem reddedildi"}
			record, err := m.MapPaymentResponse(raw, mapper.TxTypePay, testOrder())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if record.Status != mapper.StatusDeclined {
				t.Errorf("Status = %s, want declined", record.Status)
			}
			if record.StatusDetail == nil || *record.StatusDetail != tt.want {
				t.Errorf("StatusDetail = %v, want %s", record.StatusDetail, tt.want)
			}
		})
	}
}

func TestPayForMapper_Map3DPaymentData_AuthFailed(t *testing.T) {
	threeDRaw := mapper.RawMap{
		"3DStatus":       "0",
		"OrderId":        "order-2024-001",
		"ProcReturnCode": "M041",
		"ErrMsg":         "3D dogrulama basarisiz",
	}

	m := NewMapper()
	record, err := m.Map3DPaymentData(threeDRaw, nil, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusDeclined {
		t.Errorf("Status = %s, want declined", record.Status)
	}
	if record.TransactionSecurity == nil || *record.TransactionSecurity != mapper.SecurityMPIFallback {
		t.Errorf("TransactionSecurity = %v, want MPI fallback", record.TransactionSecurity)
	}
	if record.TransactionTime != nil {
		t.Error("TransactionTime should be nil when 3-D authentication failed")
	}
	if record.AuthCode != nil || record.RefRetNum != nil {
		t.Error("backend-only fields should be nil when the provision call never happened")
	}
	if record.PaymentModel != mapper.Model3D {
		t.Errorf("PaymentModel = %s, want 3d even on failure", record.PaymentModel)
	}
	if record.MdErrorMessage == nil || *record.MdErrorMessage != "3D dogrulama basarisiz" {
		t.Errorf("MdErrorMessage = %v, want the MPI message", record.MdErrorMessage)
	}
	if !reflect.DeepEqual(record.ThreeDAll, threeDRaw) {
		t.Error("ThreeDAll should retain the callback payload verbatim")
	}
}

func TestPayForMapper_Map3DPaymentData_BackendDeclined(t *testing.T) {
	threeDRaw := mapper.RawMap{
		"3DStatus": "1",
		"OrderId":  "order-2024-001",
		"Eci":      "05",
		"Cavv":     "jCm0m+u/0hUfAREHBAMBcfN+pSo=",
	}
	paymentRaw := mapper.RawMap{
		"ProcReturnCode": "99",
		"OrderId":        "order-2024-001",
		"ErrMsg":         "Limit yetersiz",
	}

	m := NewMapper()
	record, err := m.Map3DPaymentData(threeDRaw, paymentRaw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// authentication passed, provision declined: the backend result wins
	if record.Status != mapper.StatusDeclined {
		t.Errorf("Status = %s, want declined", record.Status)
	}
	if record.TransactionSecurity == nil || *record.TransactionSecurity != mapper.SecurityFull {
		t.Errorf("TransactionSecurity = %v, want Full 3D Secure", record.TransactionSecurity)
	}
	if record.MdStatus == nil || *record.MdStatus != "1" {
		t.Errorf("MdStatus = %v, want 1", record.MdStatus)
	}
	if record.Eci == nil || *record.Eci != "05" {
		t.Errorf("Eci = %v, want 05", record.Eci)
	}
	if record.ErrorMessage == nil || *record.ErrorMessage != "Limit yetersiz" {
		t.Errorf("ErrorMessage = %v, want the provision failure", record.ErrorMessage)
	}
	if !reflect.DeepEqual(record.All, paymentRaw) || !reflect.DeepEqual(record.ThreeDAll, threeDRaw) {
		t.Error("All/ThreeDAll should retain both payloads verbatim")
	}
}

func TestPayForMapper_Map3DPaymentData_Approved(t *testing.T) {
	threeDRaw := mapper.RawMap{"3DStatus": "1", "OrderId": "order-2024-001"}
	paymentRaw := mapper.RawMap{
		"ProcReturnCode": "00",
		"OrderId":        "order-2024-001",
		"TransId":        "20240301054AB",
		"AuthCode":       "S03411",
		"HostRefNum":     "406508233581",
		"InsertDatetime": "01.03.2024 11:00:00",
	}

	m := NewMapper()
	record, err := m.Map3DPaymentData(threeDRaw, paymentRaw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusApproved {
		t.Errorf("Status = %s, want approved", record.Status)
	}
	if record.PaymentModel != mapper.Model3D {
		t.Errorf("PaymentModel = %s, want 3d", record.PaymentModel)
	}
	if record.TransactionSecurity == nil || *record.TransactionSecurity != mapper.SecurityFull {
		t.Errorf("TransactionSecurity = %v, want Full 3D Secure", record.TransactionSecurity)
	}
	if record.TransactionTime == nil {
		t.Error("TransactionTime should be set on an approved 3-D payment")
	}
}

func TestPayForMapper_Map3DPayResponseData(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "00",
		"3DStatus":       "2",
		"OrderId":        "order-2024-001",
		"AuthCode":       "S00221",
		"InsertDatetime": "01.03.2024 12:00:00",
	}

	m := NewMapper()
	record, err := m.Map3DPayResponseData(raw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusApproved {
		t.Errorf("Status = %s, want approved", record.Status)
	}
	if record.PaymentModel != mapper.Model3DPay {
		t.Errorf("PaymentModel = %s, want 3d_pay", record.PaymentModel)
	}
	// 3DStatus "2" settles as half secure on the pay model
	if record.TransactionSecurity == nil || *record.TransactionSecurity != mapper.SecurityHalf {
		t.Errorf("TransactionSecurity = %v, want Half 3D Secure", record.TransactionSecurity)
	}
}

func TestPayForMapper_MapStatusResponse(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "00",
		"OrderId":        "order-2024-001",
		"TransId":        "20240301054AB",
		"TxnType":        "Auth",
		"SecureType":     "NonSecure",
		"PurchAmount":    "100.25",
		"Currency":       "949",
		"AuthCode":       "P48911",
		"HostRefNum":     "230200671758",
		"MaskedPan":      "415565******6111",
		"InsertDatetime": "01.03.2024 10:15:30",
	}

	m := NewMapper()
	record, err := m.MapStatusResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.OrderStatus != mapper.OrderPaymentCompleted {
		t.Errorf("OrderStatus = %s, want PAYMENT_COMPLETED", record.OrderStatus)
	}
	if record.Capture == nil || !*record.Capture {
		t.Error("Capture should be true for a captured sale")
	}
	if record.CaptureAmount == nil || !record.CaptureAmount.Equal(decimal.NewFromFloat(100.25)) {
		t.Errorf("CaptureAmount = %v, want 100.25", record.CaptureAmount)
	}
	if record.MaskedNumber == nil || *record.MaskedNumber != "415565******6111" {
		t.Errorf("MaskedNumber = %v, want the masked pan", record.MaskedNumber)
	}
	if record.TransactionType != mapper.TxTypePay {
		t.Errorf("TransactionType = %s, want pay", record.TransactionType)
	}
}

func TestPayForMapper_MapStatusResponse_Voided(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "00",
		"OrderId":        "order-2024-001",
		"TxnType":        "Auth",
		"PurchAmount":    "100.25",
		"InsertDatetime": "01.03.2024 10:15:30",
		"VoidDatetime":   "01.03.2024 16:45:00",
	}

	m := NewMapper()
	record, err := m.MapStatusResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.OrderStatus != mapper.OrderCanceled {
		t.Errorf("OrderStatus = %s, want CANCELED", record.OrderStatus)
	}
	if record.CancelTime == nil {
		t.Error("CancelTime should be parsed from VoidDatetime")
	}
}

func TestPayForMapper_MapStatusResponse_NotFound(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "V013",
		"ErrMsg":         "Seçili İşlem Bulunamadı!",
	}

	m := NewMapper()
	record, err := m.MapStatusResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusDeclined {
		t.Errorf("Status = %s, want declined", record.Status)
	}
	if record.StatusDetail == nil || *record.StatusDetail != mapper.DetailTransactionNotFound {
		t.Errorf("StatusDetail = %v, want transaction_not_found", record.StatusDetail)
	}
	if record.OrderStatus != mapper.OrderError {
		t.Errorf("OrderStatus = %s, want ERROR", record.OrderStatus)
	}
}

func TestPayForMapper_MapCancelResponse_NotFound(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "V013",
		"ErrMsg":         "Seçili İşlem Bulunamadı!",
	}

	m := NewMapper()
	record, err := m.MapCancelResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusDeclined {
		t.Errorf("Status = %s, want declined", record.Status)
	}
	if record.StatusDetail == nil || *record.StatusDetail != mapper.DetailTransactionNotFound {
		t.Errorf("StatusDetail = %v, want transaction_not_found", record.StatusDetail)
	}
}

func TestPayForMapper_MapRefundResponse_Approved(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "00",
		"OrderId":        "order-2024-001",
		"AuthCode":       "R10221",
		"InsertDatetime": "02.03.2024 09:00:00",
	}

	m := NewMapper()
	record, err := m.MapRefundResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != mapper.StatusApproved {
		t.Errorf("Status = %s, want approved", record.Status)
	}
	if record.TransactionType != mapper.TxTypeRefund {
		t.Errorf("TransactionType = %s, want refund", record.TransactionType)
	}
}

func TestPayForMapper_MapOrderHistoryResponse_Sorted(t *testing.T) {
	raw := mapper.RawMap{
		"PaymentFacadeHistory": map[string]any{
			"txnHistory": []any{
				map[string]any{
					"ProcReturnCode": "00",
					"OrderId":        "order-2024-001",
					"TxnType":        "Void",
					"PurchAmount":    "100.25",
					"InsertDatetime": "01.03.2024 16:45:00",
				},
				map[string]any{
					"ProcReturnCode": "00",
					"OrderId":        "order-2024-001",
					"TxnType":        "Auth",
					"PurchAmount":    "100.25",
					"InsertDatetime": "01.03.2024 10:15:30",
				},
			},
		},
	}

	m := NewMapper()
	record, err := m.MapOrderHistoryResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(record.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(record.Transactions))
	}
	first, second := record.Transactions[0], record.Transactions[1]
	if first.TransactionTime == nil || second.TransactionTime == nil {
		t.Fatal("both legs should carry a transaction time")
	}
	if !first.TransactionTime.Before(*second.TransactionTime) {
		t.Error("legs should be sorted ascending by transaction time")
	}
	if first.TransactionType != mapper.TxTypePay || second.TransactionType != mapper.TxTypeCancel {
		t.Errorf("leg types = %s, %s; want pay then cancel", first.TransactionType, second.TransactionType)
	}
	// the latest leg carries the current order state
	if record.OrderStatus != mapper.OrderCanceled {
		t.Errorf("OrderStatus = %s, want CANCELED", record.OrderStatus)
	}
}

func TestPayForMapper_MapHistoryResponse_Empty(t *testing.T) {
	m := NewMapper()

	for _, raw := range []mapper.RawMap{
		nil,
		{},
		{"PaymentFacadeHistory": map[string]any{}},
		{"PaymentFacadeHistory": map[string]any{"txnHistory": []any{}}},
	} {
		record, err := m.MapHistoryResponse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(record.Transactions) != 0 {
			t.Errorf("got %d transactions, want 0", len(record.Transactions))
		}
		if record.TransCount != 0 {
			t.Errorf("TransCount = %d, want 0", record.TransCount)
		}
	}
}

func TestPayForMapper_Is3DAuthSuccess(t *testing.T) {
	m := NewMapper()

	if !m.Is3DAuthSuccess("1") {
		t.Error("3DStatus 1 should pass")
	}
	for _, mdStatus := range []string{"0", "2", "3", "4", "", "9"} {
		if m.Is3DAuthSuccess(mdStatus) {
			t.Errorf("3DStatus %q should not pass full 3-D authentication", mdStatus)
		}
	}
}

func TestPayForMapper_Idempotence(t *testing.T) {
	raw := mapper.RawMap{
		"ProcReturnCode": "00",
		"OrderId":        "order-2024-001",
		"AuthCode":       "P48911",
		"PurchAmount":    "100.25",
		"InsertDatetime": "01.03.2024 10:15:30",
	}

	m := NewMapper()
	first, err := m.MapPaymentResponse(raw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.MapPaymentResponse(raw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("mapping the same input twice should yield identical records")
	}
}
