package posnet

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/mapper"
)

func newTestMapper() mapper.ResponseMapper {
	return NewMapper()
}

func testOrder() mapper.Order {
	return mapper.Order{
		ID:       "YKB-2024-0001",
		Amount:   decimal.NewFromFloat(175.50),
		Currency: mapper.CurrencyTRY,
	}
}

func TestMapPaymentResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        mapper.RawMap
		wantStatus mapper.Status
		wantDetail *mapper.StatusDetail
	}{
		{
			name: "approved",
			raw: mapper.RawMap{
				"approved":   "1",
				"authCode":   "901477",
				"hostlogkey": "0000000002P0806031",
				"tranDate":   "240301101530",
			},
			wantStatus: mapper.StatusApproved,
			wantDetail: mapper.DetailPtr(mapper.DetailApproved),
		},
		{
			name: "repeat approval",
			raw: mapper.RawMap{
				"approved":   "2",
				"authCode":   "901477",
				"hostlogkey": "0000000002P0806031",
			},
			wantStatus: mapper.StatusApproved,
			wantDetail: mapper.DetailPtr(mapper.DetailApproved),
		},
		{
			name: "declined classified",
			raw: mapper.RawMap{
				"approved": "0",
				"respCode": "0127",
				"respText": "ORULAMA HATASI",
			},
			wantStatus: mapper.StatusDeclined,
			wantDetail: mapper.DetailPtr(mapper.DetailInvalidTransaction),
		},
		{
			name: "declined unclassified",
			raw: mapper.RawMap{
				"approved": "0",
				"respCode": "0999",
				"respText": "SISTEM HATASI",
			},
			wantStatus: mapper.StatusDeclined,
			wantDetail: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := newTestMapper().MapPaymentResponse(tt.raw, mapper.TxTypePay, testOrder())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if record.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", record.Status, tt.wantStatus)
			}
			if tt.wantDetail == nil {
				if record.StatusDetail != nil {
					t.Errorf("status detail = %q, want nil", *record.StatusDetail)
				}
			} else if record.StatusDetail == nil || *record.StatusDetail != *tt.wantDetail {
				t.Errorf("status detail = %v, want %q", record.StatusDetail, *tt.wantDetail)
			}
			if record.OrderID != "YKB-2024-0001" {
				t.Errorf("order id = %q, should come from the order context", record.OrderID)
			}
		})
	}
}

func TestMapPaymentResponse_ApprovedFields(t *testing.T) {
	raw := mapper.RawMap{
		"approved":   "1",
		"authCode":   "901477",
		"hostlogkey": "0000000002P0806031",
		"tranDate":   "240301101530",
	}

	record, err := newTestMapper().MapPaymentResponse(raw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.AuthCode == nil || *record.AuthCode != "901477" {
		t.Errorf("auth code = %v", record.AuthCode)
	}
	if record.RefRetNum == nil || *record.RefRetNum != "0000000002P0806031" {
		t.Errorf("ref ret num = %v", record.RefRetNum)
	}
	if record.Amount == nil || !record.Amount.Equal(decimal.NewFromFloat(175.50)) {
		t.Errorf("amount = %v, want 175.50", record.Amount)
	}
	want := time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)
	if record.TransactionTime == nil || !record.TransactionTime.Equal(want) {
		t.Errorf("transaction time = %v, want %v", record.TransactionTime, want)
	}
}

func TestMap3DPaymentData_AuthFailed(t *testing.T) {
	threeDRaw := mapper.RawMap{
		"oosResolveMerchantDataResponse": map[string]any{
			"mdStatus":       "0",
			"mdErrorMessage": "3-D Secure dogrulanamadi",
			"amount":         "17550",
		},
	}

	record, err := newTestMapper().Map3DPaymentData(threeDRaw, nil, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != mapper.StatusDeclined {
		t.Errorf("status = %q, want declined", record.Status)
	}
	if record.StatusDetail == nil || *record.StatusDetail != mapper.DetailReject {
		t.Errorf("status detail = %v, want reject", record.StatusDetail)
	}
	if record.TransactionSecurity == nil || *record.TransactionSecurity != mapper.SecurityMPIFallback {
		t.Errorf("security = %v, want MPI fallback", record.TransactionSecurity)
	}
	if record.Amount == nil || !record.Amount.Equal(decimal.NewFromFloat(175.50)) {
		t.Errorf("amount = %v, want 175.50 from the resolution envelope", record.Amount)
	}
	if record.TransactionTime != nil {
		t.Errorf("transaction time = %v, want nil", record.TransactionTime)
	}
	if record.ThreeDAll == nil {
		t.Error("ThreeDAll should carry the resolution payload")
	}
}

func TestMap3DPaymentData_Merged(t *testing.T) {
	threeDRaw := mapper.RawMap{
		"oosResolveMerchantDataResponse": map[string]any{
			"mdStatus": "1",
			"amount":   "17550",
		},
	}
	paymentRaw := mapper.RawMap{
		"approved":   "1",
		"authCode":   "901478",
		"hostlogkey": "0000000002P0806032",
		"tranDate":   "240301110000",
	}

	record, err := newTestMapper().Map3DPaymentData(threeDRaw, paymentRaw, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != mapper.StatusApproved {
		t.Errorf("status = %q, want approved", record.Status)
	}
	if record.TransactionSecurity == nil || *record.TransactionSecurity != mapper.SecurityFull {
		t.Errorf("security = %v, want Full 3D Secure", record.TransactionSecurity)
	}
	if record.PaymentModel != mapper.Model3D {
		t.Errorf("payment model = %q", record.PaymentModel)
	}
	if record.MdStatus == nil || *record.MdStatus != "1" {
		t.Errorf("md status = %v", record.MdStatus)
	}
	if record.AuthCode == nil || *record.AuthCode != "901478" {
		t.Errorf("auth code = %v", record.AuthCode)
	}
}

func TestMap3DPaymentData_HalfSecureNotProvisioned(t *testing.T) {
	threeDRaw := mapper.RawMap{
		"oosResolveMerchantDataResponse": map[string]any{
			"mdStatus": "2",
		},
	}

	record, err := newTestMapper().Map3DPaymentData(threeDRaw, nil, mapper.TxTypePay, testOrder())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != mapper.StatusDeclined {
		t.Errorf("status = %q, want declined", record.Status)
	}
	if record.TransactionSecurity == nil || *record.TransactionSecurity != mapper.SecurityHalf {
		t.Errorf("security = %v, want Half 3D Secure", record.TransactionSecurity)
	}
}

func TestNotImplementedOperations(t *testing.T) {
	m := newTestMapper()

	if _, err := m.Map3DPayResponseData(mapper.RawMap{}, mapper.TxTypePay, testOrder()); !errors.Is(err, mapper.ErrNotImplemented) {
		t.Errorf("3d pay err = %v, want ErrNotImplemented", err)
	}
	if _, err := m.Map3DHostResponseData(mapper.RawMap{}, mapper.TxTypePay, testOrder()); !errors.Is(err, mapper.ErrNotImplemented) {
		t.Errorf("3d host err = %v, want ErrNotImplemented", err)
	}
	if _, err := m.MapHistoryResponse(mapper.RawMap{}); !errors.Is(err, mapper.ErrNotImplemented) {
		t.Errorf("history err = %v, want ErrNotImplemented", err)
	}
}

func TestMapStatusResponse(t *testing.T) {
	raw := mapper.RawMap{
		"approved": "1",
		"transactions": []any{
			map[string]any{
				"state":        "sale",
				"orderID":      "YKB-2024-0002",
				"authCode":     "901480",
				"hostlogkey":   "0000000002P0806040",
				"amount":       "17550",
				"currencyCode": "TL",
				"tranDate":     "2024-03-01 10:15:30.500",
			},
		},
	}

	record, err := newTestMapper().MapStatusResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != mapper.StatusApproved {
		t.Errorf("status = %q, want approved", record.Status)
	}
	if record.OrderStatus != mapper.OrderPaymentCompleted {
		t.Errorf("order status = %q, want PAYMENT_COMPLETED", record.OrderStatus)
	}
	if record.Capture == nil || !*record.Capture {
		t.Error("capture should be true on a settled sale")
	}
	if record.CaptureAmount == nil || !record.CaptureAmount.Equal(decimal.NewFromFloat(175.50)) {
		t.Errorf("capture amount = %v, want 175.50", record.CaptureAmount)
	}
	if record.Currency != mapper.CurrencyTRY {
		t.Errorf("currency = %q, want TRY", record.Currency)
	}
	if len(record.Transactions) != 1 {
		t.Fatalf("got %d legs, want 1", len(record.Transactions))
	}
	if record.ProcReturnCode == nil || *record.ProcReturnCode != "1" {
		t.Errorf("proc return code = %v, want 1", record.ProcReturnCode)
	}
	if record.All == nil {
		t.Error("raw response should be preserved in All")
	}
}

func TestMapStatusResponse_Canceled(t *testing.T) {
	raw := mapper.RawMap{
		"approved": "1",
		"transactions": []any{
			map[string]any{
				"state":        "sale",
				"orderID":      "YKB-2024-0003",
				"amount":       "17550",
				"currencyCode": "TL",
				"tranDate":     "2024-03-01 10:15:30",
			},
			map[string]any{
				"state":        "reverse",
				"orderID":      "YKB-2024-0003",
				"amount":       "17550",
				"currencyCode": "TL",
				"tranDate":     "2024-03-01 16:40:00",
			},
		},
	}

	record, err := newTestMapper().MapStatusResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.OrderStatus != mapper.OrderCanceled {
		t.Errorf("order status = %q, want CANCELED", record.OrderStatus)
	}
	if record.CancelTime == nil {
		t.Error("cancel time should be set from the reverse leg")
	}
	if len(record.Transactions) != 2 {
		t.Fatalf("got %d legs, want 2", len(record.Transactions))
	}
	if record.Transactions[0].TransactionType != mapper.TxTypePay {
		t.Errorf("first leg type = %q, want pay", record.Transactions[0].TransactionType)
	}
}

func TestMapStatusResponse_NotFound(t *testing.T) {
	tests := []struct {
		name string
		raw  mapper.RawMap
	}{
		{
			name: "rejected inquiry",
			raw: mapper.RawMap{
				"approved": "0",
				"respCode": "0148",
				"respText": "KAYIT BULUNAMADI",
			},
		},
		{
			name: "empty transaction list",
			raw: mapper.RawMap{
				"approved":     "1",
				"transactions": []any{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := newTestMapper().MapStatusResponse(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if record.Status != mapper.StatusDeclined {
				t.Errorf("status = %q, want declined", record.Status)
			}
			if record.OrderStatus != mapper.OrderError {
				t.Errorf("order status = %q, want ERROR", record.OrderStatus)
			}
			if record.StatusDetail == nil || *record.StatusDetail != mapper.DetailTransactionNotFound {
				t.Errorf("status detail = %v, want transaction_not_found", record.StatusDetail)
			}
		})
	}
}

func TestMapOrderHistoryResponse_Sorted(t *testing.T) {
	raw := mapper.RawMap{
		"approved": "1",
		"transactions": []any{
			map[string]any{
				"state":        "capt",
				"orderID":      "YKB-2024-0004",
				"amount":       "17550",
				"currencyCode": "TL",
				"tranDate":     "2024-03-02 09:00:00",
			},
			map[string]any{
				"state":        "auth",
				"orderID":      "YKB-2024-0004",
				"amount":       "17550",
				"currencyCode": "TL",
				"tranDate":     "2024-03-01 10:15:30",
			},
		},
	}

	record, err := newTestMapper().MapOrderHistoryResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Transactions) != 2 {
		t.Fatalf("got %d legs, want 2", len(record.Transactions))
	}
	if record.Transactions[0].TransactionType != mapper.TxTypePreAuth {
		t.Errorf("first leg type = %q, want pre", record.Transactions[0].TransactionType)
	}
	if record.Transactions[1].TransactionType != mapper.TxTypePostAuth {
		t.Errorf("second leg type = %q, want post", record.Transactions[1].TransactionType)
	}
	if record.OrderStatus != mapper.OrderPaymentCompleted {
		t.Errorf("order status = %q, want PAYMENT_COMPLETED", record.OrderStatus)
	}
}

func TestMapOrderHistoryResponse_SkipsUnknownStates(t *testing.T) {
	raw := mapper.RawMap{
		"approved": "1",
		"transactions": []any{
			map[string]any{
				"state":    "sale",
				"orderID":  "YKB-2024-0005",
				"amount":   "5000",
				"tranDate": "2024-03-01 10:15:30",
			},
			map[string]any{
				"state":   "agreement",
				"orderID": "YKB-2024-0005",
			},
		},
	}

	record, err := newTestMapper().MapOrderHistoryResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Transactions) != 1 {
		t.Fatalf("got %d legs, want 1", len(record.Transactions))
	}
}

func TestMapCancelResponse(t *testing.T) {
	raw := mapper.RawMap{
		"approved":   "1",
		"authCode":   "901490",
		"hostlogkey": "0000000002P0806050",
		"tranDate":   "240302090000",
	}

	record, err := newTestMapper().MapCancelResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != mapper.StatusApproved {
		t.Errorf("status = %q, want approved", record.Status)
	}
	if record.TransactionType != mapper.TxTypeCancel {
		t.Errorf("transaction type = %q, want cancel", record.TransactionType)
	}
}

func TestIs3DAuthSuccess(t *testing.T) {
	m := newTestMapper()
	if !m.Is3DAuthSuccess("1") {
		t.Error("mdStatus 1 should authenticate")
	}
	for _, md := range []string{"0", "2", "3", "4", ""} {
		if m.Is3DAuthSuccess(md) {
			t.Errorf("mdStatus %q should not authenticate", md)
		}
	}
}
