// Package mapper defines the canonical transaction-result model and the
// ResponseMapper contract every gateway package implements.
//
// The package is built around a few key pieces:
//
//   - ResponseMapper: the per-gateway normalization contract - payment,
//     3-D flows, status, refund, cancel and history operations
//   - TransactionRecord / OrderStatusRecord / HistoryRecord: the canonical
//     output shapes
//   - ValueMapper / ValueFormatter: injected lookup and parsing
//     collaborators encapsulating each bank's enumeration tables and
//     amount/date encodings
//   - MapperRegistry: gateway-name keyed factory registry, with a global
//     DefaultRegistry the gateway packages register into via init
//
// # Basic Usage
//
// Selecting a gateway and normalizing a decoded response:
//
//	m, err := mapper.CreateMapper("payfor")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	record, err := m.MapPaymentResponse(raw, mapper.TxTypePay, order)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if record.Status == mapper.StatusApproved {
//	    // money moved
//	}
//
// Mapping never returns an error for business failures - a declined payment
// is an expected outcome and arrives as data. The only hard failure is
// ErrNotImplemented for an operation the gateway does not offer.
package mapper
