// Package vposmap normalizes the responses of Turkish bank virtual POS
// gateways into a single canonical transaction-result shape.
//
// # Overview
//
// Every Turkish bank virtual POS speaks its own dialect: different field
// names, different success indicators, different date and amount encodings,
// and different ways of packing an order's transaction history into one
// response. vposmap does not talk to the banks itself - the caller performs
// the HTTP exchange, decodes the XML/JSON/form body into a generic
// map[string]any and hands it to the gateway's response mapper. The mapper
// returns a canonical record regardless of which bank answered.
//
// # Architecture
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Your App      │───►│    vposmap      │    │   Bank vPOS     │
//	│  (transport,    │    │   (response     │◄───│   (raw wire     │
//	│   signing)      │    │   normalizers)  │    │   responses)    │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Supported Gateways
//
//   - estpos: Payten EST / Asseco family (İş Bankası, Akbank, Ziraat, ...)
//   - payfor: QNB Finansbank PayFor
//   - garanti: Garanti BBVA GVP
//   - posnet: Yapı Kredi PosNet
//   - kuveyt: Kuveyt Türk TDV2
//   - interpos: Denizbank InterPos
//
// # Quick Start
//
//	m, err := mapper.CreateMapper("estpos")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	record, err := m.MapPaymentResponse(rawBody, mapper.TxTypePay, order)
//
// See the mapper package for the canonical record shape and the per-gateway
// packages for each bank's rules.
package vposmap
