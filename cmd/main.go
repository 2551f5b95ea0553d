package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/vposmap/vposmap/infra/config"
	"github.com/vposmap/vposmap/infra/logger"
	"github.com/vposmap/vposmap/mapper"
	_ "github.com/vposmap/vposmap/mapper/estpos"
	_ "github.com/vposmap/vposmap/mapper/garanti"
	_ "github.com/vposmap/vposmap/mapper/interpos"
	_ "github.com/vposmap/vposmap/mapper/kuveyt"
	_ "github.com/vposmap/vposmap/mapper/payfor"
	_ "github.com/vposmap/vposmap/mapper/posnet"
)

// vposmap reads a raw gateway response as JSON and prints the canonical
// record. Mostly useful for inspecting captured bank payloads without
// spinning up the full integration.
func main() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("Load Env Error: %v", err)
	}
	cfg := config.GetAppConfig()
	logger.Init(cfg.Development)

	var (
		gateway  = flag.String("gateway", cfg.DefaultGateway, "gateway name (see -list)")
		op       = flag.String("op", "payment", "operation: payment, status, cancel, refund, order-history, history")
		orderID  = flag.String("order", "", "order id of the original request")
		amount   = flag.String("amount", "0", "order amount of the original request")
		currency = flag.String("currency", "TRY", "order currency of the original request")
		input    = flag.String("input", "-", "raw response file, - for stdin")
		list     = flag.Bool("list", false, "list registered gateways and exit")
	)
	flag.Parse()

	if *list {
		for _, name := range mapper.GetAvailableMappers() {
			fmt.Println(name)
		}
		return
	}

	m, err := mapper.CreateMapper(*gateway)
	if err != nil {
		log.Fatalf("Create mapper: %v", err)
	}

	raw, err := readRaw(*input)
	if err != nil {
		log.Fatalf("Read input: %v", err)
	}

	orderAmount, err := decimal.NewFromString(*amount)
	if err != nil {
		log.Fatalf("Parse amount: %v", err)
	}
	order := mapper.Order{
		ID:       *orderID,
		Amount:   orderAmount,
		Currency: mapper.Currency(*currency),
	}

	result, err := runOp(m, *op, raw, order)
	if err != nil {
		log.Fatalf("Map response: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Marshal record: %v", err)
	}
	fmt.Println(string(out))
}

func runOp(m mapper.ResponseMapper, op string, raw mapper.RawMap, order mapper.Order) (any, error) {
	switch op {
	case "payment":
		return m.MapPaymentResponse(raw, mapper.TxTypePay, order)
	case "status":
		return m.MapStatusResponse(raw)
	case "cancel":
		return m.MapCancelResponse(raw)
	case "refund":
		return m.MapRefundResponse(raw)
	case "order-history":
		return m.MapOrderHistoryResponse(raw)
	case "history":
		return m.MapHistoryResponse(raw)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func readRaw(path string) (mapper.RawMap, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var raw mapper.RawMap
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
