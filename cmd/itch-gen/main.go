// Command itch-gen writes a deterministic sample ITCH feed for testing
// the replay server and its clients.
//
// Usage:
//
//	itch-gen [-out data/sample.itch] [-orders 100]
//
// A ".gz" output suffix produces a gzip-compressed feed.
package main

import (
	"bufio"
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/luxfi/replay/pkg/itch"
)

const (
	openingBell   = 34_200_000_000_000 // 9:30 AM in ns since midnight
	orderSpacing  = 50_000_000         // 50ms between orders
	executeEvery  = 5
	executePause  = 10_000_000
	directoryStep = 1_000_000
)

func main() {
	out := flag.String("out", "data/sample.itch", "Output file (.gz for gzip)")
	orders := flag.Int("orders", 100, "Number of buy/sell order pairs")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create: %v\n", err)
		os.Exit(1)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(*out, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	bw := bufio.NewWriter(w)

	n := generate(bw, *orders)

	if err := bw.Flush(); err == nil && gz != nil {
		err = gz.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample ITCH data written to %s (%d messages)\n", *out, n)
}

// generate emits the sample session: start event, directory entries, a
// run of paired orders with periodic executions, end event.
func generate(w io.Writer, orders int) int {
	ts := uint64(openingBell)
	var tracking uint16
	count := 0

	emit := func(frame []byte) {
		w.Write(frame)
		count++
		tracking++
	}

	emit(itch.SystemEvent{
		Header:    itch.Header{StockLocate: 1, TrackingNumber: tracking, Timestamp: ts},
		EventCode: 'O',
	}.Encode())
	ts += directoryStep

	for i, stock := range []string{"AAPL", "TSLA"} {
		emit(itch.StockDirectory{
			Header:              itch.Header{StockLocate: uint16(1 + i), TrackingNumber: tracking, Timestamp: ts},
			Stock:               stock,
			MarketCategory:      'Q',
			FinancialStatus:     'N',
			RoundLotSize:        100,
			RoundLotsOnly:       'Y',
			IssueClassification: 'P',
			Authenticity:        'P',
			ShortSaleThreshold:  'N',
			IPOFlag:             ' ',
			LULDRefPriceTier:    '1',
			ETPFlag:             'N',
			ETPLeverageFactor:   1,
			InverseIndicator:    'N',
		}.Encode())
		ts += directoryStep
	}

	for i := 0; i < orders; i++ {
		tick := decimal.New(int64(i), -2) // +$0.01 per pair
		emit(itch.AddOrder{
			Header:   itch.Header{StockLocate: 1, TrackingNumber: tracking, Timestamp: ts},
			OrderRef: uint64(1000000 + i),
			Side:     'B',
			Shares:   uint32(100 + i*10),
			Stock:    "AAPL",
			Price:    decimal.RequireFromString("150.00").Add(tick),
		}.Encode())
		ts += orderSpacing

		emit(itch.AddOrder{
			Header:   itch.Header{StockLocate: 1, TrackingNumber: tracking, Timestamp: ts},
			OrderRef: uint64(2000000 + i),
			Side:     'S',
			Shares:   uint32(100 + i*10),
			Stock:    "AAPL",
			Price:    decimal.RequireFromString("150.01").Add(tick),
		}.Encode())
		ts += orderSpacing

		if i%executeEvery == 0 {
			emit(itch.OrderExecuted{
				Header:         itch.Header{StockLocate: 1, TrackingNumber: tracking, Timestamp: ts},
				OrderRef:       uint64(1000000 + i),
				ExecutedShares: 50,
				MatchNumber:    uint64(3000000 + i),
			}.Encode())
			ts += executePause
		}
	}

	emit(itch.SystemEvent{
		Header:    itch.Header{StockLocate: 1, TrackingNumber: tracking, Timestamp: ts},
		EventCode: 'C',
	}.Encode())

	return count
}
