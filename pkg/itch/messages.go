package itch

import (
	"encoding/binary"
	"fmt"

	"github.com/shopspring/decimal"
)

// Message is a decoded ITCH payload. Every concrete message embeds Header.
type Message interface {
	MsgType() byte
	String() string
}

// priceExponent is the implied decimal exponent of ITCH price fields
// (4 decimal places in a 32-bit integer).
const priceExponent = -4

// Price converts a raw 4-implied-decimal price field.
func Price(raw uint32) decimal.Decimal {
	return decimal.New(int64(raw), priceExponent)
}

func rawPrice(d decimal.Decimal) uint32 {
	return uint32(d.Shift(-priceExponent).IntPart())
}

// SystemEvent is the 'S' message (12 bytes).
type SystemEvent struct {
	Header
	EventCode byte
}

func (m SystemEvent) String() string {
	return fmt.Sprintf("[S] System Event ts=%d event=%c", m.Timestamp, m.EventCode)
}

// Encode serializes the message to its wire form.
func (m SystemEvent) Encode() []byte {
	m.Type = 'S'
	return append(m.appendTo(nil), m.EventCode)
}

// StockDirectory is the 'R' message (39 bytes).
type StockDirectory struct {
	Header
	Stock               string
	MarketCategory      byte
	FinancialStatus     byte
	RoundLotSize        uint32
	RoundLotsOnly       byte
	IssueClassification byte
	IssueSubType        string
	Authenticity        byte
	ShortSaleThreshold  byte
	IPOFlag             byte
	LULDRefPriceTier    byte
	ETPFlag             byte
	ETPLeverageFactor   uint32
	InverseIndicator    byte
}

func (m StockDirectory) String() string {
	return fmt.Sprintf("[R] Stock Directory stock=%s category=%c lot=%d",
		m.Stock, m.MarketCategory, m.RoundLotSize)
}

// Encode serializes the message to its wire form.
func (m StockDirectory) Encode() []byte {
	m.Type = 'R'
	b := m.appendTo(nil)
	b = appendAlpha(b, m.Stock, 8)
	b = append(b, m.MarketCategory, m.FinancialStatus)
	b = binary.BigEndian.AppendUint32(b, m.RoundLotSize)
	b = append(b, m.RoundLotsOnly, m.IssueClassification)
	b = appendAlpha(b, m.IssueSubType, 2)
	b = append(b, m.Authenticity, m.ShortSaleThreshold, m.IPOFlag,
		m.LULDRefPriceTier, m.ETPFlag)
	b = binary.BigEndian.AppendUint32(b, m.ETPLeverageFactor)
	return append(b, m.InverseIndicator)
}

// StockTradingAction is the 'H' message (25 bytes).
type StockTradingAction struct {
	Header
	Stock        string
	TradingState byte
	Reserved     byte
	Reason       string
}

func (m StockTradingAction) String() string {
	return fmt.Sprintf("[H] Trading Action stock=%s state=%c reason=%s",
		m.Stock, m.TradingState, m.Reason)
}

// Encode serializes the message to its wire form.
func (m StockTradingAction) Encode() []byte {
	m.Type = 'H'
	b := m.appendTo(nil)
	b = appendAlpha(b, m.Stock, 8)
	b = append(b, m.TradingState, m.Reserved)
	return appendAlpha(b, m.Reason, 4)
}

// AddOrder covers both 'A' (no MPID, 36 bytes) and 'F' (MPID, 40 bytes).
// Attribution is only present on the wire for 'F'.
type AddOrder struct {
	Header
	OrderRef    uint64
	Side        byte
	Shares      uint32
	Stock       string
	Price       decimal.Decimal
	Attribution string
}

func (m AddOrder) String() string {
	s := fmt.Sprintf("[%c] Add Order ref=%d side=%c shares=%d stock=%s price=%s",
		m.Type, m.OrderRef, m.Side, m.Shares, m.Stock, m.Price.StringFixed(4))
	if m.Type == 'F' {
		s += " mpid=" + m.Attribution
	}
	return s
}

// Encode serializes the message to its wire form. The Type field selects
// the 'A' or 'F' layout; zero defaults to 'A'.
func (m AddOrder) Encode() []byte {
	if m.Type != 'F' {
		m.Type = 'A'
	}
	b := m.appendTo(nil)
	b = binary.BigEndian.AppendUint64(b, m.OrderRef)
	b = append(b, m.Side)
	b = binary.BigEndian.AppendUint32(b, m.Shares)
	b = appendAlpha(b, m.Stock, 8)
	b = binary.BigEndian.AppendUint32(b, rawPrice(m.Price))
	if m.Type == 'F' {
		b = appendAlpha(b, m.Attribution, 4)
	}
	return b
}

// OrderExecuted is the 'E' message (31 bytes).
type OrderExecuted struct {
	Header
	OrderRef       uint64
	ExecutedShares uint32
	MatchNumber    uint64
}

func (m OrderExecuted) String() string {
	return fmt.Sprintf("[E] Order Executed ref=%d shares=%d match=%d",
		m.OrderRef, m.ExecutedShares, m.MatchNumber)
}

// Encode serializes the message to its wire form.
func (m OrderExecuted) Encode() []byte {
	m.Type = 'E'
	b := m.appendTo(nil)
	b = binary.BigEndian.AppendUint64(b, m.OrderRef)
	b = binary.BigEndian.AppendUint32(b, m.ExecutedShares)
	return binary.BigEndian.AppendUint64(b, m.MatchNumber)
}

// OrderExecutedWithPrice is the 'C' message (36 bytes).
type OrderExecutedWithPrice struct {
	Header
	OrderRef       uint64
	ExecutedShares uint32
	MatchNumber    uint64
	Printable      byte
	ExecutionPrice decimal.Decimal
}

func (m OrderExecutedWithPrice) String() string {
	return fmt.Sprintf("[C] Order Executed w/ Price ref=%d shares=%d match=%d price=%s",
		m.OrderRef, m.ExecutedShares, m.MatchNumber, m.ExecutionPrice.StringFixed(4))
}

// Encode serializes the message to its wire form.
func (m OrderExecutedWithPrice) Encode() []byte {
	m.Type = 'C'
	b := m.appendTo(nil)
	b = binary.BigEndian.AppendUint64(b, m.OrderRef)
	b = binary.BigEndian.AppendUint32(b, m.ExecutedShares)
	b = binary.BigEndian.AppendUint64(b, m.MatchNumber)
	b = append(b, m.Printable)
	return binary.BigEndian.AppendUint32(b, rawPrice(m.ExecutionPrice))
}

// OrderCancel is the 'X' message (23 bytes).
type OrderCancel struct {
	Header
	OrderRef       uint64
	CanceledShares uint32
}

func (m OrderCancel) String() string {
	return fmt.Sprintf("[X] Order Cancel ref=%d shares=%d", m.OrderRef, m.CanceledShares)
}

// Encode serializes the message to its wire form.
func (m OrderCancel) Encode() []byte {
	m.Type = 'X'
	b := m.appendTo(nil)
	b = binary.BigEndian.AppendUint64(b, m.OrderRef)
	return binary.BigEndian.AppendUint32(b, m.CanceledShares)
}

// OrderDelete is the 'D' message (19 bytes).
type OrderDelete struct {
	Header
	OrderRef uint64
}

func (m OrderDelete) String() string {
	return fmt.Sprintf("[D] Order Delete ref=%d", m.OrderRef)
}

// Encode serializes the message to its wire form.
func (m OrderDelete) Encode() []byte {
	m.Type = 'D'
	return binary.BigEndian.AppendUint64(m.appendTo(nil), m.OrderRef)
}

// OrderReplace is the 'U' message (35 bytes).
type OrderReplace struct {
	Header
	OrigOrderRef uint64
	NewOrderRef  uint64
	Shares       uint32
	Price        decimal.Decimal
}

func (m OrderReplace) String() string {
	return fmt.Sprintf("[U] Order Replace orig=%d new=%d shares=%d price=%s",
		m.OrigOrderRef, m.NewOrderRef, m.Shares, m.Price.StringFixed(4))
}

// Encode serializes the message to its wire form.
func (m OrderReplace) Encode() []byte {
	m.Type = 'U'
	b := m.appendTo(nil)
	b = binary.BigEndian.AppendUint64(b, m.OrigOrderRef)
	b = binary.BigEndian.AppendUint64(b, m.NewOrderRef)
	b = binary.BigEndian.AppendUint32(b, m.Shares)
	return binary.BigEndian.AppendUint32(b, rawPrice(m.Price))
}

// Trade is the 'P' non-cross trade message (44 bytes).
type Trade struct {
	Header
	OrderRef    uint64
	Side        byte
	Shares      uint32
	Stock       string
	Price       decimal.Decimal
	MatchNumber uint64
}

func (m Trade) String() string {
	return fmt.Sprintf("[P] Trade ref=%d side=%c shares=%d stock=%s price=%s match=%d",
		m.OrderRef, m.Side, m.Shares, m.Stock, m.Price.StringFixed(4), m.MatchNumber)
}

// Encode serializes the message to its wire form.
func (m Trade) Encode() []byte {
	m.Type = 'P'
	b := m.appendTo(nil)
	b = binary.BigEndian.AppendUint64(b, m.OrderRef)
	b = append(b, m.Side)
	b = binary.BigEndian.AppendUint32(b, m.Shares)
	b = appendAlpha(b, m.Stock, 8)
	b = binary.BigEndian.AppendUint32(b, rawPrice(m.Price))
	return binary.BigEndian.AppendUint64(b, m.MatchNumber)
}

// CrossTrade is the 'Q' message (40 bytes).
type CrossTrade struct {
	Header
	Shares      uint64
	Stock       string
	CrossPrice  decimal.Decimal
	MatchNumber uint64
	CrossType   byte
}

func (m CrossTrade) String() string {
	return fmt.Sprintf("[Q] Cross Trade shares=%d stock=%s price=%s match=%d type=%c",
		m.Shares, m.Stock, m.CrossPrice.StringFixed(4), m.MatchNumber, m.CrossType)
}

// Encode serializes the message to its wire form.
func (m CrossTrade) Encode() []byte {
	m.Type = 'Q'
	b := m.appendTo(nil)
	b = binary.BigEndian.AppendUint64(b, m.Shares)
	b = appendAlpha(b, m.Stock, 8)
	b = binary.BigEndian.AppendUint32(b, rawPrice(m.CrossPrice))
	b = binary.BigEndian.AppendUint64(b, m.MatchNumber)
	return append(b, m.CrossType)
}

// BrokenTrade is the 'B' message (19 bytes).
type BrokenTrade struct {
	Header
	MatchNumber uint64
}

func (m BrokenTrade) String() string {
	return fmt.Sprintf("[B] Broken Trade match=%d", m.MatchNumber)
}

// Encode serializes the message to its wire form.
func (m BrokenTrade) Encode() []byte {
	m.Type = 'B'
	return binary.BigEndian.AppendUint64(m.appendTo(nil), m.MatchNumber)
}
