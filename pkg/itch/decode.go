package itch

import (
	"encoding/binary"
	"fmt"
)

// ErrNoFieldDecoder reports a catalogue type whose payload fields are not
// decoded (the frame itself is still valid and streamable).
var ErrNoFieldDecoder = fmt.Errorf("itch: no field decoder for message type")

// Decode parses a complete frame into its typed message. The frame must
// be exactly MessageLength(frame[0]) bytes; shorter input is an error.
func Decode(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("itch: empty frame")
	}
	want := MessageLength(frame[0])
	if want == 0 {
		return nil, fmt.Errorf("itch: unknown message type %q (0x%02X)", frame[0], frame[0])
	}
	if len(frame) < want {
		return nil, fmt.Errorf("itch: short frame for type %q: have %d bytes, want %d",
			frame[0], len(frame), want)
	}
	h := ParseHeader(frame)

	switch frame[0] {
	case 'S':
		return SystemEvent{Header: h, EventCode: frame[11]}, nil
	case 'R':
		return StockDirectory{
			Header:              h,
			Stock:               alpha(frame[11:19]),
			MarketCategory:      frame[19],
			FinancialStatus:     frame[20],
			RoundLotSize:        binary.BigEndian.Uint32(frame[21:]),
			RoundLotsOnly:       frame[25],
			IssueClassification: frame[26],
			IssueSubType:        alpha(frame[27:29]),
			Authenticity:        frame[29],
			ShortSaleThreshold:  frame[30],
			IPOFlag:             frame[31],
			LULDRefPriceTier:    frame[32],
			ETPFlag:             frame[33],
			ETPLeverageFactor:   binary.BigEndian.Uint32(frame[34:]),
			InverseIndicator:    frame[38],
		}, nil
	case 'H':
		return StockTradingAction{
			Header:       h,
			Stock:        alpha(frame[11:19]),
			TradingState: frame[19],
			Reserved:     frame[20],
			Reason:       alpha(frame[21:25]),
		}, nil
	case 'A', 'F':
		m := AddOrder{
			Header:   h,
			OrderRef: binary.BigEndian.Uint64(frame[11:]),
			Side:     frame[19],
			Shares:   binary.BigEndian.Uint32(frame[20:]),
			Stock:    alpha(frame[24:32]),
			Price:    Price(binary.BigEndian.Uint32(frame[32:])),
		}
		if frame[0] == 'F' {
			m.Attribution = alpha(frame[36:40])
		}
		return m, nil
	case 'E':
		return OrderExecuted{
			Header:         h,
			OrderRef:       binary.BigEndian.Uint64(frame[11:]),
			ExecutedShares: binary.BigEndian.Uint32(frame[19:]),
			MatchNumber:    binary.BigEndian.Uint64(frame[23:]),
		}, nil
	case 'C':
		return OrderExecutedWithPrice{
			Header:         h,
			OrderRef:       binary.BigEndian.Uint64(frame[11:]),
			ExecutedShares: binary.BigEndian.Uint32(frame[19:]),
			MatchNumber:    binary.BigEndian.Uint64(frame[23:]),
			Printable:      frame[31],
			ExecutionPrice: Price(binary.BigEndian.Uint32(frame[32:])),
		}, nil
	case 'X':
		return OrderCancel{
			Header:         h,
			OrderRef:       binary.BigEndian.Uint64(frame[11:]),
			CanceledShares: binary.BigEndian.Uint32(frame[19:]),
		}, nil
	case 'D':
		return OrderDelete{
			Header:   h,
			OrderRef: binary.BigEndian.Uint64(frame[11:]),
		}, nil
	case 'U':
		return OrderReplace{
			Header:       h,
			OrigOrderRef: binary.BigEndian.Uint64(frame[11:]),
			NewOrderRef:  binary.BigEndian.Uint64(frame[19:]),
			Shares:       binary.BigEndian.Uint32(frame[27:]),
			Price:        Price(binary.BigEndian.Uint32(frame[31:])),
		}, nil
	case 'P':
		return Trade{
			Header:      h,
			OrderRef:    binary.BigEndian.Uint64(frame[11:]),
			Side:        frame[19],
			Shares:      binary.BigEndian.Uint32(frame[20:]),
			Stock:       alpha(frame[24:32]),
			Price:       Price(binary.BigEndian.Uint32(frame[32:])),
			MatchNumber: binary.BigEndian.Uint64(frame[36:]),
		}, nil
	case 'Q':
		return CrossTrade{
			Header:      h,
			Shares:      binary.BigEndian.Uint64(frame[11:]),
			Stock:       alpha(frame[19:27]),
			CrossPrice:  Price(binary.BigEndian.Uint32(frame[27:])),
			MatchNumber: binary.BigEndian.Uint64(frame[31:]),
			CrossType:   frame[39],
		}, nil
	case 'B':
		return BrokenTrade{
			Header:      h,
			MatchNumber: binary.BigEndian.Uint64(frame[11:]),
		}, nil
	default:
		// Catalogue types we can frame but do not field-decode (Y, L, V,
		// W, K, I, N).
		return nil, fmt.Errorf("%w %q", ErrNoFieldDecoder, frame[0])
	}
}
