// Package itch implements the NASDAQ TotalView-ITCH 5.0 message catalogue:
// per-type frame lengths, the common header, and typed payload codecs.
//
// Frames are laid out back to back with no delimiter; the leading type tag
// fully determines the frame length, so the catalogue is the only way to
// recover message boundaries from a byte stream.
package itch

// TimestampedLength is the minimum frame length that carries the common
// header and therefore a timestamp.
const TimestampedLength = 11

// messageLengths maps a type tag to the total frame length in bytes,
// including the tag itself. Tags outside the catalogue map to 0.
var messageLengths = [256]int{
	'S': 12, // System Event
	'R': 39, // Stock Directory
	'H': 25, // Stock Trading Action
	'Y': 20, // Reg SHO Restriction
	'L': 26, // Market Participant Position
	'V': 35, // MWCB Decline Level
	'W': 12, // MWCB Status
	'K': 28, // IPO Quoting Period Update
	'A': 36, // Add Order (No MPID)
	'F': 40, // Add Order (MPID)
	'E': 31, // Order Executed
	'C': 36, // Order Executed With Price
	'X': 23, // Order Cancel
	'D': 19, // Order Delete
	'U': 35, // Order Replace
	'P': 44, // Trade (Non-Cross)
	'Q': 40, // Cross Trade
	'B': 19, // Broken Trade
	'I': 50, // NOII
	'N': 20, // RPII
}

var typeNames = [256]string{
	'S': "System Event",
	'R': "Stock Directory",
	'H': "Stock Trading Action",
	'Y': "Reg SHO Restriction",
	'L': "Market Participant Position",
	'V': "MWCB Decline Level",
	'W': "MWCB Status",
	'K': "IPO Quoting Period Update",
	'A': "Add Order (No MPID)",
	'F': "Add Order (MPID)",
	'E': "Order Executed",
	'C': "Order Executed With Price",
	'X': "Order Cancel",
	'D': "Order Delete",
	'U': "Order Replace",
	'P': "Trade (Non-Cross)",
	'Q': "Cross Trade",
	'B': "Broken Trade",
	'I': "NOII",
	'N': "RPII",
}

// MessageLength returns the fixed frame length for a type tag, or 0 when
// the tag is not in the catalogue and the stream cannot be framed at it.
func MessageLength(typeTag byte) int {
	return messageLengths[typeTag]
}

// TypeName returns a human-readable name for a type tag, or "Unknown".
func TypeName(typeTag byte) string {
	if name := typeNames[typeTag]; name != "" {
		return name
	}
	return "Unknown"
}
