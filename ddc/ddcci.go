package ddc

import (
	"errors"
	"fmt"

	"github.com/flokli/monitor-agent/vcp"
)

// DDC/CI addressing and opcodes (VESA DDC/CI 1.1).
const (
	// displayAddr is the 7-bit I²C address of the DDC/CI channel.
	displayAddr = 0x37
	// edidAddr is the 7-bit I²C address of the EDID EEPROM.
	edidAddr = 0x50

	hostSource    = 0x51
	writeChecksum = 0x6E // display write address, seeds request checksums
	readChecksum  = 0x50 // virtual host address, seeds reply checksums

	opGetVCP      = 0x01
	opGetVCPReply = 0x02
	opSetVCP      = 0x03

	lengthFlag = 0x80

	getReplyLen = 11
)

var (
	// errBusy is returned for a null message, which a display sends while it
	// is not ready to answer.
	errBusy = errors.New("display busy")
	// errGarbled marks replies that were corrupted on the bus.
	errGarbled = errors.New("garbled reply")
	// errUnsupportedCode is the display's answer for codes it does not implement.
	errUnsupportedCode = errors.New("display does not support code")
)

func checksum(seed byte, b []byte) byte {
	for _, v := range b {
		seed ^= v
	}
	return seed
}

// encodeGetRequest builds a "Get VCP Feature" message.
func encodeGetRequest(code uint8) []byte {
	msg := []byte{hostSource, lengthFlag | 2, opGetVCP, code}
	return append(msg, checksum(writeChecksum, msg))
}

// encodeSetRequest builds a "Set VCP Feature" message.
func encodeSetRequest(code uint8, value uint16) []byte {
	msg := []byte{hostSource, lengthFlag | 4, opSetVCP, code, byte(value >> 8), byte(value)}
	return append(msg, checksum(writeChecksum, msg))
}

// decodeGetReply parses a "Get VCP Feature Reply" for code.
func decodeGetReply(b []byte, code uint8) (current, maximum int, err error) {
	if len(b) < 3 {
		return 0, 0, fmt.Errorf("%w: %w: short reply (%d bytes)", vcp.ErrIO, errGarbled, len(b))
	}
	if b[1] == lengthFlag {
		if b[2] != checksum(readChecksum, b[:2]) {
			return 0, 0, fmt.Errorf("%w: %w: null message checksum mismatch", vcp.ErrIO, errGarbled)
		}
		return 0, 0, errBusy
	}
	if len(b) < getReplyLen {
		return 0, 0, fmt.Errorf("%w: %w: short reply (%d bytes)", vcp.ErrIO, errGarbled, len(b))
	}
	b = b[:getReplyLen]
	if want := checksum(readChecksum, b[:getReplyLen-1]); b[getReplyLen-1] != want {
		return 0, 0, fmt.Errorf("%w: %w: reply checksum 0x%02x, expected 0x%02x", vcp.ErrIO, errGarbled, b[getReplyLen-1], want)
	}
	if b[1] != lengthFlag|8 || b[2] != opGetVCPReply {
		return 0, 0, fmt.Errorf("%w: %w: unexpected reply % x", vcp.ErrIO, errGarbled, b[1:3])
	}
	switch b[3] {
	case 0x00:
	case 0x01:
		return 0, 0, fmt.Errorf("%w: %w 0x%02x", vcp.ErrIO, errUnsupportedCode, code)
	default:
		return 0, 0, fmt.Errorf("%w: reply result code 0x%02x", vcp.ErrIO, b[3])
	}
	if b[4] != code {
		return 0, 0, fmt.Errorf("%w: %w: reply for code 0x%02x, requested 0x%02x", vcp.ErrIO, errGarbled, b[4], code)
	}
	maximum = int(b[6])<<8 | int(b[7])
	current = int(b[8])<<8 | int(b[9])
	return current, maximum, nil
}
