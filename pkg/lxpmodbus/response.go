package lxpmodbus

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Response is the parsed form of one inverter reply. A Response is either
// well-formed (Valid, register map populated) or erroneous (Reason set,
// register map empty). Parse failures are values, never panics.
type Response struct {
	Raw []byte

	Function       uint8
	InverterSerial string
	SlaveID        uint8
	StartAddress   uint16
	ExceptionCode  uint8

	registers map[uint16]uint16
	order     []uint16

	Reason string
}

// IsError reports whether the response is erroneous, either because the
// frame failed validation or because the device flagged an exception.
func (r *Response) IsError() bool {
	return r.Reason != ""
}

// Registers returns the decoded address to value mapping. Empty for
// erroneous responses.
func (r *Response) Registers() map[uint16]uint16 {
	return r.registers
}

// RegisterAddresses returns the addresses in wire order.
func (r *Response) RegisterAddresses() []uint16 {
	return r.order
}

func errorResponse(raw []byte, format string, args ...any) *Response {
	return &Response{Raw: raw, Reason: fmt.Sprintf(format, args...), registers: map[uint16]uint16{}}
}

func (r *Response) setRegisters(start uint16, values []uint16) {
	r.StartAddress = start
	r.registers = make(map[uint16]uint16, len(values))
	r.order = make([]uint16, 0, len(values))
	for i, v := range values {
		addr := start + uint16(i)
		r.registers[addr] = v
		r.order = append(r.order, addr)
	}
}

// parse control-flow errors used by the stream recovery engine. A short
// buffer may still grow into a valid frame; a bad frame never will.
var (
	errFrameIncomplete = errors.New("frame incomplete")
	errBadFrame        = errors.New("bad frame")
)

// scanTCPFrame reports the total length of the frame starting at buf[0].
// Returns errFrameIncomplete if more bytes are needed, errBadFrame if
// buf[0] cannot start a valid frame.
func scanTCPFrame(buf []byte) (int, error) {
	if len(buf) < 1 {
		return 0, errFrameIncomplete
	}
	if buf[0] != PrefixByte0 {
		return 0, errBadFrame
	}
	if len(buf) < 2 {
		return 0, errFrameIncomplete
	}
	if buf[1] != PrefixByte1 {
		return 0, errBadFrame
	}
	if len(buf) < 6 {
		return 0, errFrameIncomplete
	}
	total := int(binary.LittleEndian.Uint16(buf[4:])) + 6
	if total < ResponseOverhead || total > MaxPacketSize {
		return 0, errBadFrame
	}
	if len(buf) < total {
		return 0, errFrameIncomplete
	}
	return total, nil
}

// scanRTUFrame reports the total length of the RTU ADU starting at buf[0]
// for the reply to req. RTU frames carry no length field up front, so the
// expected shape is derived from the request function.
func scanRTUFrame(buf []byte, req *Request) (int, error) {
	if len(buf) < 2 {
		return 0, errFrameIncomplete
	}
	if buf[0] != req.SlaveID {
		return 0, errBadFrame
	}
	switch {
	case buf[1] == req.Function|0x80:
		// exception reply: slave, function, code, crc
		if len(buf) < rtuMinResponseLength {
			return 0, errFrameIncomplete
		}
		return rtuMinResponseLength, nil
	case buf[1] != req.Function:
		return 0, errBadFrame
	case req.Function == FuncReadHold || req.Function == FuncReadInput:
		if len(buf) < 3 {
			return 0, errFrameIncomplete
		}
		total := 3 + int(buf[2]) + crcLength
		if buf[2] != byte(2*req.Count) || total > MaxPacketSize {
			return 0, errBadFrame
		}
		if len(buf) < total {
			return 0, errFrameIncomplete
		}
		return total, nil
	default:
		if len(buf) < rtuWriteAckLength {
			return 0, errFrameIncomplete
		}
		return rtuWriteAckLength, nil
	}
}

// ParseTCPResponse validates a dongle frame against the request it answers.
// Checks run in order: minimum length, declared length, function code,
// serial echo, CRC. The first failure yields an erroneous Response.
func ParseTCPResponse(buf []byte, req *Request) *Response {
	wantWriteAck := req.Function == FuncWriteSingle || req.Function == FuncWriteMultiple
	if wantWriteAck {
		if len(buf) != WriteAckLength {
			return errorResponse(buf, "write ack length %d, want %d", len(buf), WriteAckLength)
		}
	} else if len(buf) < ResponseOverhead {
		return errorResponse(buf, "response too short: %d bytes, want >= %d", len(buf), ResponseOverhead)
	}

	if buf[0] != PrefixByte0 || buf[1] != PrefixByte1 {
		return errorResponse(buf, "bad prefix % x", buf[:2])
	}
	if declared := int(binary.LittleEndian.Uint16(buf[4:])) + 6; declared != len(buf) {
		return errorResponse(buf, "declared length %d, got %d bytes", declared, len(buf))
	}
	if buf[7] != TCPFunctionTranslatedData {
		return errorResponse(buf, "unexpected tcp function 0x%02x", buf[7])
	}
	if dongle := string(buf[8:18]); dongle != req.DongleSerial {
		return errorResponse(buf, "dongle serial mismatch: got %q", dongle)
	}
	dataLen := int(binary.LittleEndian.Uint16(buf[18:]))
	data := buf[tcpHeaderLength:]
	if dataLen != len(data) {
		return errorResponse(buf, "data length %d, got %d bytes", dataLen, len(data))
	}

	resp := &Response{Raw: buf, registers: map[uint16]uint16{}}
	resp.Function = data[1] &^ 0x80
	resp.InverterSerial = string(data[2:12])

	if resp.InverterSerial != req.InverterSerial {
		resp.Reason = fmt.Sprintf("inverter serial mismatch: got %q", resp.InverterSerial)
		return resp
	}
	crcAt := len(data) - crcLength
	if got, want := binary.LittleEndian.Uint16(data[crcAt:]), modbusCRC(data[:crcAt]); got != want {
		resp.Reason = fmt.Sprintf("crc mismatch: got 0x%04x, want 0x%04x", got, want)
		return resp
	}
	if resp.Function != req.Function {
		resp.Reason = fmt.Sprintf("function mismatch: got 0x%02x, want 0x%02x", resp.Function, req.Function)
		return resp
	}
	if data[1]&0x80 != 0 {
		resp.ExceptionCode = data[14]
		resp.Reason = fmt.Sprintf("device exception 0x%02x", resp.ExceptionCode)
		return resp
	}

	start := binary.LittleEndian.Uint16(data[12:])
	if wantWriteAck {
		if start != req.StartAddress {
			resp.Reason = fmt.Sprintf("write ack address 0x%04x, want 0x%04x", start, req.StartAddress)
			return resp
		}
		resp.setRegisters(start, []uint16{binary.LittleEndian.Uint16(data[14:])})
		return resp
	}

	valueLen := int(data[14])
	values := data[15:crcAt]
	if valueLen != len(values) || valueLen != int(2*req.Count) {
		resp.Reason = fmt.Sprintf("value payload %d bytes, want %d", len(values), 2*req.Count)
		return resp
	}
	regs := make([]uint16, req.Count)
	for i := range regs {
		regs[i] = binary.LittleEndian.Uint16(values[2*i:])
	}
	resp.setRegisters(start, regs)
	return resp
}

// ParseRTUResponse validates a Modbus RTU ADU against the request it
// answers. Register values are big-endian on the RTU wire.
func ParseRTUResponse(buf []byte, req *Request) *Response {
	if len(buf) < rtuMinResponseLength {
		return errorResponse(buf, "response too short: %d bytes, want >= %d", len(buf), rtuMinResponseLength)
	}
	resp := &Response{Raw: buf, registers: map[uint16]uint16{}}
	resp.SlaveID = buf[0]
	resp.Function = buf[1] &^ 0x80

	if resp.SlaveID != req.SlaveID {
		resp.Reason = fmt.Sprintf("slave id mismatch: got %d, want %d", resp.SlaveID, req.SlaveID)
		return resp
	}
	crcAt := len(buf) - crcLength
	if got, want := binary.LittleEndian.Uint16(buf[crcAt:]), modbusCRC(buf[:crcAt]); got != want {
		resp.Reason = fmt.Sprintf("crc mismatch: got 0x%04x, want 0x%04x", got, want)
		return resp
	}
	if resp.Function != req.Function {
		resp.Reason = fmt.Sprintf("function mismatch: got 0x%02x, want 0x%02x", resp.Function, req.Function)
		return resp
	}
	if buf[1]&0x80 != 0 {
		resp.ExceptionCode = buf[2]
		resp.Reason = fmt.Sprintf("device exception 0x%02x", resp.ExceptionCode)
		return resp
	}

	switch req.Function {
	case FuncReadHold, FuncReadInput:
		byteCount := int(buf[2])
		if byteCount != crcAt-3 || byteCount != int(2*req.Count) {
			resp.Reason = fmt.Sprintf("value payload %d bytes, want %d", crcAt-3, 2*req.Count)
			return resp
		}
		regs := make([]uint16, req.Count)
		for i := range regs {
			regs[i] = binary.BigEndian.Uint16(buf[3+2*i:])
		}
		resp.setRegisters(req.StartAddress, regs)
	default:
		if len(buf) != rtuWriteAckLength {
			resp.Reason = fmt.Sprintf("write ack length %d, want %d", len(buf), rtuWriteAckLength)
			return resp
		}
		addr := binary.BigEndian.Uint16(buf[2:])
		if addr != req.StartAddress {
			resp.Reason = fmt.Sprintf("write ack address 0x%04x, want 0x%04x", addr, req.StartAddress)
			return resp
		}
		// write-single echoes the value, write-multiple the count
		resp.setRegisters(addr, []uint16{binary.BigEndian.Uint16(buf[4:])})
	}
	return resp
}

// parseFor dispatches on the transport variant the request was built for.
func parseFor(buf []byte, req *Request) *Response {
	if req.rtu {
		return ParseRTUResponse(buf, req)
	}
	return ParseTCPResponse(buf, req)
}
