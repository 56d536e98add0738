package lxpmodbus

import (
	"context"
	"encoding/binary"
	"errors"
)

const (
	testDongleSerial   = "BA12345678"
	testInverterSerial = "CD12345678"
)

// buildTCPReadResponse frames a synthetic dongle reply carrying count
// registers starting at start, values[i] belonging to start+i.
func buildTCPReadResponse(dongleSerial, inverterSerial string, function uint8, start uint16, values []uint16) []byte {
	data := make([]byte, 0, tcpReadPreludeLength-2+2*len(values)+crcLength)
	data = append(data, ActionResponse, function)
	data = append(data, inverterSerial...)
	data = binary.LittleEndian.AppendUint16(data, start)
	data = append(data, byte(2*len(values)))
	for _, v := range values {
		data = binary.LittleEndian.AppendUint16(data, v)
	}
	crc := modbusCRC(data)
	data = append(data, byte(crc), byte(crc>>8))
	return wrapTCPHeader(dongleSerial, data)
}

// buildTCPWriteAck frames the fixed-length write acknowledgement: the echoed
// register/value pair padded with the reserved status block.
func buildTCPWriteAck(dongleSerial, inverterSerial string, function uint8, address, value uint16) []byte {
	data := make([]byte, 0, WriteAckLength-tcpHeaderLength)
	data = append(data, ActionResponse, function)
	data = append(data, inverterSerial...)
	data = binary.LittleEndian.AppendUint16(data, address)
	data = binary.LittleEndian.AppendUint16(data, value)
	data = append(data, make([]byte, WriteAckLength-tcpHeaderLength-crcLength-len(data))...)
	crc := modbusCRC(data)
	data = append(data, byte(crc), byte(crc>>8))
	return wrapTCPHeader(dongleSerial, data)
}

func wrapTCPHeader(dongleSerial string, data []byte) []byte {
	total := tcpHeaderLength + len(data)
	frame := make([]byte, tcpHeaderLength, total)
	frame[0] = PrefixByte0
	frame[1] = PrefixByte1
	binary.LittleEndian.PutUint16(frame[2:], ProtocolVersion)
	binary.LittleEndian.PutUint16(frame[4:], uint16(total-6))
	frame[6] = 0x01
	frame[7] = TCPFunctionTranslatedData
	copy(frame[8:18], dongleSerial)
	binary.LittleEndian.PutUint16(frame[18:], uint16(len(data)))
	return append(frame, data...)
}

// buildRTUReadResponse frames a synthetic RTU reply.
func buildRTUReadResponse(slaveID uint8, function uint8, values []uint16) []byte {
	adu := make([]byte, 0, 3+2*len(values)+crcLength)
	adu = append(adu, slaveID, function, byte(2*len(values)))
	for _, v := range values {
		adu = binary.BigEndian.AppendUint16(adu, v)
	}
	crc := modbusCRC(adu)
	return append(adu, byte(crc), byte(crc>>8))
}

// mockTransport answers exchanges from a scripted handler and counts
// connection lifecycle events.
type mockTransport struct {
	handler   func(req *Request) ([]byte, error)
	connects  int
	closes    int
	exchanges int
}

func (m *mockTransport) Connect(ctx context.Context) error { m.connects++; return nil }
func (m *mockTransport) Close() error                      { m.closes++; return nil }

func (m *mockTransport) Exchange(ctx context.Context, req *Request) ([]byte, error) {
	m.exchanges++
	if m.handler == nil {
		return nil, errors.New("no handler")
	}
	return m.handler(req)
}

// registerServer emulates an inverter holding-register map behind a
// mockTransport, answering TCP-framed reads and writes.
type registerServer struct {
	regs map[uint16]uint16
}

func newRegisterServer(regs map[uint16]uint16) *registerServer {
	if regs == nil {
		regs = map[uint16]uint16{}
	}
	return &registerServer{regs: regs}
}

func (s *registerServer) handle(req *Request) ([]byte, error) {
	switch req.Function {
	case FuncReadHold:
		values := make([]uint16, req.Count)
		for i := range values {
			values[i] = s.regs[req.StartAddress+uint16(i)]
		}
		return buildTCPReadResponse(req.DongleSerial, req.InverterSerial, req.Function, req.StartAddress, values), nil
	case FuncWriteSingle:
		value := binary.LittleEndian.Uint16(req.Bytes[len(req.Bytes)-4:])
		s.regs[req.StartAddress] = value
		return buildTCPWriteAck(req.DongleSerial, req.InverterSerial, req.Function, req.StartAddress, value), nil
	case FuncWriteMultiple:
		// values sit after register(2) and byte count(1) in the frame body
		data := req.Bytes[tcpHeaderLength:]
		for i := uint16(0); i < req.Count; i++ {
			s.regs[req.StartAddress+i] = binary.LittleEndian.Uint16(data[17+2*i:])
		}
		// the ack echoes the register count in the value slot
		return buildTCPWriteAck(req.DongleSerial, req.InverterSerial, req.Function, req.StartAddress, req.Count), nil
	default:
		return nil, errors.New("unsupported function")
	}
}
