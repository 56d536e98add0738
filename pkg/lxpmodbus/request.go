package lxpmodbus

import (
	"encoding/binary"
	"fmt"

	"github.com/howeyc/crc16"
)

// Request is a fully framed request plus the fields a parser needs to match
// the eventual response against. Built fresh for every exchange.
type Request struct {
	Bytes []byte

	Function       uint8
	StartAddress   uint16
	Count          uint16
	DongleSerial   string
	InverterSerial string
	SlaveID        uint8

	rtu bool
}

func modbusCRC(data []byte) uint16 {
	return crc16.Update(0xFFFF, crc16.IBMTable, data)
}

func validSerial(s string) bool {
	return len(s) == SerialLength
}

// BuildReadRequest frames a holding-register read over the dongle TCP
// protocol. Serials must be exactly 10 bytes; count is bounded so the
// matching response cannot exceed MaxPacketSize.
func BuildReadRequest(dongleSerial, inverterSerial string, start, count uint16) (*Request, error) {
	if !validSerial(dongleSerial) || !validSerial(inverterSerial) {
		return nil, fmt.Errorf("%w: serial must be %d characters", ErrInvalidRequestParameters, SerialLength)
	}
	if count == 0 || int(count) > maxRegistersPerExchange {
		return nil, fmt.Errorf("%w: register count %d out of range (1-%d)", ErrInvalidRequestParameters, count, maxRegistersPerExchange)
	}

	var body [4]byte
	binary.LittleEndian.PutUint16(body[0:], start)
	binary.LittleEndian.PutUint16(body[2:], count)
	req := &Request{
		Function:       FuncReadHold,
		StartAddress:   start,
		Count:          count,
		DongleSerial:   dongleSerial,
		InverterSerial: inverterSerial,
	}
	req.Bytes = frameTranslatedData(dongleSerial, inverterSerial, FuncReadHold, body[:])
	return req, nil
}

// BuildWriteSingleRequest frames a single-register write.
func BuildWriteSingleRequest(dongleSerial, inverterSerial string, address, value uint16) (*Request, error) {
	if !validSerial(dongleSerial) || !validSerial(inverterSerial) {
		return nil, fmt.Errorf("%w: serial must be %d characters", ErrInvalidRequestParameters, SerialLength)
	}
	var body [4]byte
	binary.LittleEndian.PutUint16(body[0:], address)
	binary.LittleEndian.PutUint16(body[2:], value)
	req := &Request{
		Function:       FuncWriteSingle,
		StartAddress:   address,
		Count:          1,
		DongleSerial:   dongleSerial,
		InverterSerial: inverterSerial,
	}
	req.Bytes = frameTranslatedData(dongleSerial, inverterSerial, FuncWriteSingle, body[:])
	return req, nil
}

// BuildWriteMultipleRequest frames a multi-register write.
func BuildWriteMultipleRequest(dongleSerial, inverterSerial string, address uint16, values []uint16) (*Request, error) {
	if !validSerial(dongleSerial) || !validSerial(inverterSerial) {
		return nil, fmt.Errorf("%w: serial must be %d characters", ErrInvalidRequestParameters, SerialLength)
	}
	if len(values) == 0 || len(values) > maxRegistersPerExchange {
		return nil, fmt.Errorf("%w: value count %d out of range (1-%d)", ErrInvalidRequestParameters, len(values), maxRegistersPerExchange)
	}
	body := make([]byte, 5+2*len(values))
	binary.LittleEndian.PutUint16(body[0:], address)
	binary.LittleEndian.PutUint16(body[2:], uint16(len(values)))
	body[4] = byte(2 * len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(body[5+2*i:], v)
	}
	req := &Request{
		Function:       FuncWriteMultiple,
		StartAddress:   address,
		Count:          uint16(len(values)),
		DongleSerial:   dongleSerial,
		InverterSerial: inverterSerial,
	}
	req.Bytes = frameTranslatedData(dongleSerial, inverterSerial, FuncWriteMultiple, body)
	return req, nil
}

// frameTranslatedData wraps a device-function body into a translated-data
// frame with the 20-byte dongle header. body starts at the register field;
// the action, device function and inverter serial prelude is added here.
func frameTranslatedData(dongleSerial, inverterSerial string, function uint8, body []byte) []byte {
	data := make([]byte, 0, 2+SerialLength+len(body)+crcLength)
	data = append(data, ActionRequest, function)
	data = append(data, inverterSerial...)
	data = append(data, body...)
	crc := modbusCRC(data)
	data = append(data, byte(crc), byte(crc>>8))

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

// BuildRTUReadRequest frames a holding-register read as a Modbus RTU ADU.
func BuildRTUReadRequest(slaveID uint8, start, count uint16) (*Request, error) {
	if slaveID < SlaveIDMin || slaveID > SlaveIDMax {
		return nil, fmt.Errorf("%w: slave id %d out of range (%d-%d)", ErrInvalidRequestParameters, slaveID, SlaveIDMin, SlaveIDMax)
	}
	if count == 0 || int(count) > maxRegistersPerExchange {
		return nil, fmt.Errorf("%w: register count %d out of range (1-%d)", ErrInvalidRequestParameters, count, maxRegistersPerExchange)
	}
	req := &Request{
		Function:     FuncReadHold,
		StartAddress: start,
		Count:        count,
		SlaveID:      slaveID,
		rtu:          true,
	}
	req.Bytes = frameRTU(slaveID, FuncReadHold, start, count)
	return req, nil
}

// BuildRTUWriteSingleRequest frames a single-register write as an RTU ADU.
func BuildRTUWriteSingleRequest(slaveID uint8, address, value uint16) (*Request, error) {
	if slaveID < SlaveIDMin || slaveID > SlaveIDMax {
		return nil, fmt.Errorf("%w: slave id %d out of range (%d-%d)", ErrInvalidRequestParameters, slaveID, SlaveIDMin, SlaveIDMax)
	}
	req := &Request{
		Function:     FuncWriteSingle,
		StartAddress: address,
		Count:        1,
		SlaveID:      slaveID,
		rtu:          true,
	}
	req.Bytes = frameRTU(slaveID, FuncWriteSingle, address, value)
	return req, nil
}

// frameRTU builds the fixed 8-byte ADU shared by read and write-single
// requests: slave, function, two big-endian words, little-endian CRC.
func frameRTU(slaveID, function uint8, word1, word2 uint16) []byte {
	adu := make([]byte, rtuReadRequestLength)
	adu[0] = slaveID
	adu[1] = function
	binary.BigEndian.PutUint16(adu[2:], word1)
	binary.BigEndian.PutUint16(adu[4:], word2)
	crc := modbusCRC(adu[:6])
	adu[6] = byte(crc)
	adu[7] = byte(crc >> 8)
	return adu
}
