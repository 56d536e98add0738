package lxpmodbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTCPResponseRoundTrip(t *testing.T) {
	req, err := BuildReadRequest(testDongleSerial, testInverterSerial, 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 7, []uint16{0x0004, 0x0000})

	resp := ParseTCPResponse(frame, req)
	assert.False(t, resp.IsError(), resp.Reason)
	assert.Equal(t, map[uint16]uint16{7: 4, 8: 0}, resp.Registers())
	assert.Equal(t, []uint16{7, 8}, resp.RegisterAddresses())
	assert.Equal(t, testInverterSerial, resp.InverterSerial)
}

func TestParseTCPResponseShortBuffers(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	valid := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{1})

	for n := 0; n < ResponseOverhead; n++ {
		resp := ParseTCPResponse(valid[:n], req)
		assert.True(t, resp.IsError(), "length %d accepted", n)
		assert.Empty(t, resp.Registers(), "length %d populated registers", n)
	}
}

func TestParseTCPResponseCorruptCRC(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{1})
	frame[len(frame)-1] ^= 0xFF

	resp := ParseTCPResponse(frame, req)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Reason, "crc")
	assert.Empty(t, resp.Registers())
}

func TestParseTCPResponseSerialMismatch(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	frame := buildTCPReadResponse(testDongleSerial, "ZZ99999999", FuncReadHold, 0, []uint16{1})

	resp := ParseTCPResponse(frame, req)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Reason, "serial mismatch")
}

func TestParseTCPResponseFunctionMismatch(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 1)
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadInput, 0, []uint16{1})

	resp := ParseTCPResponse(frame, req)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Reason, "function mismatch")
}

func TestParseTCPResponseDeclaredLengthMismatch(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 0, 2)
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{1, 2})
	frame[4]++ // declared length no longer matches the buffer

	resp := ParseTCPResponse(frame, req)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Reason, "declared length")
}

func TestParseTCPWriteAck(t *testing.T) {
	req, err := BuildWriteSingleRequest(testDongleSerial, testInverterSerial, 21, 80)
	if err != nil {
		t.Fatal(err)
	}
	ack := buildTCPWriteAck(testDongleSerial, testInverterSerial, FuncWriteSingle, 21, 80)
	assert.Len(t, ack, WriteAckLength)

	resp := ParseTCPResponse(ack, req)
	assert.False(t, resp.IsError(), resp.Reason)
	assert.Equal(t, uint16(80), resp.Registers()[21])
}

func TestParseTCPWriteAckWrongLength(t *testing.T) {
	req, _ := BuildWriteSingleRequest(testDongleSerial, testInverterSerial, 21, 80)
	// a read-shaped reply is the wrong kind for a write request
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncWriteSingle, 21, []uint16{80})

	resp := ParseTCPResponse(frame, req)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Reason, "write ack length")
}

func TestParseRTUResponseRoundTrip(t *testing.T) {
	req, err := BuildRTUReadRequest(1, 16, 3)
	if err != nil {
		t.Fatal(err)
	}
	frame := buildRTUReadResponse(1, FuncReadHold, []uint16{10, 20, 30})

	resp := ParseRTUResponse(frame, req)
	assert.False(t, resp.IsError(), resp.Reason)
	assert.Equal(t, map[uint16]uint16{16: 10, 17: 20, 18: 30}, resp.Registers())
}

func TestParseRTUResponseException(t *testing.T) {
	req, _ := BuildRTUReadRequest(1, 0, 1)
	adu := []byte{1, FuncReadHold | 0x80, 0x02}
	crc := modbusCRC(adu)
	adu = append(adu, byte(crc), byte(crc>>8))

	resp := ParseRTUResponse(adu, req)
	assert.True(t, resp.IsError())
	assert.Equal(t, uint8(0x02), resp.ExceptionCode)
	assert.Empty(t, resp.Registers())
}

func TestParseRTUResponseWrongSlave(t *testing.T) {
	req, _ := BuildRTUReadRequest(1, 0, 1)
	frame := buildRTUReadResponse(2, FuncReadHold, []uint16{1})

	resp := ParseRTUResponse(frame, req)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.Reason, "slave id mismatch")
}
