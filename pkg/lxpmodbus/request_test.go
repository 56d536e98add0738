package lxpmodbus

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildReadRequestFraming(t *testing.T) {
	req, err := BuildReadRequest(testDongleSerial, testInverterSerial, 7, 2)
	if err != nil {
		t.Fatal(err)
	}

	frame := req.Bytes
	assert.Equal(t, byte(PrefixByte0), frame[0])
	assert.Equal(t, byte(PrefixByte1), frame[1])
	assert.Equal(t, uint16(ProtocolVersion), binary.LittleEndian.Uint16(frame[2:]))
	assert.Equal(t, len(frame)-6, int(binary.LittleEndian.Uint16(frame[4:])))
	assert.Equal(t, byte(TCPFunctionTranslatedData), frame[7])
	assert.Equal(t, testDongleSerial, string(frame[8:18]))

	data := frame[tcpHeaderLength:]
	assert.Equal(t, byte(ActionRequest), data[0])
	assert.Equal(t, byte(FuncReadHold), data[1])
	assert.Equal(t, testInverterSerial, string(data[2:12]))
	assert.Equal(t, uint16(7), binary.LittleEndian.Uint16(data[12:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[14:]))

	crc := binary.LittleEndian.Uint16(data[len(data)-2:])
	assert.Equal(t, modbusCRC(data[:len(data)-2]), crc)
}

func TestBuildReadRequestRejectsBadSerials(t *testing.T) {
	cases := []struct {
		name           string
		dongle, serial string
	}{
		{"short dongle", "BA123", testInverterSerial},
		{"long dongle", "BA1234567890", testInverterSerial},
		{"short inverter", testDongleSerial, "CD123"},
		{"empty inverter", testDongleSerial, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildReadRequest(tc.dongle, tc.serial, 0, 1)
			assert.True(t, errors.Is(err, ErrInvalidRequestParameters))
		})
	}
}

func TestBuildReadRequestRejectsOversizedCount(t *testing.T) {
	_, err := BuildReadRequest(testDongleSerial, testInverterSerial, 0, uint16(maxRegistersPerExchange+1))
	assert.True(t, errors.Is(err, ErrInvalidRequestParameters))

	_, err = BuildReadRequest(testDongleSerial, testInverterSerial, 0, 0)
	assert.True(t, errors.Is(err, ErrInvalidRequestParameters))
}

func TestBuildRTUReadRequestFraming(t *testing.T) {
	req, err := BuildRTUReadRequest(5, 0x0010, 40)
	if err != nil {
		t.Fatal(err)
	}
	frame := req.Bytes
	assert.Len(t, frame, rtuReadRequestLength)
	assert.Equal(t, byte(5), frame[0])
	assert.Equal(t, byte(FuncReadHold), frame[1])
	assert.Equal(t, uint16(0x0010), binary.BigEndian.Uint16(frame[2:]))
	assert.Equal(t, uint16(40), binary.BigEndian.Uint16(frame[4:]))
	assert.Equal(t, modbusCRC(frame[:6]), binary.LittleEndian.Uint16(frame[6:]))
}

func TestBuildRTURequestRejectsBadSlaveID(t *testing.T) {
	for _, id := range []uint8{0, 248, 255} {
		_, err := BuildRTUReadRequest(id, 0, 1)
		assert.True(t, errors.Is(err, ErrInvalidRequestParameters), "slave id %d", id)
	}
}

func TestBuildWriteSingleRequestFraming(t *testing.T) {
	req, err := BuildWriteSingleRequest(testDongleSerial, testInverterSerial, 21, 80)
	if err != nil {
		t.Fatal(err)
	}
	data := req.Bytes[tcpHeaderLength:]
	assert.Equal(t, byte(FuncWriteSingle), data[1])
	assert.Equal(t, uint16(21), binary.LittleEndian.Uint16(data[12:]))
	assert.Equal(t, uint16(80), binary.LittleEndian.Uint16(data[14:]))
}

func TestBuildWriteMultipleRequestFraming(t *testing.T) {
	req, err := BuildWriteMultipleRequest(testDongleSerial, testInverterSerial, 64, []uint16{1, 50, 90})
	if err != nil {
		t.Fatal(err)
	}

	frame := req.Bytes
	assert.Equal(t, byte(PrefixByte0), frame[0])
	assert.Equal(t, len(frame)-6, int(binary.LittleEndian.Uint16(frame[4:])))
	assert.Equal(t, uint16(3), req.Count)

	data := frame[tcpHeaderLength:]
	assert.Equal(t, byte(ActionRequest), data[0])
	assert.Equal(t, byte(FuncWriteMultiple), data[1])
	assert.Equal(t, testInverterSerial, string(data[2:12]))
	assert.Equal(t, uint16(64), binary.LittleEndian.Uint16(data[12:]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(data[14:]))
	assert.Equal(t, byte(6), data[16], "byte count")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[17:]))
	assert.Equal(t, uint16(50), binary.LittleEndian.Uint16(data[19:]))
	assert.Equal(t, uint16(90), binary.LittleEndian.Uint16(data[21:]))

	crc := binary.LittleEndian.Uint16(data[len(data)-2:])
	assert.Equal(t, modbusCRC(data[:len(data)-2]), crc)
}

func TestBuildWriteMultipleRequestRejectsBadValueCounts(t *testing.T) {
	_, err := BuildWriteMultipleRequest(testDongleSerial, testInverterSerial, 64, nil)
	assert.True(t, errors.Is(err, ErrInvalidRequestParameters))

	_, err = BuildWriteMultipleRequest(testDongleSerial, testInverterSerial, 64, make([]uint16, maxRegistersPerExchange+1))
	assert.True(t, errors.Is(err, ErrInvalidRequestParameters))
}
