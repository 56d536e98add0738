// Package lxpmodbus implements the LuxPower inverter register protocol over
// two transports: the proprietary TCP framing spoken by the WiFi dongle
// (serial-addressed translated-data frames) and plain Modbus RTU on RS-485.
package lxpmodbus

import "time"

// TCP frame header. Multi-byte fields are little-endian.
const (
	PrefixByte0 = 0xA1
	PrefixByte1 = 0x1A

	ProtocolVersion = 2

	TCPFunctionHeartbeat      = 0xC1
	TCPFunctionTranslatedData = 0xC2

	// actions inside a translated-data frame
	ActionRequest  = 0x00
	ActionResponse = 0x01
)

// Device functions carried inside a frame. Same values for both transports.
const (
	FuncReadHold      = 0x03
	FuncReadInput     = 0x04
	FuncWriteSingle   = 0x06
	FuncWriteMultiple = 0x10
)

const (
	SerialLength = 10

	// total size of the TCP header: prefix(2) + protocol(2) + frame
	// length(2) + address(1) + tcp function(1) + dongle serial(10) +
	// data length(2)
	tcpHeaderLength = 20

	// translated-data frame prelude on a read response: action(1) +
	// device function(1) + inverter serial(10) + register(2) + value
	// length(1)
	tcpReadPreludeLength = 15

	// ResponseOverhead is the shortest valid read response: header,
	// response prelude with an empty value payload, CRC trailer.
	ResponseOverhead = tcpHeaderLength + tcpReadPreludeLength + crcLength // 37

	// WriteAckLength is the fixed size of a write acknowledgement frame.
	// The inverter pads the echoed register/value pair with a reserved
	// status block to a constant length.
	WriteAckLength = 76

	crcLength = 2
)

// RTU framing per the Modbus spec.
const (
	rtuReadRequestLength = 8
	rtuWriteAckLength    = 8
	rtuMinResponseLength = 5

	SlaveIDMin = 1
	SlaveIDMax = 247
)

// Recovery and sizing bounds, shared by both transports.
const (
	MaxPacketSize             = 1024
	MaxPacketRecoveryAttempts = 3
	PacketRecoveryTimeout     = 2 * time.Second
)

// Register map bounds. Legacy firmware responds to at most 40 registers per
// read, current firmware to 125.
const (
	TotalRegisters          = 300
	DefaultRegisterBlock    = 125
	LegacyRegisterBlock     = 40
	maxRegistersPerExchange = (MaxPacketSize - ResponseOverhead) / 2
)
