package lxpmodbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tcpRecovery() *streamRecovery {
	return newStreamRecovery(scanTCPFrame)
}

func TestRecoveryByteAtATime(t *testing.T) {
	req, _ := BuildReadRequest(testDongleSerial, testInverterSerial, 7, 2)
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 7, []uint16{4, 0})

	r := tcpRecovery()
	var got []byte
	for i, b := range frame {
		r.feed([]byte{b})
		extracted, err := r.next()
		if err != nil {
			t.Fatal(err)
		}
		if extracted != nil {
			assert.Equal(t, len(frame)-1, i, "frame yielded before final byte")
			got = extracted
		}
	}
	if assert.NotNil(t, got) {
		assert.Equal(t, frame, got)
		resp := ParseTCPResponse(got, req)
		assert.False(t, resp.IsError(), resp.Reason)
		assert.Equal(t, ParseTCPResponse(frame, req).Registers(), resp.Registers())
	}
}

func TestRecoveryWholeFrameAtOnce(t *testing.T) {
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{1})

	r := tcpRecovery()
	r.feed(frame)
	got, err := r.next()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, frame, got)
}

func TestRecoveryResyncsPastGarbagePrefix(t *testing.T) {
	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{42})
	noisy := append([]byte{0x00, 0xFF, 0x13, 0x37}, frame...)

	r := tcpRecovery()
	r.feed(noisy)
	got, err := r.next()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, frame, got, "garbage prefix not discarded cleanly")
}

func TestRecoveryConcatenatedFrames(t *testing.T) {
	first := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{1})
	second := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 2, []uint16{3})

	r := tcpRecovery()
	r.feed(append(append([]byte{}, first...), second...))

	got1, err := r.next()
	if err != nil {
		t.Fatal(err)
	}
	got2, err := r.next()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, first, got1)
	assert.Equal(t, second, got2)
}

func TestRecoveryExhaustsOnEndlessGarbage(t *testing.T) {
	r := tcpRecovery()

	var failed error
	for i := 0; i < MaxPacketSize*2 && failed == nil; i++ {
		// 0xA1-led junk: every resync lands on another bogus header
		r.feed([]byte{PrefixByte0, 0x00, 0x00, 0x00})
		_, failed = r.next()
	}
	assert.True(t, errors.Is(failed, ErrFrameRecoveryExhausted), "got %v", failed)
}

func TestRecoveryRejectsOversizedDeclaredLength(t *testing.T) {
	r := tcpRecovery()

	// a header declaring a frame larger than MaxPacketSize can never
	// become valid, no matter how many bytes follow
	header := []byte{PrefixByte0, PrefixByte1, 2, 0, 0xFE, 0x03}
	r.feed(header)

	var err error
	for i := 0; i < MaxPacketSize+1 && err == nil; i++ {
		r.feed([]byte{0xAB})
		_, err = r.next()
	}
	assert.True(t, errors.Is(err, ErrFrameRecoveryExhausted), "got %v", err)
}

func TestRecoveryResetDropsBufferedNoise(t *testing.T) {
	r := tcpRecovery()
	r.feed([]byte{1, 2, 3})
	r.reset()

	frame := buildTCPReadResponse(testDongleSerial, testInverterSerial, FuncReadHold, 0, []uint16{9})
	r.feed(frame)
	got, err := r.next()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, frame, got)
}

func TestRecoveryRTUByteAtATime(t *testing.T) {
	req, _ := BuildRTUReadRequest(1, 16, 2)
	frame := buildRTUReadResponse(1, FuncReadHold, []uint16{10, 20})

	r := newStreamRecovery(func(buf []byte) (int, error) { return scanRTUFrame(buf, req) })
	var got []byte
	for _, b := range frame {
		r.feed([]byte{b})
		extracted, err := r.next()
		if err != nil {
			t.Fatal(err)
		}
		if extracted != nil {
			got = extracted
		}
	}
	if assert.NotNil(t, got) {
		resp := ParseRTUResponse(got, req)
		assert.False(t, resp.IsError(), resp.Reason)
		assert.Equal(t, uint16(10), resp.Registers()[16])
	}
}
