package lxpmodbus

import "fmt"

// frameScan locates the frame starting at buf[0] and returns its total
// length. It returns errFrameIncomplete when the buffer may still grow into
// a valid frame and errBadFrame when buf[0] cannot start one.
type frameScan func(buf []byte) (int, error)

// streamRecovery reassembles protocol frames from a byte stream that is not
// packet-atomic: serial reads deliver partial frames, line noise, or several
// frames back to back. Each transport session owns exactly one instance; the
// accumulation buffer is never shared across sessions.
type streamRecovery struct {
	buf      []byte
	scan     frameScan
	attempts int
}

func newStreamRecovery(scan frameScan) *streamRecovery {
	return &streamRecovery{scan: scan}
}

// reset drops all buffered bytes and the resync budget. Called once per
// request so the bounds in next apply per exchange.
func (r *streamRecovery) reset() {
	r.buf = r.buf[:0]
	r.attempts = 0
}

// feed appends freshly read bytes to the accumulation buffer.
func (r *streamRecovery) feed(p []byte) {
	r.buf = append(r.buf, p...)
}

// next attempts to extract one complete frame from the buffer.
//
// A valid frame at offset zero is consumed and returned. A short buffer
// returns (nil, nil): the caller should read more bytes, bounded by its
// recovery deadline. An invalid frame start discards bytes up to the next
// plausible start; each such resynchronization burns one recovery attempt.
// Exceeding MaxPacketRecoveryAttempts or MaxPacketSize discards the buffer
// and fails with ErrFrameRecoveryExhausted.
func (r *streamRecovery) next() ([]byte, error) {
	for {
		n, err := r.scan(r.buf)
		if err == nil {
			frame := make([]byte, n)
			copy(frame, r.buf)
			r.buf = append(r.buf[:0], r.buf[n:]...)
			return frame, nil
		}
		if err == errFrameIncomplete {
			if len(r.buf) > MaxPacketSize {
				r.buf = r.buf[:0]
				return nil, fmt.Errorf("%w: buffer exceeded %d bytes without a valid frame", ErrFrameRecoveryExhausted, MaxPacketSize)
			}
			return nil, nil
		}

		// invalid frame start: resynchronize on the next candidate byte
		if r.attempts++; r.attempts > MaxPacketRecoveryAttempts {
			r.buf = r.buf[:0]
			return nil, fmt.Errorf("%w: no valid frame after %d resync attempts", ErrFrameRecoveryExhausted, MaxPacketRecoveryAttempts)
		}
		r.buf = r.discardToCandidate()
	}
}

// discardToCandidate drops the garbage prefix up to the next byte that could
// start a frame, or the whole buffer when no candidate remains. At least one
// byte is always discarded so resynchronization makes progress.
func (r *streamRecovery) discardToCandidate() []byte {
	for i := 1; i < len(r.buf); i++ {
		if _, err := r.scan(r.buf[i:]); err != errBadFrame {
			return append(r.buf[:0], r.buf[i:]...)
		}
	}
	return r.buf[:0]
}
