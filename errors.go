package lact

import "github.com/kyledaala/lact/internal/frame"

// Error kinds surfaced by the engine. Compare with errors.Is; the engine
// never retries: any of these aborts the current packet whole.
var (
	// ErrFault reports a required argument was missing or invalid.
	ErrFault = frame.ErrFault
	// ErrInvalidState reports a decode call after end of stream.
	ErrInvalidState = frame.ErrInvalidState
	// ErrBadPacket reports malformed framing, entropy underflow, or an
	// impossible symbol. The previously committed frame is untouched.
	ErrBadPacket = frame.ErrBadPacket
	// ErrUnimplemented reports an unrecognized control request.
	ErrUnimplemented = frame.ErrUnimplemented
)
