// Package lact implements the core decoding pipeline of a lapped-transform
// video codec: per-packet reconstruction combining a range-coded block-size
// quad-tree, a hierarchical motion-vector grid, pyramid-vector-quantized
// coefficients with adaptive statistics, lapped pre/post-filters in place
// of in-loop deblocking, and an optional directional dering post-filter.
//
// The package exposes the control- and data-plane surface only; the decode
// machinery lives in internal/frame and its leaf packages. A typical
// caller:
//
//	eng, err := lact.Alloc(&lact.Info{PicWidth: 320, PicHeight: 240, NPlanes: 1}, nil)
//	if err != nil { ... }
//	defer lact.Free(eng)
//	var img lact.Image
//	for _, pkt := range packets {
//		if err := eng.DecodePacketIn(&img, pkt); err != nil { ... }
//		// img borrows the engine's reference ring until the next call.
//	}
package lact

import "github.com/kyledaala/lact/internal/frame"

// Re-exported decode types; see internal/frame for their contracts.
type (
	// Info describes a stream: picture dimensions and per-plane
	// subsampling (4:4:4 or 4:2:0).
	Info = frame.Info
	// PlaneInfo is one plane's subsampling factors.
	PlaneInfo = frame.PlaneInfo
	// Setup carries optional collaborators and switches for Alloc.
	Setup = frame.Setup
	// Packet is one compressed frame.
	Packet = frame.Packet
	// Image is a decoded picture borrowed from the engine.
	Image = frame.Image
	// Plane is one component of an Image.
	Plane = frame.Plane
	// Engine is a per-stream decoder.
	Engine = frame.Engine
	// MotionCompensator is the motion-compensation collaborator contract.
	MotionCompensator = frame.MotionCompensator
	// PostfilterStrategy selects the reconstruction-side filter.
	PostfilterStrategy = frame.PostfilterStrategy
)

// Postfilter strategies: the lapped filter (exact inverse of the encoder's
// prefilter) or Thor-style deblocking. Exactly one applies per engine.
const (
	PostfilterLapped  = frame.PostfilterLapped
	PostfilterDeblock = frame.PostfilterDeblock
)

// Alloc constructs an engine for the described stream; setup may be nil
// for the defaults.
func Alloc(info *Info, setup *Setup) (*Engine, error) {
	return frame.Alloc(info, setup)
}

// Free releases an engine. Safe on nil.
func Free(e *Engine) {
	e.Free()
}
