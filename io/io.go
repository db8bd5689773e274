// Package io defines the basic interfaces for working with a 65xx family
// I/O port (generally bi-directional). It's intended that implementors of
// I/O call the input callback (if provided) on every clock tick and
// properly account for the fact that output won't mirror input for a
// clock cycle (to account for latches being loaded).
package io

// PortIn8 defines an 8 bit I/O port used as an input.
type PortIn8 interface {
	// Input returns the current value being set on the given input port.
	Input() uint8
}

// PortOut8 defines an 8 bit I/O port used as an output.
type PortOut8 interface {
	// Output returns the current value being driven on the given output port.
	Output() uint8
}
