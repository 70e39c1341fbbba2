// Package instr holds the shared vocabulary of the benchio packages: the error
// taxonomy every driver surfaces, the unit-tagged readings they produce, the
// thermal chamber time scheme, and the capability interfaces that both the
// hardware drivers and their emulators satisfy.
//
// Calibration code is expected to depend only on the interfaces declared here.
// Which concrete implementation backs an interface is decided once, when the
// bench is assembled, and never changes afterwards.
package instr
