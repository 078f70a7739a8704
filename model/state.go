package model

// State is a snapshot of the propagated vehicle at one instant: inertial
// position and velocity plus total mass. States are immutable values;
// whichever component currently drives the propagation owns "the current"
// one and derives new snapshots rather than mutating it.
type State struct {
	Epoch    Epoch
	Position Vec3 // metres, inertial frame
	Velocity Vec3 // metres per second, inertial frame
	Mass     float64
}
