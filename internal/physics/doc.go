// Package physics holds the particle state and the SPH pair formulas used by
// the fluid simulation.
//
// The package is deliberately free of any spatial bookkeeping. It knows how a
// single particle moves and how two particles interact:
//
//   - [Particle]: mutable state of one fluid particle
//   - [Params]: fixed physical constants of a run
//   - [Constants]: Params plus everything derived from particles-per-meter
//   - [AccumulateDensity], [TransferAcceleration]: pair interactions
//   - [BoxCollision], [BoundaryCollision]: wall handling
//
// Neighbor search lives in the grid package and the leapfrog update in the
// integrators package.
//
// # Example
//
//	c := physics.NewConstants(physics.DefaultParams(), 204.0)
//	p := physics.NewParticle(0, pos, hv, vel, c.Gravity)
//	physics.AccumulateDensity(&p, &q, c)
package physics
