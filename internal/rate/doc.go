// Package rate throttles repository dispatches with Redis fixed-window counters.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. One counter per issue and tag:
//   - rd:<prefix>:<issue>:<tag>
//
// # What this package must NOT do
//
//   - Decide whether a store outage blocks dispatches (the relay fails open).
//   - Be imported outside the goRelay module.
package rate
