// Package sim provides the discrete-event simulation kernel used to study
// consensus and dissemination protocols on simulated networks.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - network.go: the scheduler (virtual clock, node registry, envelope queue, run loop)
//   - message.go: the Message contract and the Task, PeriodicTask and ConditionalTask variants
//   - flood.go: FloodMessage, the de-duplicating gossip primitive
//
// # Determinism
//
// A Network is single-threaded. Envelopes are ordered by delivery time and
// then by insertion sequence, and every random decision draws from the
// Network's PartitionedRNG. The same SimulationKey and the same protocol
// parameters therefore replay the same run event for event.
//
// # Architecture
//
// The sim package owns the kernel; everything else lives in sub-packages:
//   - sim/geo/: city → map position table used by the geographic latency model
//   - sim/trace/: envelope trace records (pure data, no dependency on sim)
//   - sim/stats/: per-node metric aggregation
//   - sim/protocol/: protocol registry, typed parameters and the control Session
//   - sim/protocol/{gossip,handel,pow,snowflake}/: protocol implementations
//
// Protocol sub-packages register their factories via init() functions in
// register.go; importing a protocol package makes it available by name.
package sim
