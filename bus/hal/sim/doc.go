// Package sim provides an in-memory chip chain implementing hal.Transport.
//
// The chain answers the full register map: signature, status, core-enable,
// nonce range, control, job submit and result reads. Time advances one tick
// per transaction; a chip completes the job at the head of its queue every
// JobTicks ticks, emitting NoncesPerJob result records followed by one
// no-nonce record. Nonces are derived from the work data with [Nonce], so a
// [Checker] can validate them without a real hash function.
//
// Fault injection (short transfers, transport errors, oversized replies,
// wrong signatures, absent chips) lets tests drive the driver's error paths.
//
// # Example
//
//	chain := sim.New(sim.DefaultConfig())
//	d := driver.New(driver.DefaultConfig(), chain, source, sim.Checker{NoncesPerJob: 2})
package sim
