// Package supply connects the driver to the outside world: where work comes
// from, how nonces are checked and where accepted results go.
//
// [Redis] keeps work, outcomes and results in a Redis server so producers
// and consumers can run elsewhere. [Memory] generates work locally and keeps
// everything in process, for demos and tests. [Validator] joins a nonce
// [Checker] with a [Sink] to satisfy driver.Validator.
//
// Redis key pattern: {prefix}:{entity}
//
//	{prefix}:work       list of pending work, consumed from the head
//	{prefix}:completed  list of completed job records (capped)
//	{prefix}:discarded  list of discarded job records (capped)
//	{prefix}:results    stream of accepted nonces (capped)
package supply
