// Package hal defines the transport interface between the driver and the
// physical serial bus.
//
// The bus is a synchronous, full-duplex, single-master link shared by every
// chip on the chain. A transport performs one transaction at a time: it
// clocks out a complete frame and clocks in the same number of bytes.
// Implementations are provided for Linux spidev ([spidev]) and for an
// in-memory simulated chain ([sim]) used by tests and demos.
//
// # Implementing a Transport
//
//	type myBus struct{ ... }
//
//	func (b *myBus) Transact(ctx context.Context, tx []byte, rxLen int) (int, []byte, error) {
//	    // clock tx out, capture rxLen bytes in
//	}
//
//	func (b *myBus) Close() error { ... }
//
// Only one goroutine drives a transport in steady state (the driver's
// transmitter); chip detection runs before it starts.
package hal
