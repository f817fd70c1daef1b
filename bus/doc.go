// Package bus implements the transaction codec for the hashing chip chain.
//
// Every transaction is one full-duplex frame:
//
//	+------+----------+---------+---------+--------------------+
//	| chip | register | len(lo) | len(hi) | data (len bytes)   |
//	+------+----------+---------+---------+--------------------+
//
// The register byte carries the read flag in bit 7. The data length is the
// larger of the request payload and the expected response, so the response
// always occupies the last RespLen bytes of the clocked-in buffer.
//
// The package also decodes the fixed-size records the chips return (status,
// results, core maps) and implements the setup-time helpers that talk to
// the bus before the driver's transmitter owns it: chip detection by
// signature and the chip initialisation sequence.
package bus
