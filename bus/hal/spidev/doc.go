// Package spidev provides a hal.Transport for Linux spidev character
// devices.
//
// Each transaction is a single SPI_IOC_MESSAGE(1) ioctl with equal-length
// transmit and receive buffers, so chip select stays asserted for the whole
// frame. The package is pure Go (no cgo) and issues raw syscalls.
//
// # Requirements
//
// The user running the driver needs read/write access to the device node
// (/dev/spidevB.C), typically through a udev rule or group membership.
// On other platforms [Open] returns pkg.ErrNotSupported.
package spidev
