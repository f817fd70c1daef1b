//go:build linux && (arm || arm64 || amd64 || 386 || riscv64)

package spidev

// ioctl encoding for the asm-generic layout.
//
//	bits 0-7:   command number (nr)
//	bits 8-15:  ioctl type (type)
//	bits 16-29: argument size (size)
//	bits 30-31: direction (dir)
const (
	iocWrite = 1

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

// ioc constructs an ioctl number from direction, type, number, and size.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

// iow constructs a write ioctl number.
func iow(typ, nr, size uintptr) uintptr {
	return ioc(iocWrite, typ, nr, size)
}

// spidev ioctl type character.
const spiIOCMagic = 'k'

// Size of struct spi_ioc_transfer.
const sizeofTransfer = 32

var (
	ioctlMessage1  = iow(spiIOCMagic, 0, sizeofTransfer) // SPI_IOC_MESSAGE(1)
	ioctlWrMode    = iow(spiIOCMagic, 1, 1)              // SPI_IOC_WR_MODE
	ioctlWrBits    = iow(spiIOCMagic, 3, 1)              // SPI_IOC_WR_BITS_PER_WORD
	ioctlWrSpeedHz = iow(spiIOCMagic, 4, 4)              // SPI_IOC_WR_MAX_SPEED_HZ
)
