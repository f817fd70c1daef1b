// Package config loads the hashspi YAML configuration.
//
// Every field has a default, so an empty file (or no file) is a valid
// configuration that drives a simulated chain with locally generated work.
//
//	driver:
//	  chips: 4
//	  low_water: 2
//	  high_water: 4
//	  request_interval: 2ms
//	  disabled: [3]
//	bus:
//	  kind: spidev          # sim | spidev
//	  device: /dev/spidev0.0
//	  speed_hz: 8000000
//	supply:
//	  kind: redis           # memory | redis
//	  redis:
//	    addr: localhost:6379
//	    prefix: hashspi
//	log:
//	  level: info
//	  format: text
package config
