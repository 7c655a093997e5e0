// Package scd30 implements the I2C command set of the Sensirion SCD30 CO2
// sensor.
//
// Every transaction is a fixed-length command write followed, for queries, by
// a fixed-length read from the device at Address. Multi-byte responses are
// sent as 16-bit words, each followed by a CRC-8 byte (polynomial 0x31,
// initial value 0xFF, no reflection, no final XOR). The driver validates every
// CRC byte before returning data and never hands out a partially validated
// response.
//
// # Measurement layout
//
// A measurement read returns 18 bytes holding three big-endian IEEE-754
// floats (CO2, temperature, humidity). Float k occupies offsets 6k..6k+5:
//
//	6k+0  data MSB
//	6k+1  data
//	6k+2  CRC over 6k+0..6k+1
//	6k+3  data
//	6k+4  data LSB
//	6k+5  CRC over 6k+3..6k+4
//
// so CO2 is built from offsets 0,1,3,4, temperature from 6,7,9,10 and
// humidity from 12,13,15,16.
package scd30
