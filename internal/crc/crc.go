// Package crc implements CRC-16/XMODEM (poly 0x1021, init 0, no reflection).
//
// Checksum is the table-driven bulk form used on the host. Update is the
// bitwise single-byte form the target folds bytes through as they arrive.
// The two must agree on every input.
package crc

import "github.com/sigurn/crc16"

// Polynomial is the XMODEM generator polynomial.
const Polynomial = 0x1021

var table = crc16.MakeTable(crc16.CRC16_XMODEM)

// Checksum returns the CRC-16/XMODEM of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, table)
}

// Update folds one byte into a running CRC.
func Update(crc uint16, b byte) uint16 {
	crc ^= uint16(b) << 8
	for i := 0; i < 8; i++ {
		if crc&0x8000 != 0 {
			crc = crc<<1 ^ Polynomial
		} else {
			crc <<= 1
		}
	}
	return crc
}

// UpdateBytes folds data into a running CRC one byte at a time.
func UpdateBytes(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = Update(crc, b)
	}
	return crc
}
