package scd30

const (
	crcPolynomial = 0x31
	crcInit       = 0xFF
)

// crcTable is the byte-wise lookup table for polynomial 0x31 (MSB first).
var crcTable = func() (table [256]byte) {
	for i := range table {
		crc := byte(i)
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}

	return table
}()

// CRC8 computes the Sensirion CRC-8 of data.
func CRC8(data []byte) byte {
	crc := byte(crcInit)
	for _, b := range data {
		crc = crcTable[crc^b]
	}

	return crc
}

// checkWord validates a 2-byte word followed by its CRC byte.
func checkWord(word []byte) bool {
	return CRC8(word[:2]) == word[2]
}
