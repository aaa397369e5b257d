package tau2

// The Tau 2 packet protocol checksums both the 6-byte header and the optional
// argument block with CRC-16/CCITT in its XModem form: polynomial 0x1021,
// initial value 0, no reflection, no final XOR. This matches the reference
// implementation used by the official camera software.

const (
	crcPolynomial = 0x1021
	crcInit       = 0x0000
)

var crcTable = makeCRCTable()

func makeCRCTable() [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// crc16 computes the CRC-16/CCITT-XModem checksum of data. Both the header
// CRC and the argument CRC use this one routine over an explicit byte range;
// callers never checksum partially built structures.
func crc16(data []byte) uint16 {
	crc := uint16(crcInit)
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}
