package dxbc

import (
	"crypto/md5"
	"encoding/binary"
	"hash"
)

// Checksum computes the DXBC container checksum of data (the container
// bytes following the checksum field). It is MD5 with a nonstandard final
// padding: the bit length is stored ahead of the trailing bytes and a second
// length word ((bits >> 2) | 1) closes the last block. The result holds the
// four MD5 state words in little-endian order.
func Checksum(data []byte) [16]byte {
	h := md5.New()

	full := len(data) &^ (md5.BlockSize - 1)
	h.Write(data[:full])
	leftover := data[full:]

	numBits := uint32(len(data)) * 8
	numBits2 := (numBits >> 2) | 1

	var block [md5.BlockSize]byte
	if len(leftover) >= 56 {
		n := copy(block[:], leftover)
		block[n] = 0x80
		h.Write(block[:])

		block = [md5.BlockSize]byte{}
		binary.LittleEndian.PutUint32(block[0:], numBits)
		binary.LittleEndian.PutUint32(block[60:], numBits2)
		h.Write(block[:])
	} else {
		binary.LittleEndian.PutUint32(block[0:], numBits)
		n := copy(block[4:], leftover)
		block[4+n] = 0x80
		binary.LittleEndian.PutUint32(block[60:], numBits2)
		h.Write(block[:])
	}

	return md5State(h)
}

// md5State extracts the raw MD5 state words after whole blocks were written.
// The marshaled digest is "md5\x01" followed by the four words big-endian.
func md5State(h hash.Hash) [16]byte {
	var out [16]byte
	state, err := h.(interface{ MarshalBinary() ([]byte, error) }).MarshalBinary()
	if err != nil || len(state) < 20 {
		return out
	}
	for i := 0; i < 4; i++ {
		w := binary.BigEndian.Uint32(state[4+4*i:])
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}
