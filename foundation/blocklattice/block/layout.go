package block

import (
	"encoding/binary"
	"time"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

// headerSize covers type, network, version, algorithm and public key.
const headerSize = 1 + 1 + 2 + 1 + signature.PublicKeySize

// field names one variant specific value of the canonical layout.
type field uint8

const (
	fieldHeight field = iota
	fieldBalance
	fieldTimestamp
	fieldPrevious
	fieldSendHash
	fieldRepresentative
	fieldReceiver
	fieldAmount
)

var fieldSizes = map[field]int{
	fieldHeight:         8,
	fieldBalance:        8,
	fieldTimestamp:      8,
	fieldPrevious:       signature.HashSize,
	fieldSendHash:       signature.HashSize,
	fieldRepresentative: signature.PublicKeySize,
	fieldReceiver:       signature.PublicKeySize,
	fieldAmount:         8,
}

// layouts lists, in order, the fields written after the header for
// each variant. Open has an implicit height of 1.
var layouts = map[Type][]field{
	Open:    {fieldBalance, fieldTimestamp, fieldSendHash, fieldRepresentative},
	Receive: {fieldHeight, fieldBalance, fieldTimestamp, fieldPrevious, fieldSendHash},
	Send:    {fieldHeight, fieldBalance, fieldTimestamp, fieldPrevious, fieldReceiver, fieldAmount},
	Change:  {fieldHeight, fieldBalance, fieldTimestamp, fieldPrevious, fieldRepresentative},
}

// Size returns the number of bytes in the canonical layout of the variant.
// Unknown variants have a size of zero.
func Size(t Type) int {
	fields, exists := layouts[t]
	if !exists {
		return 0
	}

	size := headerSize
	for _, f := range fields {
		size += fieldSizes[f]
	}

	return size
}

// Bytes returns the canonical little endian layout of the block.
func (b Block) Bytes() []byte {
	buf := make([]byte, Size(b.Type))
	if len(buf) == 0 {
		return nil
	}

	buf[0] = byte(b.Type)
	buf[1] = byte(b.Network)
	binary.LittleEndian.PutUint16(buf[2:], b.Version)
	buf[4] = byte(b.Algorithm)
	copy(buf[5:], b.PublicKey[:])

	offset := headerSize
	for _, f := range layouts[b.Type] {
		dst := buf[offset : offset+fieldSizes[f]]

		switch f {
		case fieldHeight:
			binary.LittleEndian.PutUint64(dst, b.Height)
		case fieldBalance:
			binary.LittleEndian.PutUint64(dst, uint64(b.Balance))
		case fieldTimestamp:
			binary.LittleEndian.PutUint64(dst, uint64(b.Timestamp.UnixMilli()))
		case fieldPrevious:
			copy(dst, b.Previous[:])
		case fieldSendHash:
			copy(dst, b.SendHash[:])
		case fieldRepresentative:
			copy(dst, b.Representative[:])
		case fieldReceiver:
			copy(dst, b.Receiver[:])
		case fieldAmount:
			binary.LittleEndian.PutUint64(dst, uint64(b.Amount))
		}

		offset += len(dst)
	}

	return buf
}

// Parse reads a block from the front of the buffer. It reports false when
// the buffer is shorter than the variant requires or the type is unknown;
// network input is untrusted so neither case is an error.
func Parse(buf []byte) (Block, bool) {
	if len(buf) < 1 {
		return Block{}, false
	}

	t := Type(buf[0])
	size := Size(t)
	if size == 0 || len(buf) < size {
		return Block{}, false
	}

	b := Block{
		Type:      t,
		Network:   genesis.Network(buf[1]),
		Version:   binary.LittleEndian.Uint16(buf[2:]),
		Algorithm: Algorithm(buf[4]),
	}
	copy(b.PublicKey[:], buf[5:headerSize])

	if t == Open {
		b.Height = 1
	}

	offset := headerSize
	for _, f := range layouts[t] {
		src := buf[offset : offset+fieldSizes[f]]

		switch f {
		case fieldHeight:
			b.Height = binary.LittleEndian.Uint64(src)
		case fieldBalance:
			b.Balance = Amount(binary.LittleEndian.Uint64(src))
		case fieldTimestamp:
			b.Timestamp = time.UnixMilli(int64(binary.LittleEndian.Uint64(src))).UTC()
		case fieldPrevious:
			copy(b.Previous[:], src)
		case fieldSendHash:
			copy(b.SendHash[:], src)
		case fieldRepresentative:
			copy(b.Representative[:], src)
		case fieldReceiver:
			copy(b.Receiver[:], src)
		case fieldAmount:
			b.Amount = Amount(binary.LittleEndian.Uint64(src))
		}

		offset += len(src)
	}

	return b, true
}
