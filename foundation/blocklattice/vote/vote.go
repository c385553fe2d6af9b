// Package vote defines the votes representatives cast for transactions and
// the contract used to weigh them.
package vote

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

// MaxVersion is the highest vote version this node understands.
const MaxVersion uint16 = 0

// Size is the number of bytes in the wire layout of a vote.
const Size = 2 + 1 + signature.PublicKeySize + 1 + signature.HashSize + 8 + signature.SignatureSize

// MaxAge is how old a provisional vote can be before it's ignored.
const MaxAge = time.Minute

// FinalTimestamp marks a vote as final. Final votes are never replaced.
var FinalTimestamp = time.UnixMilli(math.MaxInt64).UTC()

// Set of errors returned by Validate.
var (
	ErrVersion   = errors.New("unsupported vote version")
	ErrAlgorithm = errors.New("unknown vote algorithm")
	ErrTooOld    = errors.New("vote too old")
	ErrSignature = errors.New("invalid vote signature")
)

// Weighter provides the weights used to count votes. Both values change as
// the ledger changes, so callers must not cache them.
type Weighter interface {
	Weight(publicKey signature.PublicKey) block.Amount
	MinimalConfirmationWeight() block.Amount
}

// Vote is a representative's signed statement in favor of a block. Weight
// and ReceivedAt are local and not part of the wire layout.
type Vote struct {
	Version        uint16              `json:"version"`
	Algorithm      block.Algorithm     `json:"algorithm"`
	PublicKey      signature.PublicKey `json:"public_key"`
	BlockAlgorithm block.Algorithm     `json:"block_algorithm"`
	BlockHash      signature.Hash      `json:"block_hash"`
	Timestamp      time.Time           `json:"timestamp"`
	Signature      signature.Signature `json:"signature"`
	Weight         block.Amount        `json:"weight"`
	ReceivedAt     time.Time           `json:"received_at"`
}

// Sign constructs a vote for the block hash. Use FinalTimestamp to cast a
// final vote.
func Sign(key signature.PrivateKey, blockHash signature.Hash, ts time.Time) Vote {
	ts = time.UnixMilli(ts.UnixMilli()).UTC()

	return Vote{
		Version:        MaxVersion,
		Algorithm:      block.V1,
		PublicKey:      key.PublicKey(),
		BlockAlgorithm: block.V1,
		BlockHash:      blockHash,
		Timestamp:      ts,
		Signature:      key.Sign(Hash(blockHash, block.V1, ts)),
		ReceivedAt:     time.Now().UTC(),
	}
}

// Hash returns the hash a vote signature covers.
func Hash(blockHash signature.Hash, algorithm block.Algorithm, ts time.Time) signature.Hash {
	var millis [8]byte
	binary.LittleEndian.PutUint64(millis[:], uint64(ts.UnixMilli()))

	return signature.HashOf(blockHash[:], []byte{byte(algorithm)}, millis[:])
}

// IsFinal reports whether the vote carries the final timestamp.
func (v Vote) IsFinal() bool {
	return v.Timestamp.UnixMilli() == math.MaxInt64
}

// Validate checks the vote's signature and that a provisional vote
// is recent enough to count.
func (v Vote) Validate(now time.Time) error {
	if v.Version > MaxVersion {
		return ErrVersion
	}

	if v.Algorithm != block.V1 || v.BlockAlgorithm != block.V1 {
		return ErrAlgorithm
	}

	if !v.IsFinal() && v.Timestamp.Before(now.Add(-MaxAge)) {
		return ErrTooOld
	}

	if !signature.Verify(v.PublicKey, Hash(v.BlockHash, v.Algorithm, v.Timestamp), v.Signature) {
		return ErrSignature
	}

	return nil
}

// IsValid reports whether the vote passes Validate.
func (v Vote) IsValid(now time.Time) bool {
	return v.Validate(now) == nil
}

// =============================================================================

// Bytes returns the little endian wire layout of the vote.
func (v Vote) Bytes() []byte {
	buf := make([]byte, Size)

	binary.LittleEndian.PutUint16(buf[0:], v.Version)
	buf[2] = byte(v.Algorithm)
	offset := 3
	offset += copy(buf[offset:], v.PublicKey[:])
	buf[offset] = byte(v.BlockAlgorithm)
	offset++
	offset += copy(buf[offset:], v.BlockHash[:])
	binary.LittleEndian.PutUint64(buf[offset:], uint64(v.Timestamp.UnixMilli()))
	offset += 8
	copy(buf[offset:], v.Signature[:])

	return buf
}

// Hex returns the 0x prefixed hex form of Bytes.
func (v Vote) Hex() string {
	return hexutil.Encode(v.Bytes())
}

// Parse reads a vote written by Bytes. It reports false when the buffer is
// too short. The received time is set to now.
func Parse(buf []byte) (Vote, bool) {
	if len(buf) < Size {
		return Vote{}, false
	}

	v := Vote{
		Version:    binary.LittleEndian.Uint16(buf[0:]),
		Algorithm:  block.Algorithm(buf[2]),
		ReceivedAt: time.Now().UTC(),
	}

	offset := 3
	offset += copy(v.PublicKey[:], buf[offset:])
	v.BlockAlgorithm = block.Algorithm(buf[offset])
	offset++
	offset += copy(v.BlockHash[:], buf[offset:])
	v.Timestamp = time.UnixMilli(int64(binary.LittleEndian.Uint64(buf[offset:]))).UTC()
	offset += 8
	copy(v.Signature[:], buf[offset:])

	return v, true
}

// voteJSON carries the timestamp as milliseconds since the final
// timestamp is outside the range time.Time can marshal.
type voteJSON struct {
	Version        uint16              `json:"version"`
	Algorithm      block.Algorithm     `json:"algorithm"`
	PublicKey      signature.PublicKey `json:"public_key"`
	BlockAlgorithm block.Algorithm     `json:"block_algorithm"`
	BlockHash      signature.Hash      `json:"block_hash"`
	Timestamp      int64               `json:"timestamp"`
	Signature      signature.Signature `json:"signature"`
	Weight         block.Amount        `json:"weight"`
	ReceivedAt     time.Time           `json:"received_at"`
}

// MarshalJSON implements the json.Marshaler interface.
func (v Vote) MarshalJSON() ([]byte, error) {
	return json.Marshal(voteJSON{
		Version:        v.Version,
		Algorithm:      v.Algorithm,
		PublicKey:      v.PublicKey,
		BlockAlgorithm: v.BlockAlgorithm,
		BlockHash:      v.BlockHash,
		Timestamp:      v.Timestamp.UnixMilli(),
		Signature:      v.Signature,
		Weight:         v.Weight,
		ReceivedAt:     v.ReceivedAt,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (v *Vote) UnmarshalJSON(data []byte) error {
	var vj voteJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}

	*v = Vote{
		Version:        vj.Version,
		Algorithm:      vj.Algorithm,
		PublicKey:      vj.PublicKey,
		BlockAlgorithm: vj.BlockAlgorithm,
		BlockHash:      vj.BlockHash,
		Timestamp:      time.UnixMilli(vj.Timestamp).UTC(),
		Signature:      vj.Signature,
		Weight:         vj.Weight,
		ReceivedAt:     vj.ReceivedAt,
	}

	return nil
}

// Decode parses a vote from its hex form.
func Decode(s string) (Vote, error) {
	buf, err := hexutil.Decode(s)
	if err != nil {
		return Vote{}, err
	}

	v, ok := Parse(buf)
	if !ok {
		return Vote{}, errors.New("malformed vote")
	}

	return v, nil
}
