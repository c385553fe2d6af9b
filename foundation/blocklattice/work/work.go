// Package work implements the proof of work that gates the creation of
// transactions. The difficulty decays over time and is reduced by a
// per network factor.
package work

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
)

// Size is the number of bytes in a work nonce.
const Size = 8

// initialDifficulty is the live network difficulty at the initial instant,
// expressed as the distance of the threshold from the maximum uint64.
const initialDifficulty uint64 = 0x7_FFFF_FFFF

// doublingPeriod is the number of years it takes for the work to get
// twice as cheap.
const doublingPeriod = 2.0

// InitialInstant is the earliest timestamp work can be calculated for.
var InitialInstant = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrTimestampTooOld is returned for timestamps before the initial instant.
var ErrTimestampTooOld = errors.New("timestamp before initial instant")

// Work is the nonce that satisfies the threshold for a subject.
type Work [Size]byte

// String returns the 0x prefixed hex form of the work.
func (w Work) String() string {
	return hexutil.Encode(w[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (w Work) MarshalText() ([]byte, error) {
	return hexutil.Bytes(w[:]).MarshalText()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (w *Work) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Work", input, w[:])
}

// =============================================================================

// Threshold returns the minimum value the work digest must reach for the
// network at the specified time.
func Threshold(network genesis.Network, ts time.Time) (uint64, error) {
	ts = ts.UTC()
	if ts.Before(InitialInstant) {
		return 0, ErrTimestampTooOld
	}

	years := ts.Year() - InitialInstant.Year()
	increase := uint64(math.Pow(2, float64(years)/doublingPeriod))

	difficulty := (initialDifficulty * network.DifficultyReduction()) / increase

	return math.MaxUint64 - difficulty, nil
}

// Verify checks the work satisfies the threshold for the subject.
func Verify(w Work, subject []byte, network genesis.Network, ts time.Time) bool {
	threshold, err := Threshold(network, ts)
	if err != nil {
		return false
	}

	return value(w, subject) >= threshold
}

// Search looks for work that satisfies the threshold for the subject using
// one goroutine per CPU. It returns when work is found or the context
// is canceled.
func Search(ctx context.Context, subject []byte, network genesis.Network, ts time.Time) (Work, error) {
	threshold, err := Threshold(network, ts)
	if err != nil {
		return Work{}, err
	}

	var seed [Size]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return Work{}, err
	}
	base := binary.LittleEndian.Uint64(seed[:])

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan Work, 1)

	g := runtime.NumCPU()
	var wg sync.WaitGroup
	wg.Add(g)

	// Each goroutine walks its own region of the nonce space.
	stride := math.MaxUint64 / uint64(g)

	for i := 0; i < g; i++ {
		go func(nonce uint64) {
			defer wg.Done()

			var w Work
			for attempts := 0; ; attempts++ {
				if attempts%1024 == 0 && ctx.Err() != nil {
					return
				}

				binary.LittleEndian.PutUint64(w[:], nonce)
				if value(w, subject) >= threshold {
					select {
					case found <- w:
					default:
					}
					cancel()
					return
				}
				nonce++
			}
		}(base + uint64(i)*stride)
	}

	wg.Wait()

	select {
	case w := <-found:
		return w, nil
	default:
		return Work{}, ctx.Err()
	}
}

// value interprets the work digest as a little endian integer.
func value(w Work, subject []byte) uint64 {
	return binary.LittleEndian.Uint64(signature.Digest(Size, w[:], subject))
}
