package game

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
)

const (
	MIN_CRASH_MULTIPLIER = 1.00
	HEX_WINDOW           = 8 // 8 hex chars = one uint32 draw

	DICE_MIN = 0
	DICE_MAX = 99

	// Upper bound on window draws when picking mine cells. With any sane
	// grid/mine ratio collisions resolve in a handful of draws; hitting the
	// bound means the inputs were degenerate.
	MAX_LAYOUT_ATTEMPTS = 256
)

// hexWindowUint32 parses the 8-hex-char window at offset as an unsigned
// 32-bit integer.
func hexWindowUint32(material string, offset int) (uint32, error) {
	if offset < 0 || offset+HEX_WINDOW > len(material) {
		return 0, fmt.Errorf("%w: hex window out of range", ErrValidation)
	}
	v, err := strconv.ParseUint(material[offset:offset+HEX_WINDOW], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad hex window %q", ErrValidation, material[offset:offset+HEX_WINDOW])
	}
	return uint32(v), nil
}

// digestFraction normalizes the first hex window of the digest to [0, 1].
func digestFraction(digest string) (float64, error) {
	v, err := hexWindowUint32(digest, 0)
	if err != nil {
		return 0, err
	}
	return float64(v) / float64(math.MaxUint32), nil
}

// CrashMultiplier derives the crash point from a round digest. Squaring the
// uniform draw skews the curve toward low multipliers; the exact rounding
// (floor to 2 decimals) and the 1.00 clamp are part of the public contract
// that verifiers recompute bit-for-bit.
func CrashMultiplier(digest string) (float64, error) {
	f, err := digestFraction(digest)
	if err != nil {
		return 0, err
	}
	m := 1 + 99*(1-f*f)
	m = math.Floor(m*100) / 100
	if m < MIN_CRASH_MULTIPLIER {
		m = MIN_CRASH_MULTIPLIER
	}
	return m, nil
}

// DiceResult derives an integer in [0, 99] from a round digest. The extreme
// draw 0xFFFFFFFF would floor to 100 and is clamped onto 99.
func DiceResult(digest string) (int, error) {
	f, err := digestFraction(digest)
	if err != nil {
		return 0, err
	}
	result := int(math.Floor(f * 100))
	if result > DICE_MAX {
		result = DICE_MAX
	}
	return result, nil
}

// DiceWins reports whether a prediction beats the rolled result. Exact ties
// lose for both sides; that boundary skew is the house edge.
func DiceWins(result, target int, over bool) bool {
	if over {
		return result > target
	}
	return result < target
}

// MinesLayout deterministically picks mineCount distinct cells in
// [0, gridSize) from a round digest. Each attempt consumes the next
// 8-hex-char window; collisions are skipped. When the digest runs out the
// material is extended by hashing itself, so the sequence stays a pure
// function of the digest. The layout is fixed once at round creation and
// stays hidden until a mine is hit or the round ends.
func MinesLayout(digest string, mineCount, gridSize int) ([]int, error) {
	if gridSize <= 0 || mineCount <= 0 || mineCount >= gridSize {
		return nil, fmt.Errorf("%w: mine count %d does not fit grid %d", ErrValidation, mineCount, gridSize)
	}

	material := digest
	used := make(map[int]bool, mineCount)
	mines := make([]int, 0, mineCount)

	for attempt := 0; len(mines) < mineCount; attempt++ {
		if attempt >= MAX_LAYOUT_ATTEMPTS {
			return nil, fmt.Errorf("%w: mine layout did not converge", ErrValidation)
		}

		offset := attempt * HEX_WINDOW
		for offset+HEX_WINDOW > len(material) {
			sum := sha256.Sum256([]byte(material))
			material += hex.EncodeToString(sum[:])
		}

		v, err := hexWindowUint32(material, offset)
		if err != nil {
			return nil, err
		}

		cell := int(v % uint32(gridSize))
		if used[cell] {
			continue
		}
		used[cell] = true
		mines = append(mines, cell)
	}

	sort.Ints(mines)
	return mines, nil
}

// VerifyCrashOutcome recomputes a crash multiplier from a seed triple and
// checks it against the claimed value.
func VerifyCrashOutcome(serverSeed, clientSeed string, nonce int64, claimed float64) error {
	m, err := CrashMultiplier(Digest(serverSeed, clientSeed, nonce))
	if err != nil {
		return err
	}
	if m != claimed {
		return fmt.Errorf("%w: crash multiplier %.2f does not match claimed %.2f", ErrFairnessViolation, m, claimed)
	}
	return nil
}

// VerifyDiceOutcome recomputes a dice result from a seed triple and checks
// it against the claimed value.
func VerifyDiceOutcome(serverSeed, clientSeed string, nonce int64, claimed int) error {
	r, err := DiceResult(Digest(serverSeed, clientSeed, nonce))
	if err != nil {
		return err
	}
	if r != claimed {
		return fmt.Errorf("%w: dice result %d does not match claimed %d", ErrFairnessViolation, r, claimed)
	}
	return nil
}

// VerifyMinesOutcome recomputes a mine layout from a seed triple and checks
// it against the claimed cells.
func VerifyMinesOutcome(serverSeed, clientSeed string, nonce int64, mineCount, gridSize int, claimed []int) error {
	mines, err := MinesLayout(Digest(serverSeed, clientSeed, nonce), mineCount, gridSize)
	if err != nil {
		return err
	}
	if len(mines) != len(claimed) {
		return fmt.Errorf("%w: mine layout size %d does not match claimed %d", ErrFairnessViolation, len(mines), len(claimed))
	}
	for i := range mines {
		if mines[i] != claimed[i] {
			return fmt.Errorf("%w: mine layout does not match claimed cells", ErrFairnessViolation)
		}
	}
	return nil
}
