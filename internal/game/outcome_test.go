package game

import (
	"errors"
	"strings"
	"testing"
)

// paddedDigest builds a 64-char digest beginning with the given window.
func paddedDigest(window string) string {
	return window + strings.Repeat("0", 64-len(window))
}

func TestCrashMultiplier(t *testing.T) {
	tests := []struct {
		name   string
		digest string
		want   float64
	}{
		{
			name:   "all zero draw maps to the ceiling",
			digest: paddedDigest("00000000"),
			want:   100.00,
		},
		{
			name:   "all ones draw maps to the floor",
			digest: paddedDigest("ffffffff"),
			want:   1.00,
		},
		{
			name:   "midpoint draw",
			digest: paddedDigest("80000000"),
			want:   75.24, // 1 + 99*(1-f*f) with f just above 1/2, floored to 2 decimals
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CrashMultiplier(tt.digest)
			if err != nil {
				t.Fatalf("CrashMultiplier() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CrashMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCrashMultiplier_Bounds(t *testing.T) {
	serverSeed := GenerateServerSeed()
	clientSeed := GenerateClientSeed()

	for nonce := int64(0); nonce < 200; nonce++ {
		m, err := CrashMultiplier(Digest(serverSeed, clientSeed, nonce))
		if err != nil {
			t.Fatalf("CrashMultiplier() error at nonce %d: %v", nonce, err)
		}
		if m < MIN_CRASH_MULTIPLIER || m > 100.0 {
			t.Fatalf("multiplier %v out of [1.00, 100.00] at nonce %d", m, nonce)
		}
		// Two decimal places exactly.
		cents := m * 100
		if cents != float64(int64(cents)) {
			t.Fatalf("multiplier %v not floored to 2 decimals at nonce %d", m, nonce)
		}
	}
}

func TestCrashMultiplier_BadDigest(t *testing.T) {
	if _, err := CrashMultiplier("zzzz"); err == nil {
		t.Error("expected an error for a short non-hex digest")
	}
}

func TestDiceResult(t *testing.T) {
	tests := []struct {
		name   string
		digest string
		want   int
	}{
		{
			name:   "all zero draw",
			digest: paddedDigest("00000000"),
			want:   0,
		},
		{
			name:   "extreme draw clamps to 99",
			digest: paddedDigest("ffffffff"),
			want:   99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiceResult(tt.digest)
			if err != nil {
				t.Fatalf("DiceResult() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DiceResult() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiceResult_Range(t *testing.T) {
	serverSeed := GenerateServerSeed()
	clientSeed := GenerateClientSeed()

	for nonce := int64(0); nonce < 500; nonce++ {
		r, err := DiceResult(Digest(serverSeed, clientSeed, nonce))
		if err != nil {
			t.Fatalf("DiceResult() error at nonce %d: %v", nonce, err)
		}
		if r < DICE_MIN || r > DICE_MAX {
			t.Fatalf("result %d out of [%d, %d] at nonce %d", r, DICE_MIN, DICE_MAX, nonce)
		}
	}
}

func TestDiceWins(t *testing.T) {
	tests := []struct {
		name   string
		result int
		target int
		over   bool
		want   bool
	}{
		{"over wins above", 80, 50, true, true},
		{"over loses below", 30, 50, true, false},
		{"under wins below", 30, 50, false, true},
		{"under loses above", 80, 50, false, false},
		{"exact tie loses over", 50, 50, true, false},
		{"exact tie loses under", 50, 50, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiceWins(tt.result, tt.target, tt.over); got != tt.want {
				t.Errorf("DiceWins(%d, %d, %v) = %v, want %v", tt.result, tt.target, tt.over, got, tt.want)
			}
		})
	}
}

func TestMinesLayout(t *testing.T) {
	serverSeed := GenerateServerSeed()
	clientSeed := GenerateClientSeed()
	digest := Digest(serverSeed, clientSeed, 1)

	t.Run("exact cardinality and range", func(t *testing.T) {
		for mineCount := 1; mineCount <= 24; mineCount++ {
			mines, err := MinesLayout(digest, mineCount, 25)
			if err != nil {
				t.Fatalf("MinesLayout(%d mines) error: %v", mineCount, err)
			}
			if len(mines) != mineCount {
				t.Fatalf("got %d mines, want %d", len(mines), mineCount)
			}
			seen := make(map[int]bool)
			for _, cell := range mines {
				if cell < 0 || cell >= 25 {
					t.Fatalf("cell %d out of grid", cell)
				}
				if seen[cell] {
					t.Fatalf("duplicate cell %d", cell)
				}
				seen[cell] = true
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		m1, err := MinesLayout(digest, 5, 25)
		if err != nil {
			t.Fatalf("MinesLayout() error: %v", err)
		}
		m2, _ := MinesLayout(digest, 5, 25)
		for i := range m1 {
			if m1[i] != m2[i] {
				t.Fatalf("layouts differ: %v vs %v", m1, m2)
			}
		}
	})

	t.Run("sorted ascending", func(t *testing.T) {
		mines, err := MinesLayout(digest, 10, 25)
		if err != nil {
			t.Fatalf("MinesLayout() error: %v", err)
		}
		for i := 1; i < len(mines); i++ {
			if mines[i] <= mines[i-1] {
				t.Fatalf("layout not sorted: %v", mines)
			}
		}
	})

	t.Run("invalid parameters", func(t *testing.T) {
		invalid := []struct {
			mineCount int
			gridSize  int
		}{
			{0, 25},
			{25, 25},
			{26, 25},
			{1, 0},
			{-1, 25},
		}
		for _, tc := range invalid {
			if _, err := MinesLayout(digest, tc.mineCount, tc.gridSize); err == nil {
				t.Errorf("expected an error for %d mines on grid %d", tc.mineCount, tc.gridSize)
			}
		}
	})
}

func TestVerifyOutcomes(t *testing.T) {
	serverSeed := GenerateServerSeed()
	clientSeed := GenerateClientSeed()
	nonce := int64(3)
	digest := Digest(serverSeed, clientSeed, nonce)

	t.Run("crash", func(t *testing.T) {
		m, _ := CrashMultiplier(digest)
		if err := VerifyCrashOutcome(serverSeed, clientSeed, nonce, m); err != nil {
			t.Errorf("genuine crash outcome rejected: %v", err)
		}
		err := VerifyCrashOutcome(serverSeed, clientSeed, nonce, m+0.01)
		if !errors.Is(err, ErrFairnessViolation) {
			t.Errorf("tampered crash outcome: got %v, want fairness violation", err)
		}
	})

	t.Run("dice", func(t *testing.T) {
		r, _ := DiceResult(digest)
		if err := VerifyDiceOutcome(serverSeed, clientSeed, nonce, r); err != nil {
			t.Errorf("genuine dice outcome rejected: %v", err)
		}
		err := VerifyDiceOutcome(serverSeed, clientSeed, nonce, (r+1)%100)
		if !errors.Is(err, ErrFairnessViolation) {
			t.Errorf("tampered dice outcome: got %v, want fairness violation", err)
		}
	})

	t.Run("mines", func(t *testing.T) {
		mines, _ := MinesLayout(digest, 3, 25)
		if err := VerifyMinesOutcome(serverSeed, clientSeed, nonce, 3, 25, mines); err != nil {
			t.Errorf("genuine mine layout rejected: %v", err)
		}
		tampered := append([]int{}, mines...)
		tampered[0] = (tampered[0] + 1) % 25
		err := VerifyMinesOutcome(serverSeed, clientSeed, nonce, 3, 25, tampered)
		if !errors.Is(err, ErrFairnessViolation) {
			t.Errorf("tampered mine layout: got %v, want fairness violation", err)
		}
	})
}
