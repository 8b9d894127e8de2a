package transaction

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const codePrefix = "TRX"

// CodeGenerator produces a candidate transaction code for the commit day.
// Uniqueness is finally enforced by the store; generators only try to avoid
// handing out a used code.
type CodeGenerator interface {
	Next(ctx context.Context, day time.Time) (string, error)
}

// FormatCode renders TRX-YYYYMMDD-NNNN. Suffixes above 9999 keep all digits.
func FormatCode(day time.Time, suffix int64) string {
	return fmt.Sprintf("%s-%s-%04d", codePrefix, day.Format("20060102"), suffix)
}

// DailySequencer hands out 1, 2, 3... per calendar day, atomically.
type DailySequencer interface {
	NextDailySequence(ctx context.Context, day string) (int64, error)
}

type SequenceCodeGenerator struct {
	seq DailySequencer
}

func NewSequenceCodeGenerator(seq DailySequencer) *SequenceCodeGenerator {
	return &SequenceCodeGenerator{seq: seq}
}

func (g *SequenceCodeGenerator) Next(ctx context.Context, day time.Time) (string, error) {
	n, err := g.seq.NextDailySequence(ctx, day.Format("2006-01-02"))
	if err != nil {
		return "", err
	}
	return FormatCode(day, n), nil
}

// CodeChecker tells whether a transaction code has been used already.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

type RandomCodeGenerator struct {
	checker  CodeChecker
	attempts int
}

func NewRandomCodeGenerator(checker CodeChecker, attempts int) *RandomCodeGenerator {
	if attempts <= 0 {
		attempts = 5
	}
	return &RandomCodeGenerator{checker: checker, attempts: attempts}
}

var suffixSpace = big.NewInt(10000)

func (g *RandomCodeGenerator) Next(ctx context.Context, day time.Time) (string, error) {
	for i := 0; i < g.attempts; i++ {
		n, err := rand.Int(rand.Reader, suffixSpace)
		if err != nil {
			return "", err
		}
		code := FormatCode(day, n.Int64())

		exists, err := g.checker.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: no free code after %d attempts", ErrCodeConflict, g.attempts)
}

// NewCodeGenerator picks a generator by strategy name ("sequence" or "random").
func NewCodeGenerator(strategy string, seq DailySequencer, checker CodeChecker) (CodeGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", "sequence":
		return NewSequenceCodeGenerator(seq), nil
	case "random":
		return NewRandomCodeGenerator(checker, 5), nil
	default:
		return nil, fmt.Errorf("unknown code strategy %q", strategy)
	}
}
