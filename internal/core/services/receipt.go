package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	receiptPrefix      = "PJM"
	receiptAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	receiptSuffixLen   = 5
	fallbackSuffixLen  = 8
	maxReceiptAttempts = 10
)

// CodeExistsFunc reports whether a receipt code is already taken
type CodeExistsFunc func(ctx context.Context, code string) (bool, error)

// ReceiptGenerator issues human-readable loan receipt codes of the form
// PJM-YYYYMMDD-HHMMSS-XXXXX
type ReceiptGenerator struct {
	exists CodeExistsFunc
	now    func() time.Time
	loc    *time.Location
	random func(n int) (string, error)
}

// NewReceiptGenerator creates a generator that checks codes with exists
func NewReceiptGenerator(exists CodeExistsFunc, now func() time.Time, loc *time.Location) *ReceiptGenerator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReceiptGenerator{
		exists: exists,
		now:    now,
		loc:    loc,
		random: randomString,
	}
}

// Generate returns a code that was free at the time of the check. After
// maxReceiptAttempts collisions it falls back to a denser timestamp code.
func (g *ReceiptGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxReceiptAttempts; attempt++ {
		suffix, err := g.random(receiptSuffixLen)
		if err != nil {
			return "", err
		}

		t := g.now().In(g.loc)
		code := fmt.Sprintf("%s-%s-%s-%s", receiptPrefix, t.Format("20060102"), t.Format("150405"), suffix)

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check receipt code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}

	return g.fallback()
}

func (g *ReceiptGenerator) fallback() (string, error) {
	suffix, err := g.random(fallbackSuffixLen)
	if err != nil {
		return "", err
	}
	stamp := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	return fmt.Sprintf("%s-%s-%s", receiptPrefix, stamp, suffix), nil
}

func randomString(n int) (string, error) {
	base := big.NewInt(int64(len(receiptAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = receiptAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
