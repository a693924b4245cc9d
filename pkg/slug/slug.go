// Package slug builds URL slugs that are unique within a caller-defined
// namespace.
package slug

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

const (
	DefaultMaxAttempts = 5
	suffixLen          = 4
	alphabet           = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var ErrExhausted = errors.New("slug: no free slug found")

// ExistsFunc reports whether a slug is already taken. Callers updating an
// entity exclude that entity's own row.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Normalize lowercases s, drops every character outside [a-z0-9-] and
// collapses runs of whitespace and hyphens into a single hyphen.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}

type Allocator struct {
	maxAttempts int
	random      func(n int) (string, error)
}

func NewAllocator(maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{maxAttempts: maxAttempts, random: RandomString}
}

// Allocate normalizes candidate and checks exists until a free slug is found.
// Each retry appends "-" and a fresh random suffix to the normalized base.
func (a *Allocator) Allocate(ctx context.Context, candidate string, exists ExistsFunc) (string, error) {
	base := Normalize(candidate)
	if base == "" {
		r, err := a.random(suffixLen * 2)
		if err != nil {
			return "", err
		}
		base = r
	}

	slug := base
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}

		suffix, err := a.random(suffixLen)
		if err != nil {
			return "", err
		}
		slug = base + "-" + suffix
	}

	return "", fmt.Errorf("%w after %d attempts for %q", ErrExhausted, a.maxAttempts, base)
}

// RandomString returns n characters drawn from [a-z0-9].
func RandomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
