package verification

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars  = "abcdefghijkmnopqrstuvwxyz"
	digitChars  = "23456789"
	symbolChars = "!@#$%^*-_=+?"

	minPasswordLen = 8
	maxPasswordLen = 12

	maxGenerateAttempts = 100
)

var allChars = upperChars + lowerChars + digitChars + symbolChars

// PasswordRules is the complexity policy for provisioned passwords.
var PasswordRules = []validation.Rule{
	validation.Required,
	validation.Length(minPasswordLen, maxPasswordLen),
	validation.Match(regexp.MustCompile(`[A-Z]`)).Error("must contain an uppercase letter"),
	validation.Match(regexp.MustCompile(`[a-z]`)).Error("must contain a lowercase letter"),
	validation.Match(regexp.MustCompile(`[0-9]`)).Error("must contain a digit"),
	validation.Match(regexp.MustCompile(`[^A-Za-z0-9\s]`)).Error("must contain a symbol"),
	validation.Match(regexp.MustCompile(`^\S+$`)).Error("must not contain spaces"),
}

// ValidatePassword checks pw against PasswordRules.
func ValidatePassword(pw string) error {
	return validation.Validate(pw, PasswordRules...)
}

var ErrPasswordGeneration = errors.New("could not generate a compliant password")

// PasswordGenerator mints random passwords that satisfy PasswordRules.
type PasswordGenerator struct {
	rand io.Reader
}

// NewPasswordGenerator reads randomness from r, or crypto/rand when r is nil.
func NewPasswordGenerator(r io.Reader) *PasswordGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &PasswordGenerator{rand: r}
}

// Generate seeds one character of each class, fills up to a random length,
// shuffles, and retries until the result validates.
func (g *PasswordGenerator) Generate() (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		pw, err := g.candidate()
		if err != nil {
			return "", err
		}
		if ValidatePassword(pw) == nil {
			return pw, nil
		}
	}
	return "", ErrPasswordGeneration
}

func (g *PasswordGenerator) candidate() (string, error) {
	extra, err := g.intn(maxPasswordLen - minPasswordLen + 1)
	if err != nil {
		return "", err
	}
	n := minPasswordLen + extra

	buf := make([]byte, 0, n)
	for _, set := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := g.pick(set)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < n {
		c, err := g.pick(allChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	for i := len(buf) - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func (g *PasswordGenerator) pick(set string) (byte, error) {
	i, err := g.intn(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func (g *PasswordGenerator) intn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
