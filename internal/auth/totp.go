package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpOpts matches what authenticator apps generate by default.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateTOTP creates a new TOTP key for account under issuer.
func GenerateTOTP(issuer, account string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("error generating OTP secret: %w", err)
	}
	return key, nil
}

// ValidateTOTP checks code against secret at now.
func ValidateTOTP(code, secret string, now time.Time) bool {
	if code == "" || secret == "" {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, now, totpOpts)
	return err == nil && valid
}
