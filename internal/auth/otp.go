package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OtpPolicy holds the second-factor code limits
type OtpPolicy struct {
	Expiry       time.Duration
	MaxIncorrect int
}

// CodeMatcher compares a stored code hash with a submitted code
type CodeMatcher func(hash string, code int) bool

// GenerateOTP returns a uniformly random code in [100000, 999999].
func GenerateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return 0, fmt.Errorf("failed to generate otp: %w", err)
	}
	return otpMin + int(n.Int64()), nil
}

func issueOtp(acct models.Account, now time.Time, otpHash string) models.Account {
	acct.OtpHash = otpHash
	acct.OtpGeneratedOn = &now
	acct.OtpIncorrectCount = 0
	return acct
}

// Issue stores a fresh code hash and resets the incorrect-code counter.
func (p OtpPolicy) Issue(acct models.Account, now time.Time, otpHash string) Transition {
	next := issueOtp(acct, now, otpHash)
	next.ModifiedAt = &now
	return Transition{Next: next, Write: true, Outcome: LoginOutcome{Kind: OutcomeProceed}}
}

// Verify checks a submitted code. The exhausted check comes first so a correct code is
// still refused once the limit is reached. A mismatch is counted and must be persisted
// even though the step fails. Success leaves the counter as it is.
func (p OtpPolicy) Verify(acct models.Account, submitted int, now time.Time, matches CodeMatcher) (Transition, error) {
	if acct.OtpIncorrectCount >= p.MaxIncorrect {
		return Transition{Next: acct, Outcome: LoginOutcome{Kind: OutcomeRejected, Code: models.MsgIncorrectOtpManyTimes}},
			models.Validation(models.MsgIncorrectOtpManyTimes)
	}

	if acct.OtpHash == "" || !matches(acct.OtpHash, submitted) {
		next := acct
		next.OtpIncorrectCount++
		next.ModifiedAt = &now
		return Transition{Next: next, Write: true, Outcome: LoginOutcome{Kind: OutcomeRejected, Code: models.MsgCodeNotWork}},
			models.Validation(models.MsgCodeNotWork)
	}

	if acct.OtpGeneratedOn == nil || now.Sub(*acct.OtpGeneratedOn) > p.Expiry {
		return Transition{Next: acct, Outcome: LoginOutcome{Kind: OutcomeRejected, Code: models.MsgCodeExpired}},
			models.Validation(models.MsgCodeExpired)
	}

	return Transition{Next: acct, Outcome: LoginOutcome{Kind: OutcomeProceed}}, nil
}
