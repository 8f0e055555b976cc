package auth

import (
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

// OutcomeKind tags the result of a login step
type OutcomeKind int

const (
	// OutcomeProceed lets the flow continue
	OutcomeProceed OutcomeKind = iota
	// OutcomeWarn is a counted failure that leaves attempts before lockout
	OutcomeWarn
	// OutcomeLocked is the failure that just locked the account
	OutcomeLocked
	// OutcomeRejected is any other refusal
	OutcomeRejected
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProceed:
		return "proceed"
	case OutcomeWarn:
		return "warn"
	case OutcomeLocked:
		return "locked"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// LoginOutcome is the tagged result of evaluating a login step
type LoginOutcome struct {
	Kind     OutcomeKind
	Attempts int
	Code     string
}

// Err converts a refusal into the named error callers propagate. Proceed and Locked
// return nil: a freshly locked account is reported through the response, not an error.
func (o LoginOutcome) Err() error {
	switch o.Kind {
	case OutcomeWarn, OutcomeRejected:
		return models.Validation(o.Code)
	default:
		return nil
	}
}

// Transition is the next account snapshot plus whether it must be persisted
type Transition struct {
	Next    models.Account
	Write   bool
	Outcome LoginOutcome
}

// LockoutPolicy holds the lockout thresholds
type LockoutPolicy struct {
	MaxFailedAttempts int
	Window            time.Duration
}

// DefaultLockoutPolicy locks after five failures and forgets partial failures two hours
// after the last lock.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxFailedAttempts: 5,
		Window:            2 * time.Hour,
	}
}

var warningCodes = map[int]string{
	3: models.MsgFailed3Attempts,
	4: models.MsgFailed4Attempts,
}

// Admit checks whether an account may attempt a login at all.
func (p LockoutPolicy) Admit(acct models.Account) LoginOutcome {
	switch {
	case !acct.IsActive:
		return LoginOutcome{Kind: OutcomeRejected, Attempts: acct.LoginFailAttempts, Code: models.MsgUserNotActive}
	case acct.IsAccountLocked:
		return LoginOutcome{Kind: OutcomeRejected, Attempts: acct.LoginFailAttempts, Code: models.MsgAccountLockedDefault}
	default:
		return LoginOutcome{Kind: OutcomeProceed, Attempts: acct.LoginFailAttempts}
	}
}

// AutoReset clears partial failures once the window since the last lock has passed.
// The lock flag itself is left alone; unlocking is an explicit admin action.
func (p LockoutPolicy) AutoReset(acct models.Account, now time.Time) Transition {
	next := acct
	if acct.LoginFailAttempts < p.MaxFailedAttempts &&
		acct.LastAccountLockTime != nil &&
		now.After(acct.LastAccountLockTime.Add(p.Window)) &&
		acct.LoginFailAttempts != 0 {
		next.LoginFailAttempts = 0
		return Transition{Next: next, Write: true, Outcome: LoginOutcome{Kind: OutcomeProceed}}
	}
	return Transition{Next: next, Outcome: LoginOutcome{Kind: OutcomeProceed, Attempts: acct.LoginFailAttempts}}
}

// RecordFailure counts a rejected credential check. Reaching the threshold locks the account.
func (p LockoutPolicy) RecordFailure(acct models.Account, now time.Time) Transition {
	next := acct
	next.LoginFailAttempts++
	next.ModifiedAt = &now

	attempts := next.LoginFailAttempts
	if attempts >= p.MaxFailedAttempts {
		next.IsAccountLocked = true
		next.LastAccountLockTime = &now
		return Transition{
			Next:    next,
			Write:   true,
			Outcome: LoginOutcome{Kind: OutcomeLocked, Attempts: attempts, Code: models.MsgAccountLocked},
		}
	}

	if code, ok := warningCodes[attempts]; ok {
		return Transition{
			Next:    next,
			Write:   true,
			Outcome: LoginOutcome{Kind: OutcomeWarn, Attempts: attempts, Code: code},
		}
	}

	return Transition{
		Next:    next,
		Write:   true,
		Outcome: LoginOutcome{Kind: OutcomeRejected, Attempts: attempts, Code: models.MsgEmailPasswordWrong},
	}
}

// RecordSuccess clears failures and issues the second-factor code.
func (p LockoutPolicy) RecordSuccess(acct models.Account, now time.Time, otpHash string) Transition {
	next := acct
	next.LoginFailAttempts = 0
	next.LoginCount++
	next.ModifiedAt = &now
	next = issueOtp(next, now, otpHash)
	return Transition{Next: next, Write: true, Outcome: LoginOutcome{Kind: OutcomeProceed}}
}

// Unlock clears the lock flag, the failure counter and the lock time.
func (p LockoutPolicy) Unlock(acct models.Account, now time.Time) Transition {
	next := acct
	next.IsAccountLocked = false
	next.LoginFailAttempts = 0
	next.LastAccountLockTime = nil
	next.ModifiedAt = &now
	write := acct.IsAccountLocked || acct.LoginFailAttempts != 0 || acct.LastAccountLockTime != nil
	return Transition{Next: next, Write: write, Outcome: LoginOutcome{Kind: OutcomeProceed}}
}
