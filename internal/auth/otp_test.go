package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equalMatcher(hash string, code int) bool {
	return hash == "hash-of-123456" && code == 123456
}

func testOtpPolicy() OtpPolicy {
	return OtpPolicy{Expiry: 10 * time.Minute, MaxIncorrect: 5}
}

func otpAccount(generated time.Time) models.Account {
	acct := activeAccount()
	acct.OtpHash = "hash-of-123456"
	acct.OtpGeneratedOn = &generated
	return acct
}

func TestGenerateOTP_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, 100000)
		assert.LessOrEqual(t, code, 999999)
	}
}

func TestOtpPolicy_Issue_ResetsCounter(t *testing.T) {
	now := time.Now()
	acct := activeAccount()
	acct.OtpIncorrectCount = 4

	tr := testOtpPolicy().Issue(acct, now, "new-hash")
	assert.True(t, tr.Write)
	assert.Equal(t, "new-hash", tr.Next.OtpHash)
	assert.Equal(t, 0, tr.Next.OtpIncorrectCount)
	require.NotNil(t, tr.Next.OtpGeneratedOn)
	assert.Equal(t, now, *tr.Next.OtpGeneratedOn)
}

func TestOtpPolicy_Verify_Success(t *testing.T) {
	now := time.Now()
	acct := otpAccount(now.Add(-time.Minute))
	acct.OtpIncorrectCount = 2

	tr, err := testOtpPolicy().Verify(acct, 123456, now, equalMatcher)
	require.NoError(t, err)
	assert.False(t, tr.Write)
	assert.Equal(t, OutcomeProceed, tr.Outcome.Kind)
	// The counter is not cleared by a successful check
	assert.Equal(t, 2, tr.Next.OtpIncorrectCount)
}

func TestOtpPolicy_Verify_Mismatch_CountsAndPersists(t *testing.T) {
	now := time.Now()
	acct := otpAccount(now.Add(-time.Minute))

	tr, err := testOtpPolicy().Verify(acct, 111111, now, equalMatcher)
	assert.Equal(t, models.MsgCodeNotWork, models.CodeOf(err))
	assert.True(t, tr.Write)
	assert.Equal(t, 1, tr.Next.OtpIncorrectCount)
}

func TestOtpPolicy_Verify_NoStoredCode(t *testing.T) {
	acct := activeAccount()

	tr, err := testOtpPolicy().Verify(acct, 123456, time.Now(), equalMatcher)
	assert.Equal(t, models.MsgCodeNotWork, models.CodeOf(err))
	assert.True(t, tr.Write)
}

func TestOtpPolicy_Verify_ExhaustedBlocksCorrectCode(t *testing.T) {
	now := time.Now()
	acct := otpAccount(now.Add(-time.Minute))
	acct.OtpIncorrectCount = 5

	tr, err := testOtpPolicy().Verify(acct, 123456, now, equalMatcher)
	assert.Equal(t, models.MsgIncorrectOtpManyTimes, models.CodeOf(err))
	assert.False(t, tr.Write)
	assert.Equal(t, 5, tr.Next.OtpIncorrectCount)
}

func TestOtpPolicy_Verify_Expired(t *testing.T) {
	now := time.Now()
	acct := otpAccount(now.Add(-11 * time.Minute))

	tr, err := testOtpPolicy().Verify(acct, 123456, now, equalMatcher)
	assert.Equal(t, models.MsgCodeExpired, models.CodeOf(err))
	assert.False(t, tr.Write)
}

func TestOtpPolicy_Verify_MissingGeneratedOnIsExpired(t *testing.T) {
	acct := activeAccount()
	acct.OtpHash = "hash-of-123456"

	_, err := testOtpPolicy().Verify(acct, 123456, time.Now(), equalMatcher)
	assert.Equal(t, models.MsgCodeExpired, models.CodeOf(err))
}

func TestOtpPolicy_Verify_FifthMismatchThenExhausted(t *testing.T) {
	policy := testOtpPolicy()
	now := time.Now()
	acct := otpAccount(now.Add(-time.Minute))

	for i := 0; i < 5; i++ {
		tr, err := policy.Verify(acct, 999999, now, equalMatcher)
		require.Equal(t, models.MsgCodeNotWork, models.CodeOf(err))
		acct = tr.Next
	}

	_, err := policy.Verify(acct, 123456, now, equalMatcher)
	assert.Equal(t, models.MsgIncorrectOtpManyTimes, models.CodeOf(err))
}
