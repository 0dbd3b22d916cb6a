package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/netbackup/internal/models"
)

func TestValidateAcceptsWellFormedExpressions(t *testing.T) {
	ok, reason := Validate("30 2 * * 1")
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = Validate("0,15,30,45 * 1-15 * *")
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidateRejectsMalformedExpressions(t *testing.T) {
	cases := []string{
		"* * * *",      // only 4 fields
		"60 * * * *",   // minute out of range
		"* 24 * * *",   // hour out of range
		"* * 32 * *",   // day out of range
		"* * * 13 *",   // month out of range
		"* * * * 7",    // dow out of range
		"5-1 * * * *",  // inverted range
	}
	for _, expr := range cases {
		ok, reason := Validate(expr)
		assert.False(t, ok, "expected %q to be invalid", expr)
		assert.NotEmpty(t, reason)
	}
}

func TestNextFireTimeWeeklyExample(t *testing.T) {
	// spec.md §8 scenario 5: weekly{weekday=1,hour=2,minute=30} -> cron
	// "30 2 * * 1"; from a Wednesday, next fire is the following Monday.
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	from := time.Date(2025, 10, 22, 10, 0, 0, 0, loc) // Wednesday
	next, err := NextFireTime("30 2 * * 1", from, loc)
	require.NoError(t, err)

	want := time.Date(2025, 10, 27, 2, 30, 0, 0, loc) // Monday
	assert.True(t, next.Equal(want), "got %s, want %s", next, want)
}

func TestNextFireTimeIsPureFunction(t *testing.T) {
	loc := time.UTC
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, loc)

	a, err := NextFireTime("0 9 * * *", from, loc)
	require.NoError(t, err)
	b, err := NextFireTime("0 9 * * *", from, loc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNextFireTimeStrictlyAfterFrom(t *testing.T) {
	loc := time.UTC
	from := time.Date(2026, 3, 5, 9, 0, 0, 0, loc)
	next, err := NextFireTime("0 9 * * *", from, loc)
	require.NoError(t, err)
	assert.True(t, next.After(from))
	assert.Equal(t, 2026, next.Year())
	assert.Equal(t, time.March, next.Month())
	assert.Equal(t, 6, next.Day())
}

func TestDeriveCronExpressionWeekly(t *testing.T) {
	cron, err := DeriveCronExpression(models.FrequencyConfig{
		Type: models.FrequencyWeekly, Weekday: 1, Hour: 2, Minute: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "30 2 * * 1", cron)
}

func TestDeriveCronExpressionDaily(t *testing.T) {
	cron, err := DeriveCronExpression(models.FrequencyConfig{
		Type: models.FrequencyDaily, Hour: 3, Minute: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", cron)
}

func TestDeriveCronExpressionCustomRequiresExpr(t *testing.T) {
	_, err := DeriveCronExpression(models.FrequencyConfig{Type: models.FrequencyCustom})
	assert.Error(t, err)

	cron, err := DeriveCronExpression(models.FrequencyConfig{Type: models.FrequencyCustom, Cron: "*/5 * * * *"})
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", cron)
}
