package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverallStatus(t *testing.T) {
	t.Run("no checks is healthy", func(t *testing.T) {
		c := NewChecker()
		assert.Equal(t, StatusHealthy, c.GetOverallStatus())
	})

	t.Run("all passing is healthy", func(t *testing.T) {
		c := NewChecker()
		c.RunCheck("trends", func() error { return nil })
		c.RunCheck("ludafarma", func() error { return nil })
		assert.Equal(t, StatusHealthy, c.GetOverallStatus())
	})

	t.Run("one failing is degraded", func(t *testing.T) {
		c := NewChecker()
		c.RunCheck("trends", func() error { return nil })
		c.RunCheck("ludafarma", func() error { return errors.New("unreachable") })
		assert.Equal(t, StatusDegraded, c.GetOverallStatus())
	})

	t.Run("all failing is unhealthy", func(t *testing.T) {
		c := NewChecker()
		c.RunCheck("trends", func() error { return errors.New("unreachable") })
		assert.Equal(t, StatusUnhealthy, c.GetOverallStatus())
	})
}

func TestCheckResults(t *testing.T) {
	c := NewChecker()
	c.RunCheck("trends", func() error { return errors.New("connection refused") })

	checks := c.GetAllChecks()
	assert.Len(t, checks, 1)
	assert.Equal(t, "trends", checks[0].Name)
	assert.Equal(t, StatusUnhealthy, checks[0].Status)
	assert.Equal(t, "connection refused", checks[0].Message)
	assert.False(t, checks[0].LastChecked.IsZero())
}

func TestRecovery(t *testing.T) {
	c := NewChecker()
	c.RunCheck("trends", func() error { return errors.New("unreachable") })
	before := c.GetLastHealthyTime()

	c.RunCheck("trends", func() error { return nil })
	assert.Equal(t, StatusHealthy, c.GetOverallStatus())
	assert.False(t, c.GetLastHealthyTime().Before(before))
}
