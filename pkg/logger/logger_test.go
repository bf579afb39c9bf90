package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferedLogger(serviceName string) (*Logger, *bytes.Buffer) {
	l := New(serviceName, "1.0.0")
	var buf bytes.Buffer
	l.SetOutput(&buf)
	return l, &buf
}

func TestLogOutput(t *testing.T) {
	l, buf := newBufferedLogger("dbgate")

	l.Infof("Connected to relational database %s", "trends")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "dbgate")
	assert.Contains(t, out, "Connected to relational database trends")
	assert.NotContains(t, out, "\033[", "redirected output must not carry color codes")
}

func TestLogLevels(t *testing.T) {
	l, buf := newBufferedLogger("dbgate")

	l.Debug("resolving name")
	l.Info("connected")
	l.Warn("slow ping")
	l.Error("connect failed")

	out := buf.String()
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		assert.Contains(t, out, level)
	}
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

func TestServiceNameColumn(t *testing.T) {
	l, buf := newBufferedLogger("a-service-name-well-beyond-the-column")

	l.Info("x")

	// Long names are truncated with an ellipsis to keep columns aligned.
	assert.Contains(t, buf.String(), "…")
	assert.NotContains(t, buf.String(), "beyond-the-column")
}

func TestWithFields(t *testing.T) {
	l, buf := newBufferedLogger("dbgate")

	l.WithFields(map[string]string{"database": "trends"}).Info("connected")

	assert.Contains(t, buf.String(), "database=trends")
}
