package rlog_test

import (
	"bytes"
	"testing"

	"github.com/go-forensics/ntfsrecover/rlog"
	"github.com/stretchr/testify/assert"
)

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := rlog.New(&buf, rlog.WarnLevel)

	l.Infof("should not appear")
	l.Warnf("should appear: %d", 42)

	assert.Equal(t, "[WARN] should appear: 42\n", buf.String())
}

func TestNilLoggerDiscardsSilently(t *testing.T) {
	var l *rlog.Logger
	assert.NotPanics(t, func() {
		l.Warnf("discarded: %s", "value")
	})
}

func TestAsWarnFunc(t *testing.T) {
	var buf bytes.Buffer
	l := rlog.New(&buf, rlog.DebugLevel)
	w := l.AsWarnFunc()
	w("attribute type %d at offset %d", 0x80, 512)
	assert.Equal(t, "[WARN] attribute type 128 at offset 512\n", buf.String())
}

func TestNilLoggerAsWarnFunc(t *testing.T) {
	var l *rlog.Logger
	w := l.AsWarnFunc()
	assert.NotPanics(t, func() {
		w("discarded")
	})
}
