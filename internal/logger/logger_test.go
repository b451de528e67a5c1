package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureStdLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prevOut, prevFlags, prevLevel := log.Writer(), log.Flags(), GetLevel()
	log.SetOutput(buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		SetLevel(prevLevel)
	})
	return buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarning, ParseLevel("WARN"))
	assert.Equal(t, LevelWarning, ParseLevel("WARNING"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("chatty"))
}

func TestLevelFiltering(t *testing.T) {
	buf := captureStdLog(t)
	SetLevel(LevelWarning)

	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warningf("warn %d", 3)
	Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARNING] warn 3")
	assert.Contains(t, out, "[ERROR] boom")
}
