package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdouchement/memeswipe/internal/config"
	"github.com/mdouchement/memeswipe/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "compensation failed",
		Data:    logrus.Fields{"stage": "delete_asset", "item_id": "42"},
	}

	data, err := new(logger.Formatter).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2024-03-01T12:00:00Z] WARNING: compensation failed (item_id=42, stage=delete_asset)\n", string(data))
}

func TestNew(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "memeswipe.log")
	log, err := logger.New(config.Log{Level: "debug", File: filename, MaxSize: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.WithField("user_id", "u1").Debug("hello")

	assert.Contains(t, buf.String(), "hello (user_id=u1)")
	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(content), "DEBUG: hello")

	_, err = logger.New(config.Log{Level: "loud"})
	assert.Error(t, err)
	_, err = logger.New(config.Log{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
