package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	defer Log.SetLevel(logrus.InfoLevel)

	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"INFO":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
	}
	for in, want := range tests {
		SetLogLevel(in)
		require.Equal(t, want, Log.GetLevel(), in)
	}
}

func TestSetLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mintwatch.log")
	closer := SetLogFile(path)
	Log.Info("hello from the watcher")
	require.NoError(t, closer.Close())
	SetLogFile("")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello from the watcher")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 4))
	require.Equal(t, "cndy...2gRZ", Truncate("cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ", 4))
}

func TestDBLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.sqlite")
	l, err := NewDBLock(dbPath)
	require.NoError(t, err)
	require.Equal(t, dbPath+".lock", l.Path())

	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
}
