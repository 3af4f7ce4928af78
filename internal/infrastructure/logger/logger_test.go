package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, sc.Err())
	return records
}

func TestNew_FileSinkStampsServiceAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.log")
	log, err := New(Config{Level: "info", Format: "json", Output: path, Service: "ledger", Env: "staging"})
	require.NoError(t, err)

	log.Named("escrow").Info("payout released", zap.String("order_number", "NW-1"))
	log.Debug("dropped below level")
	require.NoError(t, log.Sync())

	records := readRecords(t, path)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "payout released", rec["msg"])
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "escrow", rec["component"])
	assert.Equal(t, "ledger", rec["service"])
	assert.Equal(t, "staging", rec["env"])
	assert.Equal(t, "NW-1", rec["order_number"])
	assert.NotEmpty(t, rec["ts"])
	assert.NotEmpty(t, rec["caller"])
}

func TestNew_OmitsEmptyIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.log")
	log, err := New(Config{Format: "json", Output: path})
	require.NoError(t, err)

	log.Warn("journal unbalanced")
	require.NoError(t, log.Sync())

	rec := readRecords(t, path)[0]
	assert.NotContains(t, rec, "service")
	assert.NotContains(t, rec, "env")
}

func TestNew_UnwritableFileFails(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "ledger.log")})
	assert.ErrorContains(t, err, "open log file")
}

func TestNew_StandardStreams(t *testing.T) {
	for _, out := range []string{"", "stdout", "STDERR"} {
		log, err := New(Config{Format: "console", Output: out})
		require.NoError(t, err, out)
		assert.NotNil(t, log)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" DEBUG ": zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}
