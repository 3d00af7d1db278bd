package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithFile_WritesJSONCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.log")
	log, err := NewWithFile("wallet-service", "prod", FileOptions{Path: path})
	require.NoError(t, err)

	log.Info("deposit ok")
	_ = log.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"deposit ok"`)
	assert.Contains(t, string(b), `"service":"wallet-service"`)
	assert.Contains(t, string(b), `"env":"prod"`)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, 100, orDefault(0, 100))
	assert.Equal(t, 7, orDefault(7, 100))
}
