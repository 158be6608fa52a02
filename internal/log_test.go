package internal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/audit-scripts/azaudit/globals"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var console, txt bytes.Buffer
	l := NewLogger("disks")
	l.SetOutput(&console)
	l.txtLog = logrus.New()
	l.txtLog.SetOutput(&txt)

	l.Info("listing")
	l.Warnf("storage account %s not found", "sadata01")
	l.ErrorM("boom", "whoami")

	assert.Contains(t, console.String(), "listing")
	assert.Contains(t, console.String(), "storage account sadata01 not found")
	assert.Contains(t, console.String(), "boom")
	assert.Contains(t, txt.String(), "[disks] storage account sadata01 not found")
	assert.Contains(t, txt.String(), "[whoami] boom")
	assert.NotContains(t, txt.String(), "listing")
}

func TestLoggerFatalExits(t *testing.T) {
	var code int
	defer MockExit(func(c int) { code = c })()

	l := NewLogger("disks")
	l.SetOutput(io.Discard)
	l.txtLog = logrus.New()
	l.txtLog.SetOutput(io.Discard)
	l.Fatal("authentication failed")
	assert.Equal(t, 1, code)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "sub1-storage-accounts-sku", CacheKey("sub1", "storage-accounts", "sku"))
}

func TestGetLogDirPath(t *testing.T) {
	defer func() {
		userHomeDir = os.UserHomeDir
		currentUser = user.Current
	}()
	noHome := func() (string, error) { return "", fmt.Errorf("$HOME is not defined") }
	noUser := func() (*user.User, error) { return nil, fmt.Errorf("user: unknown userid") }

	t.Run("no home directory", func(t *testing.T) {
		userHomeDir, currentUser = noHome, noUser
		assert.Nil(t, GetLogDirPath())
		assert.NotNil(t, TxtLogger())
	})

	t.Run("falls back to the current user", func(t *testing.T) {
		home := t.TempDir()
		userHomeDir = noHome
		currentUser = func() (*user.User, error) { return &user.User{HomeDir: home}, nil }
		dir := GetLogDirPath()
		require.NotNil(t, dir)
		assert.Equal(t, filepath.Join(home, globals.AZAUDIT_LOG_FILE_DIR_NAME), *dir)
		assert.DirExists(t, *dir)
	})
}
