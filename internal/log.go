package internal

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sync"

	"github.com/audit-scripts/azaudit/globals"
	"github.com/aws/smithy-go/ptr"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/text"
	"github.com/kyokomi/emoji"
	"github.com/sirupsen/logrus"
)

func init() {
	text.EnableColors()
}

var TxtLog = TxtLogger()

// swapped in tests so Fatal does not terminate the test binary
var osExit = os.Exit

// MockExit replaces the exit used by Fatal and returns a restore func.
func MockExit(exit func(int)) func() {
	previous := osExit
	osExit = exit
	return func() { osExit = previous }
}

// swapped in tests
var (
	userHomeDir = os.UserHomeDir
	currentUser = user.Current
)

// This function returns ~/.azaudit.
// If the folder does not exist the function creates it.
// Without a home directory it returns nil and nothing is logged to file.
func GetLogDirPath() *string {
	home, err := userHomeDir()
	if err != nil || home == "" {
		home = ""
		if u, uerr := currentUser(); uerr == nil {
			home = u.HomeDir
		}
	}
	if home == "" {
		return nil
	}
	dir := filepath.Join(home, globals.AZAUDIT_LOG_FILE_DIR_NAME)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err = os.MkdirAll(dir, 0700); err != nil {
			return nil
		}
	}
	return ptr.String(dir)
}

// TxtLogger mirrors warnings and errors into ~/.azaudit/azaudit-error.log.
// When the file cannot be opened the entries are dropped.
func TxtLogger() *logrus.Logger {
	txtLogger := logrus.New()
	txtLogger.SetLevel(logrus.InfoLevel)
	txtLogger.Out = io.Discard

	dir := GetLogDirPath()
	if dir == nil {
		return txtLogger
	}
	txtFile, err := os.OpenFile(filepath.Join(ptr.ToString(dir), globals.AZAUDIT_ERROR_LOG_FILE_NAME), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return txtLogger
	}
	txtLogger.Out = txtFile
	return txtLogger
}

// serialises console lines from concurrent workers
var printMu sync.Mutex

type Logger struct {
	version string
	module  string
	out     io.Writer
	txtLog  *logrus.Logger
}

func NewLogger(module string) Logger {
	var logger = Logger{
		version: globals.AZAUDIT_VERSION,
		module:  module,
		out:     os.Stdout,
		txtLog:  TxtLog,
	}
	return logger
}

// SetOutput redirects console output, mostly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
}

func (l *Logger) print(c *color.Color, module string, msg string) {
	paint := c.SprintFunc()
	out := l.out
	if out == nil {
		out = os.Stdout
	}
	printMu.Lock()
	defer printMu.Unlock()
	fmt.Fprintf(out, "[%s][%s] %s\n", paint(emoji.Sprintf(":cloud:azaudit %s:cloud:", l.version)), paint(module), msg)
}

func (l *Logger) txt() *logrus.Logger {
	if l.txtLog == nil {
		return TxtLog
	}
	return l.txtLog
}

func (l *Logger) Info(text string) {
	l.InfoM(text, l.module)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.InfoM(fmt.Sprintf(format, args...), l.module)
}

func (l *Logger) InfoM(text string, module string) {
	l.print(color.New(color.FgCyan), module, text)
}

func (l *Logger) Success(text string) {
	l.SuccessM(text, l.module)
}

func (l *Logger) Successf(format string, args ...interface{}) {
	l.SuccessM(fmt.Sprintf(format, args...), l.module)
}

func (l *Logger) SuccessM(text string, module string) {
	l.print(color.New(color.FgGreen), module, text)
}

func (l *Logger) Warn(text string) {
	l.WarnM(text, l.module)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.WarnM(fmt.Sprintf(format, args...), l.module)
}

func (l *Logger) WarnM(text string, module string) {
	l.print(color.New(color.FgYellow), module, text)
	l.txt().Warnf("[%s] %s", module, text)
}

func (l *Logger) Error(text string) {
	l.ErrorM(text, l.module)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.ErrorM(fmt.Sprintf(format, args...), l.module)
}

func (l *Logger) ErrorM(text string, module string) {
	l.print(color.New(color.FgRed), module, text)
	l.txt().Errorf("[%s] %s", module, text)
}

func (l *Logger) Fatal(text string) {
	l.FatalM(text, l.module)
}

func (l *Logger) FatalM(text string, module string) {
	l.txt().Errorf("[%s] %s", module, text)
	l.print(color.New(color.FgRed), module, text)
	osExit(1)
}
