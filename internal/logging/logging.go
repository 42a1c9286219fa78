package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

// Logger writes leveled, color-prefixed messages. Secret values must never be
// passed to any of its methods, not even at debug level.
type Logger struct {
	Verbose bool
	Debug   bool

	// Timestamps prefixes every line with the local time. The agent enables
	// this since its output goes to a log file rather than a terminal.
	Timestamps bool
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose {
		fmt.Fprintf(os.Stdout, l.stamp()+color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(os.Stdout, l.stamp()+color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, l.stamp()+color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, l.stamp()+color.RedString("[error] ")+msg+"\n", args...)
}

func (l Logger) stamp() string {
	if !l.Timestamps {
		return ""
	}
	return time.Now().Format("2006-01-02 15:04:05 ")
}
