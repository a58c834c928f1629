package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	homedir "github.com/mitchellh/go-homedir"
)

const (
	ledgerLockSuffix = ".lock"
	ledgerLockPoll   = 250 * time.Millisecond
)

// LedgerLock keeps two recording runs from writing the same ledger file.
// Read-only commands never take it.
type LedgerLock struct {
	fl   *flock.Flock
	Path string
	// Notice is told once when the lock is busy. Nil stays silent.
	Notice io.Writer
	Poll   time.Duration
}

func NewLedgerLock(ledgerPath string) *LedgerLock {
	p := ledgerPath + ledgerLockSuffix
	return &LedgerLock{fl: flock.New(p), Path: p, Notice: os.Stderr, Poll: ledgerLockPoll}
}

// Acquire takes the lock, waiting for the current holder until ctx is done.
func (l *LedgerLock) Acquire(ctx context.Context) error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", l.Path, err)
	}
	if ok {
		return nil
	}
	if l.Notice != nil {
		fmt.Fprintf(l.Notice, "Ledger is busy with another wpaudit run, waiting on %s\n", l.Path)
	}
	ok, err = l.fl.TryLockContext(ctx, l.Poll)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", l.Path, err)
	}
	if !ok {
		return fmt.Errorf("waiting for %s: lock not acquired", l.Path)
	}
	return nil
}

func (l *LedgerLock) Release() error {
	if err := l.fl.Unlock(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unlocking %s: %w", l.Path, err)
	}
	return nil
}

// ResolveLedgerPath expands ~ and makes the configured path absolute.
// An empty path means ~/.config/wpaudit/wpaudit.sqlite.
func ResolveLedgerPath(configured string) (string, error) {
	if configured == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "wpaudit", "wpaudit.sqlite"), nil
	}
	expanded, err := homedir.Expand(configured)
	if err != nil {
		return "", fmt.Errorf("ledger path %q: %w", configured, err)
	}
	return filepath.Abs(expanded)
}
