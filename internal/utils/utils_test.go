package utils

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	homedir "github.com/mitchellh/go-homedir"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"about-us", []string{"about-us"}},
		{" about-us , , faq,about-us ", []string{"about-us", "faq"}},
	}
	for _, tt := range tests {
		if got := SplitCSV(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("SplitCSV(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestLedgerLockWaitsForHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.sqlite")

	holder := NewLedgerLock(path)
	holder.Notice = nil
	if err := holder.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	var notice bytes.Buffer
	waiter := NewLedgerLock(path)
	waiter.Notice = &notice
	waiter.Poll = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := waiter.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire while held = %v, want deadline exceeded", err)
	}
	if !strings.Contains(notice.String(), "Ledger is busy") {
		t.Fatalf("notice = %q", notice.String())
	}

	if err := holder.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := waiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if err := waiter.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestResolveLedgerPath(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := ResolveLedgerPath("")
	if err != nil || got != filepath.Join(home, ".config", "wpaudit", "wpaudit.sqlite") {
		t.Fatalf("ResolveLedgerPath(\"\") = %q, %v", got, err)
	}
	got, err = ResolveLedgerPath("~/audits/site.sqlite")
	if err != nil || got != filepath.Join(home, "audits", "site.sqlite") {
		t.Fatalf("ResolveLedgerPath(~) = %q, %v", got, err)
	}
	got, err = ResolveLedgerPath("ledger.sqlite")
	if err != nil || !filepath.IsAbs(got) || filepath.Base(got) != "ledger.sqlite" {
		t.Fatalf("ResolveLedgerPath(relative) = %q, %v", got, err)
	}
}
