// retry.go retries store writes on transient SQLite errors.
//
// A save file may be open in more than one process (the game host and the
// chron CLI). WAL-mode SQLite then reports SQLITE_BUSY, SQLITE_LOCKED or
// IOERR_SHORT_READ now and then. busy_timeout absorbs most SQLITE_BUSY at the
// connection level; what gets through is retried here with exponential
// backoff and jitter.
package store

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// retryConfig controls retry behavior for transient SQLite errors.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// isTransientSQLiteErr reports whether err is worth retrying. Typed driver
// errors are classified by primary result code; anything else falls back to
// matching the driver's message text.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return se.Code() == sqlite3.SQLITE_IOERR_SHORT_READ
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryOp runs fn, retrying transient failures up to cfg.maxRetries times.
func retryOp(cfg retryConfig, fn func() error) error {
	err := fn()
	for attempt := 0; attempt < cfg.maxRetries && isTransientSQLiteErr(err); attempt++ {
		time.Sleep(backoffDelay(cfg, attempt))
		err = fn()
	}
	return err
}

// backoffDelay is min(baseDelay*2^attempt, maxDelay) plus up to baseDelay
// of jitter.
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay || delay <= 0 {
		delay = cfg.maxDelay
	}
	if cfg.baseDelay <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(cfg.baseDelay)))
}
