// Package update checks GitHub releases for newer builds of the diary
// service and the meter CLI.
package update

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Repo is the GitHub repository releases are published to.
const Repo = "oszuidwest/diario-bordo"

const (
	defaultBaseURL = "https://api.github.com"
	checkTimeout   = 30 * time.Second
	retryInitial   = time.Minute
	retryMax       = 30 * time.Minute
)

var (
	// ErrRateLimited is returned when GitHub throttles the check.
	ErrRateLimited = errors.New("release check rate limited")
	// ErrNoRelease is returned when no published release exists.
	ErrNoRelease = errors.New("no published release")
)

// StatusError is returned for unexpected HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("release check returned status %d", e.Code)
}

// retryable reports whether a failed check should be retried before the next
// interval.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, ErrNoRelease)
}

// Status is the update state reported by the API and the CLI.
type Status struct {
	Current         string    `json:"current"`
	Latest          string    `json:"latest,omitempty"`
	UpdateAvailable bool      `json:"update_available"`
	CheckedAt       time.Time `json:"checked_at,omitzero"`
}

// Checker tracks the latest published release. It is safe for concurrent
// use; a nil Checker reports the current version only.
type Checker struct {
	current string
	client  *http.Client
	baseURL string
	backoff *util.Backoff

	mu        sync.RWMutex
	latest    string
	etag      string // for conditional requests
	checkedAt time.Time
}

// NewChecker returns a Checker for a build of the given version. A nil
// client uses http.DefaultClient and an empty baseURL the GitHub API.
func NewChecker(current string, client *http.Client, baseURL string) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return &Checker{
		current: Normalize(current),
		client:  client,
		baseURL: strings.TrimRight(cmp.Or(baseURL, defaultBaseURL), "/"),
		backoff: util.NewBackoff(retryInitial, retryMax),
	}
}

type release struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// Check fetches the latest release once. A 304 response keeps the known
// release; drafts and prereleases are ignored.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeoutCause(ctx, checkTimeout, errors.New("release check timeout"))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/repos/"+Repo+"/releases/latest", http.NoBody)
	if err != nil {
		return util.WrapError("build release request", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "diario-bordo/"+c.current)

	c.mu.RLock()
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return util.WrapError("fetch latest release", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // Best-effort cleanup
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		c.touch()
		return nil
	case http.StatusNotFound:
		c.touch()
		return ErrNoRelease
	case http.StatusForbidden, http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &StatusError{Code: resp.StatusCode}
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return util.WrapError("decode release", err)
	}
	if rel.Draft || rel.Prerelease || rel.TagName == "" {
		c.touch()
		return nil
	}

	c.mu.Lock()
	c.latest = Normalize(rel.TagName)
	if etag := resp.Header.Get("ETag"); etag != "" {
		c.etag = etag
	}
	c.checkedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Checker) touch() {
	c.mu.Lock()
	c.checkedAt = time.Now()
	c.mu.Unlock()
}

// Run checks after delay and then every interval until ctx is done. Failed
// checks are retried with exponential backoff.
func (c *Checker) Run(ctx context.Context, delay, interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in update checker", "panic", r)
		}
	}()

	wait := delay
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		err := c.Check(ctx)
		switch {
		case err == nil || !retryable(err):
			c.backoff.Reset()
			wait = interval
			if s := c.Status(); s.UpdateAvailable {
				slog.Info("update available", "current", s.Current, "latest", s.Latest)
			}
		default:
			wait = min(c.backoff.Next(), interval)
			slog.Debug("release check failed", "error", err, "retry_in", wait)
		}
	}
}

// Status returns the current update state.
func (c *Checker) Status() Status {
	if c == nil {
		return Status{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Current:         c.current,
		Latest:          c.latest,
		UpdateAvailable: c.latest != "" && IsNewer(c.latest, c.current),
		CheckedAt:       c.checkedAt,
	}
}

// Normalize trims whitespace and a leading "v".
func Normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// IsNewer reports whether latest is a newer semantic version than current.
// Development builds ("dev", "unknown") never have updates.
func IsNewer(latest, current string) bool {
	lc, cc := "v"+Normalize(latest), "v"+Normalize(current)
	if !semver.IsValid(lc) || !semver.IsValid(cc) {
		return false
	}
	return semver.Compare(lc, cc) > 0
}
