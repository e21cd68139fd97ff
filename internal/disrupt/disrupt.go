// Package disrupt schedules extra reconciliation passes around the network
// calls that tend to precede an unwanted map reset.
//
// The offending reset is usually issued by the response handler of a
// category/marker-refresh-like request. Waiting for the next periodic tick
// after such a call can produce a visible flash of the default location, so
// any outbound request whose URL matches the keyword heuristics gets one
// extra pass a short fixed delay after it settles.
package disrupt

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultKeywords are the path fragments that mark a request as likely to
// trigger a reset. Matching is case-insensitive substring matching over the
// URL's path and query.
var DefaultKeywords = []string{
	"category",
	"categories",
	"marker",
	"markers",
	"listing",
	"listings",
	"filter",
	"refresh",
}

// DefaultRecheckDelay is how long after a matching call settles the extra
// pass runs. Long enough for the response handler to have issued its reset,
// short enough to beat the next render frame the user would notice.
const DefaultRecheckDelay = 100 * time.Millisecond

// Scheduler schedules a delayed reconciliation pass.
// The reconcile loop satisfies this.
type Scheduler interface {
	TriggerAfter(delay time.Duration)
}

// Matcher decides which request URLs look like category/marker-refresh
// endpoints.
type Matcher struct {
	keywords []string
}

// NewMatcher creates a matcher over the given keywords, lower-cased.
// With no keywords, DefaultKeywords are used.
func NewMatcher(keywords []string) *Matcher {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &Matcher{keywords: lowered}
}

// Matches reports whether the URL's path or query contains any keyword.
func (m *Matcher) Matches(u *url.URL) bool {
	if u == nil {
		return false
	}

	target := strings.ToLower(u.Path + "?" + u.RawQuery)
	for _, kw := range m.keywords {
		if strings.Contains(target, kw) {
			return true
		}
	}
	return false
}

// Transport wraps an http.RoundTripper (the modern request path) so matching
// calls schedule a recheck after they settle. The wrapped transport is
// otherwise transparent: requests and responses pass through unmodified, and
// failed calls schedule a recheck too, since the caller's error handler may
// reset the map just like its response handler would.
type Transport struct {
	base      http.RoundTripper
	matcher   *Matcher
	scheduler Scheduler
	delay     time.Duration
}

// NewTransport wraps base. A nil base uses http.DefaultTransport; a
// non-positive delay uses DefaultRecheckDelay.
func NewTransport(base http.RoundTripper, matcher *Matcher, scheduler Scheduler, delay time.Duration) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if delay <= 0 {
		delay = DefaultRecheckDelay
	}

	return &Transport{
		base:      base,
		matcher:   matcher,
		scheduler: scheduler,
		delay:     delay,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)

	if t.matcher.Matches(req.URL) {
		t.scheduler.TriggerAfter(t.delay)
	}

	return resp, err
}

// Doer is the legacy request-object entry point: anything with a Do method.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// wrappedDoer schedules rechecks around a legacy Doer.
type wrappedDoer struct {
	base      Doer
	matcher   *Matcher
	scheduler Scheduler
	delay     time.Duration
}

// WrapDoer wraps the legacy request object so matching calls schedule a
// recheck after they settle.
func WrapDoer(base Doer, matcher *Matcher, scheduler Scheduler, delay time.Duration) Doer {
	if delay <= 0 {
		delay = DefaultRecheckDelay
	}

	return &wrappedDoer{
		base:      base,
		matcher:   matcher,
		scheduler: scheduler,
		delay:     delay,
	}
}

func (d *wrappedDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.base.Do(req)

	if d.matcher.Matches(req.URL) {
		d.scheduler.TriggerAfter(d.delay)
	}

	return resp, err
}

// WrapClient returns a copy of client whose transport schedules rechecks.
// The original client is not modified.
func WrapClient(client *http.Client, matcher *Matcher, scheduler Scheduler, delay time.Duration) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}

	wrapped := *client
	wrapped.Transport = NewTransport(client.Transport, matcher, scheduler, delay)
	return &wrapped
}
