// Package httpwork builds varpoll work that polls an HTTP endpoint returning JSON.
package httpwork

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ngicks/varpoll/common"
	"github.com/tidwall/gjson"
)

var (
	ErrStatus      = errors.New("unexpected status")
	ErrInvalidJSON = errors.New("invalid json")
	ErrBadDelay    = errors.New("bad delay value")
)

// MaxBodySize is the number of bytes read from a response body. The rest is discarded.
const MaxBodySize = 1 << 20

type Option = func(p *Poll) *Poll

// WithDelayPath sets a gjson path to the next delay in the response body.
// A number is read as seconds, a string as a time.ParseDuration value.
// The interval is used when the path does not exist.
func WithDelayPath(path string) Option {
	return func(p *Poll) *Poll {
		p.delayPath = path
		return p
	}
}

// WithTransition shortens the delay to at most shortInterval for window after MarkTransition.
func WithTransition(window, shortInterval time.Duration) Option {
	return func(p *Poll) *Poll {
		p.transitionWindow = window
		p.shortInterval = shortInterval
		return p
	}
}

// OnBody registers fn to receive every successfully parsed body.
func OnBody(fn func(body gjson.Result)) Option {
	return func(p *Poll) *Poll {
		if fn != nil {
			p.onBody = append(p.onBody, fn)
		}
		return p
	}
}

func WithHeader(key, value string) Option {
	return func(p *Poll) *Poll {
		p.header.Add(key, value)
		return p
	}
}

func WithGetNow(getNow common.GetNower) Option {
	return func(p *Poll) *Poll {
		if getNow != nil {
			p.getNow = getNow
		}
		return p
	}
}

// Poll GETs url each round. Pass Poll.Work to varpoll.New.
type Poll struct {
	client    *http.Client
	url       string
	header    http.Header
	delayPath string
	onBody    []func(body gjson.Result)
	getNow    common.GetNower

	interval atomic.Int64

	transitionWindow time.Duration
	shortInterval    time.Duration
	mu               sync.Mutex
	transitionUntil  time.Time
}

// New returns a Poll. client may be nil, in which case http.DefaultClient is used.
//
// panic: If interval is negative.
func New(client *http.Client, url string, interval time.Duration, options ...Option) *Poll {
	if interval < 0 {
		panic(fmt.Errorf("httpwork: negative interval %s", interval))
	}
	if client == nil {
		client = http.DefaultClient
	}
	p := &Poll{
		client: client,
		url:    url,
		header: make(http.Header),
		getNow: common.GetNowImpl{},
	}
	p.interval.Store(int64(interval))
	for _, opt := range options {
		p = opt(p)
	}
	return p
}

// SetInterval replaces the default delay. It takes effect from the next round.
func (p *Poll) SetInterval(d time.Duration) {
	if d < 0 {
		return
	}
	p.interval.Store(int64(d))
}

func (p *Poll) Interval() time.Duration {
	return time.Duration(p.interval.Load())
}

// MarkTransition starts the transition window.
// Callers usually follow it with Poller.Reschedule(0, true) to observe the change right away.
func (p *Poll) MarkTransition() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitionUntil = p.getNow.GetNow().Add(p.transitionWindow)
}

// InTransition reports whether the transition window is open.
func (p *Poll) InTransition() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getNow.GetNow().Before(p.transitionUntil)
}

// Work implements varpoll.WorkFn.
func (p *Poll) Work(ctx context.Context) (next time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, err
	}
	for k, v := range p.header {
		req.Header[k] = v
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	next = p.Interval()
	if p.delayPath != "" || len(p.onBody) > 0 {
		if !gjson.ValidBytes(body) {
			return 0, ErrInvalidJSON
		}
		parsed := gjson.ParseBytes(body)
		for _, fn := range p.onBody {
			fn(parsed)
		}
		if p.delayPath != "" {
			if v := parsed.Get(p.delayPath); v.Exists() {
				next, err = parseDelay(v)
				if err != nil {
					return 0, err
				}
			}
		}
	}

	if p.InTransition() && p.shortInterval < next {
		next = p.shortInterval
	}
	return next, nil
}

func parseDelay(v gjson.Result) (time.Duration, error) {
	switch v.Type {
	case gjson.Number:
		ns := v.Float() * float64(time.Second)
		// float64(math.MaxInt64) rounds up to 2^63, which itself overflows.
		if math.IsNaN(ns) || ns >= float64(math.MaxInt64) || ns < float64(math.MinInt64) {
			return 0, fmt.Errorf("%w: %s seconds is out of range", ErrBadDelay, v.Raw)
		}
		return time.Duration(ns), nil
	case gjson.String:
		d, err := time.ParseDuration(v.Str)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBadDelay, err)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrBadDelay, v.Raw)
	}
}
