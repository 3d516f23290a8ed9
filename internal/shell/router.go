package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// HTTPRouter posts messages to the host shell bridge. It also ships log
// lines to the shell console, which makes it a logging.Sink.
type HTTPRouter struct {
	url     string
	client  *resty.Client
	limiter *rate.Limiter

	logs chan logLine
	done chan struct{}
	once sync.Once
}

type logLine struct {
	Level   string `json:"level"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Color   string `json:"color"`
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// NewHTTPRouter creates a router posting to url.
func NewHTTPRouter(url string) *HTTPRouter {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = 500 * time.Millisecond
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(2*time.Second).
		SetHeader("Content-Type", "application/json")

	r := &HTTPRouter{
		url:     strings.TrimRight(url, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(50), 100),
		logs:    make(chan logLine, 256),
		done:    make(chan struct{}),
	}
	go r.shipLogs()
	return r
}

// Route implements Router.
func (r *HTTPRouter) Route(ctx context.Context, msg Message) error {
	return r.post(ctx, "/mmui", envelope{Type: "mmui", Payload: msg})
}

// Log implements logging.Sink. Lines are queued and dropped when the
// queue is full so logging never blocks on the shell.
func (r *HTTPRouter) Log(level, subject, message, color string) {
	select {
	case <-r.done:
	case r.logs <- logLine{Level: level, Subject: subject, Message: message, Color: color}:
	default:
	}
}

// Close stops log shipping.
func (r *HTTPRouter) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

func (r *HTTPRouter) shipLogs() {
	for {
		select {
		case <-r.done:
			return
		case line := <-r.logs:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			// Failures here cannot be logged without feeding the queue again.
			_ = r.post(ctx, "/log", envelope{Type: "log", Payload: line})
			cancel()
		}
	}
}

func (r *HTTPRouter) post(ctx context.Context, path string, body envelope) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(r.url + path)
	if err != nil {
		return fmt.Errorf("shell %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("shell %s: %s", path, resp.Status())
	}
	return nil
}

// Recorder keeps every routed message in memory. It backs the runtime when
// no shell endpoint is configured and serves as a test double.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	stack    []string
	limit    int
}

// NewRecorder keeps at most limit messages; zero keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Route implements Router.
func (r *Recorder) Route(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
	if r.limit > 0 && len(r.messages) > r.limit {
		r.messages = r.messages[len(r.messages)-r.limit:]
	}
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// SetFocusStack sets what FocusStack reports.
func (r *Recorder) SetFocusStack(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stack = ids
}

// FocusStack implements FocusStacker.
func (r *Recorder) FocusStack() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.stack))
	copy(out, r.stack)
	return out
}
