package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/b-bellovic/kadoa-assignemnt/domain"
)

const (
	maxReconnectAttempts  = 5
	initialReconnectDelay = time.Second
)

// ErrDisconnected is returned by Stream.Run once the maximum number of
// reconnect attempts is exhausted. The stream stays down until the caller
// starts a new run.
var ErrDisconnected = errors.New("event stream disconnected after max reconnect attempts")

// Stream reads server-sent board events and redials dropped connections with
// exponential backoff. A successful connection resets the attempt counter.
type Stream struct {
	BaseURL    string
	Token      string
	Topics     []string
	HTTPClient *http.Client

	// InitialDelay overrides the first backoff interval; zero means the
	// default of one second.
	InitialDelay time.Duration

	OnConnect    func()
	OnDisconnect func()
	OnEvent      func(domain.Event)

	log      *log.Logger
	attempts int
}

func NewStream(baseURL, token string, topics []string, logger *log.Logger) *Stream {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Stream{
		BaseURL: baseURL,
		Token:   token,
		Topics:  topics,
		log:     logger,
	}
}

// Run connects and consumes events until the context is cancelled or too
// many consecutive connection attempts fail.
func (st *Stream) Run(ctx context.Context) error {
	if st.HTTPClient == nil {
		st.HTTPClient = &http.Client{}
	}
	st.attempts = 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := st.connect(ctx)
		if err != nil {
			if waitErr := st.backoff(ctx, err); waitErr != nil {
				return waitErr
			}
			continue
		}
		st.attempts = 0
		if st.OnConnect != nil {
			st.OnConnect()
		}
		st.read(ctx, resp.Body)
		resp.Body.Close()
		if st.OnDisconnect != nil {
			st.OnDisconnect()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if waitErr := st.backoff(ctx, errors.New("stream closed by server")); waitErr != nil {
			return waitErr
		}
	}
}

// backoff sleeps before the next attempt, doubling the delay per consecutive
// failure, and returns ErrDisconnected once attempts are exhausted.
func (st *Stream) backoff(ctx context.Context, cause error) error {
	if st.attempts >= maxReconnectAttempts {
		st.log.Errorf("giving up on event stream after %d attempts: %v", st.attempts, cause)
		return ErrDisconnected
	}
	initial := st.InitialDelay
	if initial <= 0 {
		initial = initialReconnectDelay
	}
	delay := initial * (1 << st.attempts)
	st.attempts++
	st.log.Warnf("event stream attempt %d failed, retrying in %s: %v", st.attempts, delay, cause)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (st *Stream) connect(ctx context.Context) (*http.Response, error) {
	query := url.Values{}
	query.Set("token", st.Token)
	if len(st.Topics) > 0 {
		query.Set("topics", strings.Join(st.Topics, ","))
	}
	target := strings.TrimRight(st.BaseURL, "/") + "/events/subscribe?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := st.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("subscribe returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// read consumes data lines until the connection drops. Malformed payloads are
// logged and skipped; they never abort the subscription.
func (st *Stream) read(ctx context.Context, body io.Reader) {
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		ev, err := domain.UnmarshalWire([]byte(payload))
		if err != nil {
			st.log.Warnf("skipping malformed stream payload: %v", err)
			continue
		}
		if st.OnEvent != nil {
			st.OnEvent(ev)
		}
	}
}
