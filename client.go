package vhkb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brutella/hap/log"
)

const (
	requestTimeout = 20 * time.Second
	retryDelay     = 1 * time.Second
	maxAttempts    = 3
)

// Registers is the register surface of the device.
type Registers interface {
	Read(ctx context.Context, register, count int) (map[string]int, error)
	Write(ctx context.Context, register, value int) error
}

// Client talks to the device's mread/mwrite endpoints.
// It holds no per-request state, concurrent calls run their own retry loops.
type Client struct {
	host       string
	httpClient *http.Client
	metrics    *Metrics

	attempts int
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
}

// NewClient returns a client for the device at host (ip or ip:port). m may be nil.
func NewClient(host string, m *Metrics) *Client {
	return &Client{
		host: host,
		httpClient: &http.Client{
			Transport: &http.Transport{MaxIdleConns: 2, IdleConnTimeout: 30 * time.Second},
			Timeout:   requestTimeout,
		},
		metrics:  m,
		attempts: maxAttempts,
		delay:    retryDelay,
		sleep:    sleepCtx,
	}
}

// Write sets register to value.
// The response is not inspected, a completed round trip is success.
func (c *Client) Write(ctx context.Context, register, value int) error {
	return c.retry(ctx, "write", register, func(ctx context.Context) error {
		_, err := c.get(ctx, "/mwrite", register, value)
		return err
	})
}

// Read asks for count registers starting at register.
func (c *Client) Read(ctx context.Context, register, count int) (map[string]int, error) {
	var values map[string]int
	err := c.retry(ctx, "read", register, func(ctx context.Context) error {
		body, err := c.get(ctx, "/mread", register, count)
		if err != nil {
			return err
		}
		var v map[string]int
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("decode %q: %w", body, err)
		}
		values = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (c *Client) retry(ctx context.Context, op string, register int, fn func(context.Context) error) error {
	var last *TransportError
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			c.metrics.request(op, true)
			return nil
		}
		c.metrics.request(op, false)
		last = &TransportError{Op: op, Register: register, Err: err}
		log.Info.Printf("attempt %d/%d failed: %s", attempt, c.attempts, last.Error())

		if attempt == c.attempts {
			break
		}
		c.metrics.retry()
		if err := c.sleep(ctx, c.delay); err != nil {
			last.Err = errors.Join(last.Err, err)
			break
		}
	}

	c.metrics.unreachable(op)
	return &UnreachableError{Attempts: c.attempts, Last: last}
}

// get builds http://host/path?{"register":arg}; the device wants the JSON unescaped.
func (c *Client) get(ctx context.Context, path string, register, arg int) ([]byte, error) {
	payload, err := json.Marshal(map[string]int{strconv.Itoa(register): arg})
	if err != nil {
		return nil, err
	}
	u := url.URL{
		Scheme:   "http",
		Host:     c.host,
		Path:     path,
		RawQuery: string(payload),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	log.Debug.Printf("GET %s", u.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
