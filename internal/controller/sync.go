package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxStatusBody = 1 << 20

// statusResponse is the koboldcpp /api/v1/model payload, e.g. {"result":"koboldcpp/mistral-7b"}.
type statusResponse struct {
	Result *string `json:"result"`
}

// parseModelName returns everything after the first "/" of a status result,
// or the whole result when it has no namespace.
func parseModelName(result string) string {
	if _, name, ok := strings.Cut(result, "/"); ok {
		return name
	}
	return result
}

// fetchModelName performs a single GET against the status endpoint.
func (c *Controller) fetchModelName(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.StatusURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("request unsuccessful, received %s", resp.Status)
	}
	var body statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxStatusBody)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	if body.Result == nil {
		return "", errors.New("status response has no result")
	}
	return parseModelName(*body.Result), nil
}

// sync reconciles the tracked state with the child's status endpoint.
// Concurrent callers share one request, but a caller never accepts the result of
// a request that began before its own call. The returned error is nil, the
// context error, or a sync fault (already applied to the state).
func (c *Controller) sync(ctx context.Context) error {
	for {
		before := c.syncSeq.Load()
		ch := c.syncs.DoChan("status", func() (any, error) {
			seq := c.syncSeq.Add(1)
			return seq, c.syncOnce(context.WithoutCancel(ctx))
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-ch:
			if seq, _ := res.Val.(uint64); seq <= before {
				continue
			}
			return res.Err
		}
	}
}

func (c *Controller) syncOnce(ctx context.Context) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	start := time.Now()
	name, err := c.fetchModelName(ctx)
	result := "ok"
	if err != nil {
		result = "unreachable"
	}
	syncDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		// A spawn or exit happened while the request was in flight.
		c.log.Debug().Msg("discarding stale status sync")
		return nil
	}
	if err != nil {
		if c.status.State == StateOnline {
			c.log.Warn().Err(err).Msg("koboldcpp stopped responding")
			c.fail("koboldcpp is unexpectedly down: " + err.Error())
		} else {
			c.log.Debug().Err(err).Str("state", string(c.status.State)).Msg("koboldcpp status unavailable")
		}
		return syncError{err: err}
	}

	if c.status.State == StateFailed && c.proc != nil && c.proc.stopRequested {
		// A failed load is being killed; its exit decides the next state.
		return nil
	}
	if name != c.status.Name || c.proc == nil {
		if !c.status.Independent || name != c.status.Name {
			c.log.Warn().Str("expected", c.status.Name).Str("got", name).Msg("unexpected model name, treating model as independent")
		}
		c.status.Name = name
		c.status.Independent = true
	}
	if c.status.State != StateOnline && c.status.State != StateStopping {
		c.setState(StateOnline)
	}
	return nil
}
