package pathstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsplit/internal/document"
)

// PushOptions bounds and retries a document push.
type PushOptions struct {
	Source      string
	Concurrency int
	MaxRetries  int
	Backoff     func(attempt int) time.Duration
	Log         *slog.Logger
}

// PushResult reports how much of a document reached the store.
type PushResult struct {
	Pushed int      `json:"pushed"`
	Linked int      `json:"linked"`
	Errors []string `json:"errors,omitempty"`
}

// PushNodes writes every node under the document prefix, then links each
// title node to its content node. Individual failures are collected in the
// result; the returned error is non-nil only when ctx ends the push.
func (c *Client) PushNodes(ctx context.Context, docID string, nodes []document.Node, opts PushOptions) (PushResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	var (
		mu  sync.Mutex
		res PushResult
	)
	record := func(ok bool, msg string) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			res.Pushed++
			return
		}
		res.Errors = append(res.Errors, msg)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, n := range nodes {
		key := NodeKey(docID, i)
		req := NodeRequest{
			Value:      NodeValue(n),
			MemoryType: "document",
			Salience:   salience(n),
			Source:     opts.Source,
		}
		g.Go(func() error {
			err := c.retry(gctx, opts, log, key, func() error {
				return c.PutNode(gctx, key, req)
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error("push node failed", "key", key, "error", err)
				record(false, fmt.Sprintf("%s: %s", key, err))
				return nil
			}
			record(true, "")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("push %s: %w", docID, err)
	}

	for _, link := range TitleLinks(docID, nodes) {
		err := c.retry(ctx, opts, log, link.From, func() error {
			return c.PutLink(ctx, link)
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("push %s: %w", docID, ctx.Err())
			}
			log.Warn("link write failed", "from", link.From, "to", link.To, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("link %s: %s", link.From, err))
			continue
		}
		res.Linked++
	}
	return res, nil
}

func (c *Client) retry(ctx context.Context, opts PushOptions, log *slog.Logger, key string, fn func() error) error {
	var lastErr error
	for attempt := range opts.MaxRetries {
		lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) || attempt == opts.MaxRetries-1 {
			break
		}
		log.Warn("retryable pathstore error", "key", key, "attempt", attempt, "error", lastErr)
		var wait time.Duration
		if opts.Backoff != nil {
			wait = opts.Backoff(attempt)
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Titles rank above body text so outline lookups surface them first.
func salience(n document.Node) float64 {
	if n.Type() == document.TypeTitle {
		return 0.6
	}
	return 0.4
}
