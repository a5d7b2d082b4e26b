// Package sink receives the structured records the crawl emits. Delivery is
// append-only and at-least-once: a resumed crawl may re-emit records for
// work that finished after the last checkpoint flush.
package sink

import "context"

// Record is one emitted crawl result, successful or failed.
type Record map[string]interface{}

// Sink accepts records.
type Sink interface {
	Push(ctx context.Context, rec Record) error
	Close() error
}
