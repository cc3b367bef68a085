package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships a batch of digest entries somewhere (Kafka in production).
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type DigestConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // unique entries before an early flush
	Topic          string
	Publisher      Publisher
	// VolatileFields are left out of the fold key. Defaults to
	// DefaultVolatileFields.
	VolatileFields []string
}

// DefaultVolatileFields change on every occurrence of an otherwise identical error.
var DefaultVolatileFields = []string{"run_id", "elapsed_ms", "duration_ms", "stack"}

// DigestEntry is one distinct error line with its repetition count.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// ErrorDigest folds repeated error lines so a failing instrument that logs the
// same error every batch produces one published entry per interval.
type ErrorDigest struct {
	config   *DigestConfig
	volatile map[string]struct{}
	entries  map[string]*DigestEntry
	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewErrorDigest(config *DigestConfig) *ErrorDigest {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	if config.VolatileFields == nil {
		config.VolatileFields = DefaultVolatileFields
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &ErrorDigest{
		config:   config,
		volatile: make(map[string]struct{}, len(config.VolatileFields)),
		entries:  make(map[string]*DigestEntry),
		cancel:   cancel,
	}
	for _, f := range config.VolatileFields {
		d.volatile[f] = struct{}{}
	}

	d.wg.Add(1)
	go d.loop(ctx)

	return d
}

func (d *ErrorDigest) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := digestKey(level, message, d.stable(fields), caller)

	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.entries[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		d.entries[key] = &DigestEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(d.entries) >= d.config.CountThreshold {
		d.flushLocked()
	}
}

// stable returns fields without the volatile ones.
func (d *ErrorDigest) stable(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if _, skip := d.volatile[k]; !skip {
			out[k] = v
		}
	}
	return out
}

func digestKey(level, message string, fields map[string]interface{}, caller string) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	raw, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}

func (d *ErrorDigest) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
		case <-ctx.Done():
			d.mu.Lock()
			d.flushLocked()
			d.mu.Unlock()
			return
		}
	}
}

func (d *ErrorDigest) flushLocked() {
	if len(d.entries) == 0 || d.config.Publisher == nil {
		return
	}

	batch := make([]DigestEntry, 0, len(d.entries))
	for _, entry := range d.entries {
		batch = append(batch, *entry)
	}
	d.entries = make(map[string]*DigestEntry)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := d.config.Publisher.PublishMessage(ctx, d.config.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "failed to publish error digest: %v\n", err)
		}
	}()
}

// Close flushes pending entries and waits for in-flight publishes.
func (d *ErrorDigest) Close() {
	d.cancel()
	d.wg.Wait()
}
