package todoist

import (
	"context"
	"errors"
	"log"
	"os"
	"time"
)

// Transport submits one batch of commands to the sync endpoint. *Client is
// the production implementation; tests substitute fakes.
type Transport interface {
	Execute(ctx context.Context, commands []Command) (TempIDMapping, error)
}

// RetryScope selects what gets re-submitted after a transport failure.
type RetryScope int

const (
	// RetryChunk re-submits only the failed chunk. This is the default:
	// commands like project_add are not idempotent on the server side, so
	// re-issuing already-acknowledged chunks creates duplicates.
	RetryChunk RetryScope = iota

	// RetryAll restarts the entire command list from the first chunk.
	// Kept for compatibility with the historical adapter behavior; it
	// duplicates every command acknowledged before the failure.
	RetryAll
)

// Dispatch defaults.
const (
	DefaultChunkSize   = 100
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = time.Second
)

// DispatcherOptions tunes batching and retry. Zero values use the defaults.
type DispatcherOptions struct {
	ChunkSize   int
	MaxAttempts int
	RetryDelay  time.Duration
	Scope       RetryScope
}

// Dispatcher sends ordered command lists to the sync endpoint in fixed-size
// chunks, retries transient failures with a fixed delay, and merges the
// per-chunk temp_id_mapping results into one mapping.
type Dispatcher struct {
	transport   Transport
	logger      *log.Logger
	chunkSize   int
	maxAttempts int
	retryDelay  time.Duration
	scope       RetryScope
}

// NewDispatcher creates a dispatcher over the given transport.
//
// If logger is nil, a default logger writing to stderr is used.
func NewDispatcher(transport Transport, logger *log.Logger, opts DispatcherOptions) *Dispatcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[dispatch] ", log.LstdFlags)
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Dispatcher{
		transport:   transport,
		logger:      logger,
		chunkSize:   chunkSize,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		scope:       opts.Scope,
	}
}

// Dispatch submits the commands in order and returns the merged mapping of
// temp ids to permanent ids. Temp ids are unique per entity per run, so the
// merge never collides.
//
// Transport failures are retried up to the attempt budget with a fixed
// delay; exhausting it returns a *DispatchError carrying the in-flight
// commands. Non-transport errors fail immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, commands []Command) (TempIDMapping, error) {
	if len(commands) == 0 {
		return TempIDMapping{}, nil
	}
	if d.scope == RetryAll {
		return d.dispatchRetryAll(ctx, commands)
	}
	return d.dispatchRetryChunk(ctx, commands)
}

func (d *Dispatcher) dispatchRetryChunk(ctx context.Context, commands []Command) (TempIDMapping, error) {
	merged := make(TempIDMapping)
	for _, chunk := range chunkCommands(commands, d.chunkSize) {
		mapping, err := d.submitChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		mergeMapping(merged, mapping)
	}
	return merged, nil
}

// submitChunk sends one chunk, retrying transient failures in place.
func (d *Dispatcher) submitChunk(ctx context.Context, chunk []Command) (TempIDMapping, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		mapping, err := d.transport.Execute(ctx, chunk)
		if err == nil {
			return mapping, nil
		}
		if !errors.Is(err, ErrTransport) {
			return nil, err
		}
		lastErr = err
		d.logger.Printf("WARNING: chunk of %d commands failed (attempt %d/%d): %v",
			len(chunk), attempt, d.maxAttempts, err)
		if attempt < d.maxAttempts {
			if waitErr := sleepContext(ctx, d.retryDelay); waitErr != nil {
				return nil, waitErr
			}
		}
	}
	return nil, &DispatchError{Attempts: d.maxAttempts, Commands: chunk, Err: lastErr}
}

// dispatchRetryAll restarts the whole command list whenever any chunk hits a
// transport failure. Each restart re-issues chunks that already succeeded.
func (d *Dispatcher) dispatchRetryAll(ctx context.Context, commands []Command) (TempIDMapping, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		merged := make(TempIDMapping)
		failed := false
		for _, chunk := range chunkCommands(commands, d.chunkSize) {
			mapping, err := d.transport.Execute(ctx, chunk)
			if err != nil {
				if !errors.Is(err, ErrTransport) {
					return nil, err
				}
				lastErr = err
				failed = true
				break
			}
			mergeMapping(merged, mapping)
		}
		if !failed {
			return merged, nil
		}
		d.logger.Printf("WARNING: batch of %d commands failed, restarting from the first chunk (attempt %d/%d): %v",
			len(commands), attempt, d.maxAttempts, lastErr)
		if attempt < d.maxAttempts {
			if waitErr := sleepContext(ctx, d.retryDelay); waitErr != nil {
				return nil, waitErr
			}
		}
	}
	return nil, &DispatchError{Attempts: d.maxAttempts, Commands: commands, Err: lastErr}
}

// chunkCommands partitions commands into slices of at most size, preserving
// order.
func chunkCommands(commands []Command, size int) [][]Command {
	var chunks [][]Command
	for start := 0; start < len(commands); start += size {
		end := start + size
		if end > len(commands) {
			end = len(commands)
		}
		chunks = append(chunks, commands[start:end])
	}
	return chunks
}

func mergeMapping(dst, src TempIDMapping) {
	for tempID, realID := range src {
		dst[tempID] = realID
	}
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
