package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Client for tests. It records every call and
// replays queued responses in order. When the queue is exhausted the
// zero-value response is returned.
type Fake struct {
	mu sync.Mutex

	// Responses are returned by Complete in order; after the queue
	// drains, Response is returned.
	Responses []string
	// Response is the fallback Complete result.
	Response string
	// Err, when set, is returned by every Complete call.
	Err error

	// Chunks are emitted by StreamComplete one at a time.
	Chunks []string
	// StreamErr, when set, is returned by StreamComplete. If
	// FailAfterChunks is false the error is returned before any chunk.
	StreamErr       error
	FailAfterChunks bool

	calls [][]Message
}

// Complete implements Client.
func (f *Fake) Complete(_ context.Context, msgs []Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) > 0 {
		resp := f.Responses[0]
		f.Responses = f.Responses[1:]
		return resp, nil
	}
	return f.Response, nil
}

// StreamComplete implements Client.
func (f *Fake) StreamComplete(ctx context.Context, msgs []Message, fn StreamFunc) error {
	f.mu.Lock()
	f.calls = append(f.calls, msgs)
	chunks := append([]string(nil), f.Chunks...)
	streamErr := f.StreamErr
	failAfter := f.FailAfterChunks
	f.mu.Unlock()

	if streamErr != nil && !failAfter {
		return streamErr
	}
	for _, chunk := range chunks {
		if err := fn(ctx, chunk); err != nil {
			return err
		}
	}
	return streamErr
}

// CallCount returns the number of calls issued so far.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Calls returns a copy of all recorded calls.
func (f *Fake) Calls() [][]Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]Message(nil), f.calls...)
}
