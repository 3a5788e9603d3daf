package study

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// StackLoadError reports a stack load that failed on a specific reference.
// The previously loaded stack is left untouched by a failed load.
type StackLoadError struct {
	Ref ImageRef
	Err error
}

func (e *StackLoadError) Error() string {
	return fmt.Sprintf("load stack: reference %q: %v", e.Ref, e.Err)
}

func (e *StackLoadError) Unwrap() error {
	return e.Err
}

// LoadResult is handed to the apply callback after a stack load fully
// succeeds.
type LoadResult struct {
	Refs  []ImageRef
	Stack *Stack
}

// Loader resolves image references into stacks asynchronously.
//
// The underlying decode has no cancellation, so the loader uses a generation
// counter instead: every Load call takes a fresh generation, and a completion
// whose generation is no longer the newest is discarded without invoking any
// callback. Completions are also dropped once the alive check reports the
// owning surface gone, so teardown during an in-flight load is safe.
type Loader struct {
	mu       sync.Mutex
	source   ImageSource
	logger   *log.Logger
	gen      uint64
	inflight int

	onBegin func()
	onApply func(LoadResult)
	onError func(error)
	alive   func() bool
}

// NewLoader creates a loader that resolves references through source.
// A nil logger disables load logging.
func NewLoader(source ImageSource, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Loader{source: source, logger: logger}
}

// OnBegin sets a callback invoked when an asynchronous load starts.
func (l *Loader) OnBegin(fn func()) { l.onBegin = fn }

// OnApply sets the callback that receives the result of the newest
// successful load. It is invoked from the loader's goroutine.
func (l *Loader) OnApply(fn func(LoadResult)) { l.onApply = fn }

// OnError sets the callback that receives a *StackLoadError when the newest
// load fails.
func (l *Loader) OnError(fn func(error)) { l.onError = fn }

// SetAliveCheck installs the check consulted before any completion is
// applied. When it returns false the completion is dropped silently.
func (l *Loader) SetAliveCheck(fn func() bool) { l.alive = fn }

// Pending reports whether any load is still in flight, superseded or not.
func (l *Loader) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight > 0
}

// Generation returns the generation token of the most recent Load call.
func (l *Loader) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Load starts resolving refs into a stack. An empty refs slice is a no-op
// that completes immediately without emitting a loaded notification.
// Consecutive calls supersede one another: only the newest call's completion
// reaches the callbacks.
func (l *Loader) Load(refs []ImageRef) {
	if len(refs) == 0 {
		l.logger.Debug("stack load skipped: empty reference list")
		return
	}

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.inflight++
	l.mu.Unlock()

	l.logger.Debug("stack load started", "generation", gen, "refs", len(refs))
	if l.onBegin != nil {
		l.onBegin()
	}

	go l.resolve(gen, refs)
}

func (l *Loader) resolve(gen uint64, refs []ImageRef) {
	stack := &Stack{Refs: refs}
	var loadErr error
	for _, ref := range refs {
		img, err := l.source.Resolve(ref)
		if err != nil {
			loadErr = &StackLoadError{Ref: ref, Err: err}
			break
		}
		stack.Frames = append(stack.Frames, img)
	}

	l.mu.Lock()
	l.inflight--
	latest := gen == l.gen
	l.mu.Unlock()

	if !latest {
		l.logger.Debug("stack load superseded, discarding result", "generation", gen)
		return
	}
	if l.alive != nil && !l.alive() {
		l.logger.Debug("surface destroyed during load, discarding result", "generation", gen)
		return
	}

	if loadErr != nil {
		l.logger.Warn("stack load failed", "generation", gen, "err", loadErr)
		if l.onError != nil {
			l.onError(loadErr)
		}
		return
	}

	l.logger.Info("stack loaded", "generation", gen, "frames", stack.Len())
	if l.onApply != nil {
		l.onApply(LoadResult{Refs: refs, Stack: stack})
	}
}
