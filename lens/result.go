package lens

import (
	"fmt"
	"sync"
	"time"
)

// Report is the decoded view over a Payload. The suite tree is built once on first access and is immutable
// afterwards, all methods are safe for concurrent use.
type Report struct {
	payload  *Payload
	pool     *ValuePool
	registry *Registry
	builder  *treeBuilder

	suiteOnce sync.Once
	root      *Suite
	rootErr   error

	errorsOnce sync.Once
	errors     []*Message
	errorsErr  error

	statsOnce  sync.Once
	statistics *Statistics
	statsErr   error
}

// NewReport creates a Report over the payload, the payload must not be modified afterwards. Payloads built by
// hand are normalized into a copy, the caller's Suite and Errors are left as provided.
func NewReport(payload *Payload, opts PoolOptions) (*Report, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrShapeMismatch)
	}
	if !payload.normalized {
		normalized := *payload
		if err := normalized.normalize(); err != nil {
			return nil, err
		}
		payload = &normalized
	}
	pool, err := NewValuePool(payload.Strings, payload.Integers, opts)
	if err != nil {
		return nil, err
	}
	registry := &Registry{}
	return &Report{
		payload:  payload,
		pool:     pool,
		registry: registry,
		builder: &treeBuilder{
			pool:     pool,
			registry: registry,
			epoch:    payload.BaseMillis,
		},
	}, nil
}

// Suite returns the root suite, building the whole tree on the first call. A build failure is returned from
// every call.
func (r *Report) Suite() (*Suite, error) {
	r.suiteOnce.Do(func() {
		elem, _ := r.payload.Suite.([]any) // normalize guarantees a sequence
		mark := r.registry.Len()
		r.root, r.rootErr = r.builder.suite(nil, elem, 0)
		if r.rootErr != nil {
			r.registry.truncate(mark) // no partially built tree is reachable
		}
	})
	return r.root, r.rootErr
}

// Find returns the node with the given id, building the tree first. Nothing is found when the build failed.
func (r *Report) Find(id ElementID) (Node, bool) {
	_, _ = r.Suite()
	return r.registry.Find(id)
}

// PathToSuite returns the ids from the root to the named suite, empty if not found.
func (r *Report) PathToSuite(fullName string) []ElementID {
	root, err := r.Suite()
	if err != nil {
		return nil
	}
	return PathToSuite(root, fullName)
}

// PathToTest returns the ids from the root to the named test, empty if not found.
func (r *Report) PathToTest(fullName string) []ElementID {
	root, err := r.Suite()
	if err != nil {
		return nil
	}
	return PathToTest(root, fullName)
}

// PathToKeyword returns the ids from the root to the named keyword, empty if not found.
func (r *Report) PathToKeyword(fullName string) []ElementID {
	root, err := r.Suite()
	if err != nil {
		return nil
	}
	return PathToKeyword(root, fullName)
}

// Generated returns when the report was generated.
func (r *Report) Generated() time.Time {
	return r.builder.timestamp(r.payload.GeneratedMillis)
}

// Errors returns the report level messages in encoded order. Their ids follow the suite tree, which is built
// first if needed.
func (r *Report) Errors() ([]*Message, error) {
	r.errorsOnce.Do(func() {
		_, _ = r.Suite() // a tree failure is reported by Suite, the errors are still usable

		mark := r.registry.Len()
		errs := make([]*Message, 0, len(r.payload.Errors))
		for i, entry := range r.payload.Errors {
			elem, ok := entry.([]any)
			if !ok {
				r.registry.truncate(mark)
				r.errorsErr = fmt.Errorf("error %d: %w: not a sequence", i, ErrShapeMismatch)
				return
			}
			msg, err := r.builder.message(nil, elem, i)
			if err != nil {
				r.registry.truncate(mark)
				r.errorsErr = fmt.Errorf("report errors: %w", err)
				return
			}
			errs = append(errs, msg)
		}
		r.errors = errs
	})
	return r.errors, r.errorsErr
}

// Statistics returns the report level statistics, parsed once. A malformed counter is returned as an error from
// every call.
func (r *Report) Statistics() (*Statistics, error) {
	r.statsOnce.Do(func() {
		r.statistics, r.statsErr = parseStatistics(r.payload.Stats)
	})
	return r.statistics, r.statsErr
}

// Pool returns the value pool backing the report.
func (r *Report) Pool() *ValuePool {
	return r.pool
}

// NodeCount returns the number of nodes constructed so far.
func (r *Report) NodeCount() int {
	return r.registry.Len()
}
