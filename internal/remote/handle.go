package remote

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Handle identifies one remote execution started in the background by a
// TaskSet.
type Handle struct {
	Host    string
	Command string
	Sink    string

	done chan struct{}
	err  error
}

// Wait blocks until the execution finishes and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Done is closed once the execution has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// TaskSet runs background executions so they can be joined together. Task
// errors are kept on their handles and never reach the group, so one failed
// task does not hide the others.
type TaskSet struct {
	g errgroup.Group

	mu      sync.Mutex
	handles []*Handle
}

// Go runs fn on the set and returns a handle that joins it.
func (s *TaskSet) Go(host, command, sink string, fn func() error) *Handle {
	h := &Handle{
		Host:    host,
		Command: command,
		Sink:    sink,
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	s.g.Go(func() error {
		defer close(h.done)
		h.err = fn()
		return nil
	})
	return h
}

// Join waits for every task started so far, then empties the set. The
// returned error aggregates the failures of individual executions.
func (s *TaskSet) Join() error {
	_ = s.g.Wait()

	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	var result *multierror.Error
	for _, h := range handles {
		if err := h.Wait(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", h.Host, err))
		}
	}
	return result.ErrorOrNil()
}
