package model

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

// Served is a model backed by a serving subprocess. Predictions are
// delegated to the loader-provided function; Stop terminates the
// subprocess and is safe to call more than once.
type Served struct {
	ID  string // logged model id associated with the URI, may be empty
	URI string
	PID int

	Fn PredictFunc

	// Signal overrides how the subprocess is signalled. SIGTERM when nil.
	Signal func(pid int) error

	stopOnce sync.Once
	stopErr  error
}

// NewServed wraps a serving subprocess. fn performs one prediction round
// trip against the server.
func NewServed(id, uri string, pid int, fn PredictFunc) *Served {
	return &Served{
		ID:  id,
		URI: uri,
		PID: pid,
		Fn:  fn,
	}
}

func (s *Served) Predict(ctx context.Context, features *dataset.Table) ([]any, error) {
	if s == nil || s.Fn == nil {
		return nil, errors.New("model: served: no predict function")
	}
	return s.Fn(ctx, features)
}

// Stop terminates the serving subprocess. The first call signals the
// process; later calls return the first result.
func (s *Served) Stop() error {
	if s == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		if s.PID <= 0 {
			return
		}
		sig := s.Signal
		if sig == nil {
			sig = terminatePID
		}
		s.stopErr = sig(s.PID)
	})
	return s.stopErr
}

func terminatePID(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
