// Package workers hosts the background tasks of the chat server and the
// small supervision runtime that keeps them alive across panics.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"roomchat/errors"
)

//go:generate go run go.uber.org/mock/mockgen -source=supervisor.go -destination=../mocks/mock_worker.go -package=mocks

const waitTimeBeforeRestart = 200 * time.Millisecond

// Worker is a long-running task. It should block until its context is
// canceled and must not recover its own panics, the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

// Name uses reflection to retrieve the type name of a worker, avoiding
// a manual naming method on the interface.
func Name(w Worker) string {
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.Name()
}

// Supervisor runs each worker in its own goroutine, recovers panics and
// restarts crashed workers after a short delay.
type Supervisor struct {
	Cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *slog.Logger
	workers []Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

func (s *Supervisor) Add(w Worker) *Supervisor {
	s.workers = append(s.workers, w)
	return s
}

// Run blocks until every worker has stopped. Callers usually launch it in
// a goroutine and cancel the parent context to shut down.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer cancel()

	for _, worker := range s.workers {
		s.wg.Add(1)
		go s.start(supervisedCtx, worker)
	}

	s.wg.Wait()
}

func (s *Supervisor) start(ctx context.Context, worker Worker) {
	defer s.wg.Done()
	name := Name(worker)

	for {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
				}
			}()

			return worker.Run(ctx)
		}()

		if err == nil {
			s.log.Info("Worker finished", "worker", name)
			return
		}

		if ctx.Err() != nil {
			s.log.Info("Worker stopped", "worker", name)
			return
		}

		s.log.Warn("Worker crashed, restarting", "worker", name, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(waitTimeBeforeRestart):
		}
	}
}

func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
