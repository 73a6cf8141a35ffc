package transfer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamkit/executor/queue"
)

// Sender drains an ExecutorTransfer's transfer queue and hands each
// worker's batch off to a transport-supplied TransferFn. It is the only
// thing in this module that ever calls out to the wire, and it never
// knows what's on the other end of send.
type Sender struct {
	in     *queue.TransferQueue[WorkerBatch]
	send   TransferFn
	logger *slog.Logger

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// SenderOption configures a Sender at construction time.
type SenderOption func(*Sender)

// WithSenderLogger overrides the default logger, slog.Default().
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSender constructs an unstarted Sender reading from in and calling
// send for each batch it drains. send must not be nil.
func NewSender(in *queue.TransferQueue[WorkerBatch], send TransferFn, opts ...SenderOption) (*Sender, error) {
	if send == nil {
		return nil, ErrNilTransferFn
	}

	s := &Sender{
		in:     in,
		send:   send,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the drain loop. A send failure is logged and the loop
// continues with the next batch — one worker being unreachable must
// not stall delivery to every other worker.
func (s *Sender) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		_ = s.in.Consume(runCtx, func(batch WorkerBatch, seq int64, endOfBatch bool) error {
			if err := s.send(runCtx, batch.Worker, batch.Payload); err != nil {
				s.logger.Error("transfer send failed", "worker", batch.Worker, "error", err)
			}
			return nil
		})
	}()

	s.started = true
	return nil
}

// Stop cancels the drain loop and waits up to timeout for it to exit.
func (s *Sender) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.stopped {
		return nil
	}

	s.in.Close()
	s.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		s.stopped = true
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
