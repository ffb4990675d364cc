package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/kubescape/sysflow-agent/pkg/events"
	"github.com/oleiade/lane/v2"
)

var _ events.Source = (*OrderedQueueSource)(nil)

// OrderedQueueSource lets producers push decoded events from any goroutine and
// hands them to the single processing loop sorted by timestamp. Events are
// held for one collection interval so late arrivals can be reordered.
type OrderedQueueSource struct {
	collectionInterval time.Duration
	idleTimeout        time.Duration
	maxBufferSize      int

	queue      *lane.PriorityQueue[*events.SysFlowEvent, int64]
	queueMutex sync.Mutex

	// sorted batches go through sendingChan; sendingLoop forwards them one by
	// one to the consumer without holding queueMutex.
	sendingChan chan *events.SysFlowEvent
	outputChan  chan *events.SysFlowEvent

	ctx       context.Context
	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
	started   bool
	stopped   bool
	feedErr   error
}

func NewOrderedQueueSource(collectionInterval, idleTimeout time.Duration, maxBufferSize int) *OrderedQueueSource {
	return &OrderedQueueSource{
		collectionInterval: collectionInterval,
		idleTimeout:        idleTimeout,
		maxBufferSize:      maxBufferSize,
		queue:              lane.NewMinPriorityQueue[*events.SysFlowEvent, int64](),
		sendingChan:        make(chan *events.SysFlowEvent, maxBufferSize*2),
		outputChan:         make(chan *events.SysFlowEvent),
		closed:             make(chan struct{}),
	}
}

// Start begins the periodic release of buffered events.
func (q *OrderedQueueSource) Start(ctx context.Context) error {
	q.queueMutex.Lock()
	defer q.queueMutex.Unlock()

	if q.started {
		return fmt.Errorf("ordered queue source already started")
	}
	if q.stopped {
		return fmt.Errorf("ordered queue source has been stopped and cannot be restarted")
	}

	q.ctx, q.cancel = context.WithCancel(ctx)
	q.started = true
	go q.collectionLoop()
	go q.sendingLoop()

	logger.L().Info("ordered queue source started",
		helpers.String("collectionInterval", q.collectionInterval.String()),
		helpers.Int("maxBufferSize", q.maxBufferSize))
	return nil
}

// Push buffers an event. Events pushed before Start or after Finish/Close are
// dropped. Push waits while the consumer is behind, until the source is
// closed or its context is cancelled.
func (q *OrderedQueueSource) Push(ev *events.SysFlowEvent) {
	q.queueMutex.Lock()
	defer q.queueMutex.Unlock()

	if !q.started || q.stopped {
		return
	}
	if int(q.queue.Size()) >= q.maxBufferSize {
		logger.L().Warning("event buffer full, releasing early",
			helpers.Int("maxBufferSize", q.maxBufferSize))
		q.releaseLocked()
	}
	q.queue.Push(ev, ev.TS)
}

func (q *OrderedQueueSource) Next(ctx context.Context) (*events.SysFlowEvent, error) {
	timer := time.NewTimer(q.idleTimeout)
	defer timer.Stop()

	select {
	case ev, ok := <-q.outputChan:
		if !ok {
			q.queueMutex.Lock()
			defer q.queueMutex.Unlock()
			if q.feedErr != nil {
				return nil, q.feedErr
			}
			return nil, io.EOF
		}
		return ev, nil
	case <-timer.C:
		return nil, events.ErrTimeout
	case <-ctx.Done():
		return nil, events.ErrTimeout
	}
}

// Finish ends the input side: everything still buffered is released and Next
// returns io.EOF once the released events are consumed.
func (q *OrderedQueueSource) Finish() {
	q.queueMutex.Lock()
	defer q.queueMutex.Unlock()

	if q.stopped {
		return
	}
	q.stopped = true
	if !q.started {
		close(q.outputChan)
		return
	}
	q.releaseLocked()
	close(q.sendingChan)
}

// Close stops the source from the consumer side. Buffered events that were
// not consumed yet are dropped, and blocked producers return.
func (q *OrderedQueueSource) Close() error {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	q.Finish()

	q.queueMutex.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	q.queueMutex.Unlock()

	logger.L().Info("ordered queue source stopped")
	return nil
}

// Feed pushes every event of src and finishes the queue when src ends. A
// failure of src is handed to the consumer once the buffer is drained.
func (q *OrderedQueueSource) Feed(ctx context.Context, src events.Source) {
	defer q.Finish()
	for {
		ev, err := src.Next(ctx)
		switch {
		case err == nil:
			q.Push(ev)
		case errors.Is(err, io.EOF):
			return
		case errors.Is(err, events.ErrTimeout):
			if ctx.Err() != nil {
				return
			}
		default:
			q.queueMutex.Lock()
			q.feedErr = err
			q.queueMutex.Unlock()
			return
		}
	}
}

func (q *OrderedQueueSource) collectionLoop() {
	ticker := time.NewTicker(q.collectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.closed:
			return
		case <-ticker.C:
			q.queueMutex.Lock()
			if !q.stopped {
				q.releaseLocked()
			}
			q.queueMutex.Unlock()
		}
	}
}

// sendingLoop forwards released events to the consumer and closes the output
// once the input side is finished.
func (q *OrderedQueueSource) sendingLoop() {
	defer close(q.outputChan)

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.closed:
			return
		case ev, ok := <-q.sendingChan:
			if !ok {
				return
			}
			select {
			case q.outputChan <- ev:
			case <-q.ctx.Done():
				return
			case <-q.closed:
				return
			}
		}
	}
}

// releaseLocked moves all buffered events, oldest first, to the sending
// channel. It waits while that channel is full and gives up once the source
// is closed or cancelled.
func (q *OrderedQueueSource) releaseLocked() {
	for {
		ev, _, ok := q.queue.Pop()
		if !ok {
			return
		}
		select {
		case q.sendingChan <- ev:
		case <-q.ctx.Done():
			return
		case <-q.closed:
			return
		}
	}
}
