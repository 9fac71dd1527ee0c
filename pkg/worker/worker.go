package worker

import (
	"errors"
	"sync"

	"github.com/nimasrn/live-commerce/pkg/logger"
)

var ErrQueueFull = errors.New("worker queue is full")

type WorkerHandler = func(workerIndex int, job interface{})

type WorkerManager struct {
	bufferSize     int
	jobChannel     chan interface{}
	numberOfWorker int
	quit           chan struct{}
	exitOnce       sync.Once
	do             WorkerHandler
	waiter         *sync.WaitGroup
}

// NewWorkerManager
// is a job manager based on go routines. Define the number of internal
// workers, and start publishing jobs using WorkerManager Enqueue() API. It will distribute the job
// among its internal pool. The workers keep listening until Exit() is called.
// The job channel is NOT closed on exit, because it may be externally passed to this instance
// and other processes might be using the channel.
func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}

	return &WorkerManager{
		bufferSize:     bufferSize,
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		quit:           make(chan struct{}),
		waiter:         &sync.WaitGroup{},
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	if w.jobChannel == nil {
		return 0
	}
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) JobEvents() chan interface{} {
	return w.jobChannel
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue
// Publishes a message onto the channel, blocking while the buffer is full
func (w *WorkerManager) Enqueue(val interface{}) {
	select {
	case w.jobChannel <- val:
	case <-w.quit:
	}
}

// TryEnqueue
// Publishes without blocking. A full buffer returns ErrQueueFull.
func (w *WorkerManager) TryEnqueue(val interface{}) error {
	select {
	case w.jobChannel <- val:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start
// starts off the workers as many as defined
// by w.numberOfWorker and blocks until Exit()
func (w *WorkerManager) Start() error {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()

	return errors.New("workers terminated")
}

// Exit
// stops every worker once its current job returns. Safe to call more than once.
func (w *WorkerManager) Exit() {
	w.exitOnce.Do(func() {
		logger.Info("Exit() is called and worker manager is going to be shutdown")
		close(w.quit)
	})
}
