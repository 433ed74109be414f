package catutil

import (
	"sync"
)

// TaskPoolStoppedError is an error that is returned when a new task is
// submitted but the pool is stopped.
type TaskPoolStoppedError struct{}

// Returns the error message.
func (e *TaskPoolStoppedError) Error() string {
	return "task pool is stopped"
}

// TaskPool is a fixed-size pool of workers consuming tasks from a
// bounded backlog. Submitting blocks when the backlog is full, so the
// number of queued tasks never exceeds the backlog size.
type TaskPool struct {
	// Workers receive the tasks on this channel.
	tasks chan func()
	// Indicates that the pool is stopped.
	stopped bool
	// Mutex to protect against concurrent calls to control functions.
	mutex sync.Mutex
	// Waits for all workers to finish on stop.
	workersDone sync.WaitGroup
}

// Instantiates a new pool with the specified number of workers and the
// specified backlog capacity.
func NewTaskPool(size, backlog int) *TaskPool {
	pool := &TaskPool{
		tasks: make(chan func(), backlog),
	}
	// Ensure that all workers are started before returning.
	var started sync.WaitGroup
	started.Add(size)
	pool.workersDone.Add(size)
	for i := 0; i < size; i++ {
		go pool.worker(&started)
	}
	started.Wait()
	return pool
}

// Worker function reading the tasks from the task channel and executing
// them until the channel is closed.
func (p *TaskPool) worker(started *sync.WaitGroup) {
	started.Done()
	defer p.workersDone.Done()
	for task := range p.tasks {
		task()
	}
}

// Submits a task for execution. Blocks when the backlog is full. The
// mutex is held across the send so that a concurrent Stop cannot close
// the channel between the stopped check and the send.
func (p *TaskPool) Submit(task func()) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.stopped {
		return &TaskPoolStoppedError{}
	}
	p.tasks <- task
	return nil
}

// Stops the pool and waits for the workers to drain the backlog.
func (p *TaskPool) Stop() {
	p.mutex.Lock()
	if p.stopped {
		p.mutex.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mutex.Unlock()
	p.workersDone.Wait()
}
