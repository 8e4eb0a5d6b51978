package pgl

import "sync"

//Task is one unit of work for the Pool.
type Task interface {
	Run()
}

//Pool is a fixed size worker pool for the per particle work of one growth round.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

//NewPool starts threadsNum workers consuming queued tasks.
func NewPool(threadsNum int) *Pool {
	pool := &Pool{tasks: make(chan Task)}
	for i := 0; i < threadsNum; i++ {
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			for task := range pool.tasks {
				task.Run()
			}
		}()
	}
	return pool
}

//AddTask queues one task.
func (pool *Pool) AddTask(task Task) {
	pool.tasks <- task
}

//Close signals that no more tasks will arrive.
func (pool *Pool) Close() {
	close(pool.tasks)
}

//WaitAll blocks until every queued task has finished.
func (pool *Pool) WaitAll() {
	pool.wg.Wait()
}

//TaskGrowParticle grows one particle slot and stores the outcome in its slot of the
//shared error slice, so oracle failures can be surfaced after the round.
type TaskGrowParticle struct {
	errs []error
	slot int
	grow func(slot int) error
}

func (task *TaskGrowParticle) Run() {
	task.errs[task.slot] = task.grow(task.slot)
}
