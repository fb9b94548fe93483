// Package fanout runs independent tasks concurrently and collects every
// outcome, whether the task succeeded or not.
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

type Outcome[T any] struct {
	Name  string
	Value T
	Err   error
}

func (o Outcome[T]) OK() bool { return o.Err == nil }

// Settle starts every task and waits for all of them. A failing (or
// panicking) task is recorded in its Outcome and never cancels its siblings.
// Outcomes are returned in task order.
func Settle[T any](ctx context.Context, tasks []Task[T]) []Outcome[T] {
	out := make([]Outcome[T], len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() (err error) {
			out[i].Name = task.Name
			defer func() {
				if r := recover(); r != nil {
					out[i].Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
				}
			}()
			v, runErr := task.Run(ctx)
			out[i].Value = v
			out[i].Err = runErr
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Split partitions outcomes into successes and failures, keeping order.
func Split[T any](outcomes []Outcome[T]) (ok []Outcome[T], failed []Outcome[T]) {
	for _, o := range outcomes {
		if o.OK() {
			ok = append(ok, o)
		} else {
			failed = append(failed, o)
		}
	}
	return ok, failed
}
