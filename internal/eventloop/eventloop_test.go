package eventloop

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopRunsTasksInSubmissionOrder(t *testing.T) {
	l := New(4)
	defer l.Stop()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		l.Submit(func() {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
		})
	}
	<-done

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSubmitWaitBlocksUntilTaskRuns(t *testing.T) {
	l := New(1)
	defer l.Stop()

	var ran atomic.Bool
	l.SubmitWait(func() { ran.Store(true) })

	assert.True(t, ran.Load())
}

func TestStopDrainsQueueBeforeReturning(t *testing.T) {
	l := New(4)

	var count atomic.Int32
	for i := 0; i < 4; i++ {
		l.Submit(func() { count.Add(1) })
	}
	l.Stop()

	assert.Equal(t, int32(4), count.Load())
}

func TestBackgroundWaitSurfacesFirstError(t *testing.T) {
	var b Background
	boom := errors.New("flush failed")

	b.Go(func() error { return boom })
	err := b.Wait()

	assert.ErrorIs(t, err, boom)
}

func TestBackgroundIsReusableAcrossRounds(t *testing.T) {
	var b Background

	b.Go(func() error { return nil })
	assert.NoError(t, b.Wait())

	var ran atomic.Bool
	b.Go(func() error { ran.Store(true); return nil })
	assert.NoError(t, b.Wait())
	assert.True(t, ran.Load())
}

func TestCollapsedDedupesConcurrentCallsWithSameKey(t *testing.T) {
	var c Collapsed
	var calls atomic.Int32

	start := make(chan struct{})
	results := make(chan interface{}, 2)

	for i := 0; i < 2; i++ {
		go func() {
			<-start
			v, _ := c.Do("depth", func() (interface{}, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return 42, nil
			})
			results <- v
		}()
	}
	close(start)

	r1 := <-results
	r2 := <-results

	assert.Equal(t, 42, r1)
	assert.Equal(t, r1, r2)
	assert.Equal(t, int32(1), calls.Load())
}
