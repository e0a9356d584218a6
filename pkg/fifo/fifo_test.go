package fifo

import (
	"sync"
	"testing"
	"time"
)

func TestTryPushFullness(t *testing.T) {
	f := New[int](2)

	if !f.TryPush(1) {
		t.Fatalf("TryPush(1) should succeed on empty FIFO")
	}
	if !f.TryPush(2) {
		t.Fatalf("TryPush(2) should succeed with one free slot")
	}
	if f.TryPush(3) {
		t.Fatalf("TryPush(3) should fail: FIFO is full")
	}
	if got := f.ReadAvailable(); got != 2 {
		t.Fatalf("ReadAvailable() = %d, want 2", got)
	}
}

func TestPopMakesRoomForPush(t *testing.T) {
	f := New[int](1)
	f.TryPush(1)

	f.Pop()

	if !f.TryPush(2) {
		t.Fatalf("TryPush should succeed after Pop frees a slot")
	}
	if got := f.Front(); got != 2 {
		t.Fatalf("Front() = %d, want 2", got)
	}
}

func TestWaitReadAvailableBlocksUntilPush(t *testing.T) {
	f := New[int](4)
	done := make(chan int, 1)

	go func() {
		done <- f.WaitReadAvailable()
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("WaitReadAvailable returned before any push")
	default:
	}

	f.Push(42)

	select {
	case n := <-done:
		if n != 1 {
			t.Fatalf("WaitReadAvailable() = %d, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("WaitReadAvailable did not wake up after Push")
	}
}

func TestUnblockConsumerReturnsZero(t *testing.T) {
	f := New[int](4)
	done := make(chan int, 1)

	go func() {
		done <- f.WaitReadAvailable()
	}()

	time.Sleep(20 * time.Millisecond)
	f.UnblockConsumer(true)

	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("WaitReadAvailable() = %d, want 0 after unblock with empty FIFO", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("UnblockConsumer did not wake WaitReadAvailable")
	}
}

func TestUnblockProducerReturnsWithoutBlocking(t *testing.T) {
	f := New[int](1)
	f.TryPush(1) // fill it

	done := make(chan struct{})
	go func() {
		f.Push(2) // would block forever without unblock
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	f.UnblockProducer(true)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("UnblockProducer did not release blocked Push")
	}
}

func TestSPSCNoLossNoReorder(t *testing.T) {
	const n = 10000
	f := New[int](16)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			f.Push(i)
		}
	}()

	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(got) < n {
			f.WaitReadAvailable()
			for f.ReadAvailable() > 0 && len(got) < n {
				got = append(got, f.Front())
				f.Pop()
			}
		}
	}()

	wg.Wait()

	if len(got) != n {
		t.Fatalf("got %d elements, want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("element %d = %d, want %d (reordered or lost)", i, v, i)
		}
	}
}
