package queue

import (
	"errors"
	"testing"
	"time"
)

func recvWithin[T any](t *testing.T, ch <-chan T) (T, bool) {
	t.Helper()
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queue")
	}
	var zero T
	return zero, false
}

func TestUnbounded_FIFO(t *testing.T) {
	q := New[int]()
	defer q.Abort()

	for i := 0; i < 1000; i++ {
		if err := q.Send(i); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := 0; i < 1000; i++ {
		v, ok := recvWithin(t, q.Out())
		if !ok {
			t.Fatalf("queue closed early at %d", i)
		}
		if v != i {
			t.Fatalf("got %d, want %d", v, i)
		}
	}
}

func TestUnbounded_CloseDrains(t *testing.T) {
	q := New[string]()
	_ = q.Send("a")
	_ = q.Send("b")
	q.Close()

	if err := q.Send("c"); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after close: got %v, want ErrClosed", err)
	}
	for _, want := range []string{"a", "b"} {
		v, ok := recvWithin(t, q.Out())
		if !ok || v != want {
			t.Fatalf("got %q (open=%v), want %q", v, ok, want)
		}
	}
	if _, ok := recvWithin(t, q.Out()); ok {
		t.Fatal("expected closed queue after drain")
	}
}

func TestUnbounded_AbortDrops(t *testing.T) {
	q := New[int]()
	_ = q.Send(1)
	_ = q.Send(2)
	q.Abort()
	q.Abort()

	if err := q.Send(3); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after abort: got %v, want ErrClosed", err)
	}
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-q.Out():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("out was not closed after abort")
		}
	}
}

func TestUnbounded_Buffered(t *testing.T) {
	q := New[int]()
	defer q.Abort()
	_ = q.Send(1)
	_ = q.Send(2)
	_ = q.Send(3)
	if _, ok := recvWithin(t, q.Out()); !ok {
		t.Fatal("queue closed")
	}
	deadline := time.Now().Add(time.Second)
	for q.buffered() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("len = %d, want 2", q.buffered())
		}
		time.Sleep(time.Millisecond)
	}
}
