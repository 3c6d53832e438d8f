package core

// Unit is the output type of futures that produce no value.
type Unit = struct{}

// Poll is the outcome of polling a Future once.
type Poll[T any] struct {
	value T
	ready bool
}

// Ready returns a completed Poll carrying v.
func Ready[T any](v T) Poll[T] {
	return Poll[T]{value: v, ready: true}
}

// Pending returns a Poll that is not complete yet.
func Pending[T any]() Poll[T] {
	return Poll[T]{}
}

func (p Poll[T]) IsReady() bool { return p.ready }

// Value returns the output. It is the zero value while pending.
func (p Poll[T]) Value() T { return p.value }

// Future is a stackless computation advanced by repeated polls on one worker.
//
// Poll must not block. A future that returns Pending must arrange for
// cx.Waker() to be called once it can make progress; otherwise it is never
// polled again.
type Future[T any] interface {
	Poll(cx *PollContext) Poll[T]
}

// FutureFunc adapts a poll function to a Future.
type FutureFunc[T any] func(cx *PollContext) Poll[T]

func (f FutureFunc[T]) Poll(cx *PollContext) Poll[T] {
	return f(cx)
}

// Value returns a future that is ready on its first poll.
func Value[T any](v T) Future[T] {
	return FutureFunc[T](func(*PollContext) Poll[T] { return Ready(v) })
}

// Lazy runs fn on the first poll and completes with its result.
func Lazy[T any](fn func() T) Future[T] {
	return &lazyFuture[T]{fn: fn}
}

type lazyFuture[T any] struct {
	fn    func() T
	value T
	done  bool
}

func (f *lazyFuture[T]) Poll(*PollContext) Poll[T] {
	if !f.done {
		f.value = f.fn()
		f.fn = nil
		f.done = true
	}
	return Ready(f.value)
}

// Then runs first, then the future built from its output.
func Then[T, U any](first Future[T], next func(T) Future[U]) Future[U] {
	return &thenFuture[T, U]{first: first, next: next}
}

type thenFuture[T, U any] struct {
	first  Future[T]
	next   func(T) Future[U]
	second Future[U]
}

func (f *thenFuture[T, U]) Poll(cx *PollContext) Poll[U] {
	if f.second == nil {
		p := f.first.Poll(cx)
		if !p.IsReady() {
			return Pending[U]()
		}
		f.second = f.next(p.Value())
		f.first, f.next = nil, nil
	}
	return f.second.Poll(cx)
}

// Map transforms the output of f.
func Map[T, U any](f Future[T], fn func(T) U) Future[U] {
	return Then(f, func(v T) Future[U] { return Value(fn(v)) })
}

// JoinAll polls every future until all are ready and returns their outputs in order.
func JoinAll[T any](futures ...Future[T]) Future[[]T] {
	return &joinAllFuture[T]{
		futures: futures,
		out:     make([]T, len(futures)),
		left:    len(futures),
	}
}

type joinAllFuture[T any] struct {
	futures []Future[T]
	out     []T
	left    int
}

func (f *joinAllFuture[T]) Poll(cx *PollContext) Poll[[]T] {
	for i, fut := range f.futures {
		if fut == nil {
			continue
		}
		if p := fut.Poll(cx); p.IsReady() {
			f.out[i] = p.Value()
			f.futures[i] = nil
			f.left--
		}
	}
	if f.left > 0 {
		return Pending[[]T]()
	}
	return Ready(f.out)
}
