package core

// YieldFuture gives other ready tasks on the same worker a turn. Its first poll
// wakes the task and returns Pending; the next poll is Ready.
type YieldFuture struct {
	yielded bool
}

// Yield returns a fresh YieldFuture.
func Yield() *YieldFuture {
	return &YieldFuture{}
}

func (y *YieldFuture) Poll(cx *PollContext) Poll[Unit] {
	if y.yielded {
		return Ready(Unit{})
	}
	y.yielded = true
	cx.Waker().Wake()
	return Pending[Unit]()
}
