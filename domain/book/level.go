package book

// Level holds all resting orders at one price as an intrusive FIFO.
// Head is the oldest order — first to trade under time priority.
type Level struct {
	Price    int64
	head     *Order
	tail     *Order
	TotalQty int64
	Count    int
}

// Head returns the oldest order at this price.
func (l *Level) Head() *Order { return l.head }

func (l *Level) enqueue(o *Order) {
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	l.TotalQty += o.Remaining()
	l.Count++
}

func (l *Level) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	l.TotalQty -= o.Remaining()
	l.Count--
	if l.TotalQty < 0 {
		l.TotalQty = 0
	}
}

// reduce lowers the level's outstanding quantity after a partial fill.
func (l *Level) reduce(qty int64) {
	l.TotalQty -= qty
	if l.TotalQty < 0 {
		l.TotalQty = 0
	}
}
