package kernel

// threadList is an intrusive FIFO of thread slots. Links are arena indices
// stored in the tcb, so the zero value is an empty list and no list ever
// allocates.
type threadList struct {
	head ThreadID
	tail ThreadID
	n    int
}

func (l *threadList) empty() bool { return l.head == nilThread }

func (k *Kernel) pushBack(l *threadList, id ThreadID) {
	t := &k.threads[id]
	t.list = l
	t.next = nilThread
	t.prev = l.tail
	if l.tail == nilThread {
		l.head = id
	} else {
		k.threads[l.tail].next = id
	}
	l.tail = id
	l.n++
}

func (k *Kernel) pushFront(l *threadList, id ThreadID) {
	t := &k.threads[id]
	t.list = l
	t.prev = nilThread
	t.next = l.head
	if l.head == nilThread {
		l.tail = id
	} else {
		k.threads[l.head].prev = id
	}
	l.head = id
	l.n++
}

func (k *Kernel) remove(l *threadList, id ThreadID) {
	t := &k.threads[id]
	if t.list != l {
		return
	}
	if t.prev == nilThread {
		l.head = t.next
	} else {
		k.threads[t.prev].next = t.next
	}
	if t.next == nilThread {
		l.tail = t.prev
	} else {
		k.threads[t.next].prev = t.prev
	}
	t.prev, t.next, t.list = nilThread, nilThread, nil
	l.n--
}

func (k *Kernel) popFront(l *threadList) ThreadID {
	id := l.head
	if id != nilThread {
		k.remove(l, id)
	}
	return id
}
