package arena

// StandaloneArena has the same block-chain geometry as Arena, but is
// backed by the process allocator rather than any particular engine
// state. Its defining property is that it may be created on
// one goroutine and freed on another: ownership transfers wholesale
// (e.g. via a channel send, which establishes the happens-before edge
// Go's memory model requires), never shared.
type StandaloneArena struct {
	blockSize int
	head      *block
	tail      *block
	cur       *block
	allocated int
	count     int
}

// NewStandalone creates a StandaloneArena whose regular blocks are
// blockSize bytes. A blockSize <= 0 uses DefaultBlockSize.
func NewStandalone(blockSize int) *StandaloneArena {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &StandaloneArena{blockSize: blockSize}
}

// Alloc has the same allocation policy as Arena.Alloc.
func (a *StandaloneArena) Alloc(size int) []byte {
	if size < 0 {
		panic("arena: negative alloc size")
	}
	if size == 0 {
		size = 1
	}

	if a.cur != nil {
		if p, ok := a.cur.alloc(size); ok {
			a.allocated += size
			a.count++
			return p
		}
		if a.cur.next != nil {
			a.cur = a.cur.next
			return a.Alloc(size)
		}
	}

	blockLen := a.blockSize
	if size > blockLen {
		blockLen = size
	}
	nb := newBlock(blockLen)
	if a.head == nil {
		a.head = nb
	} else {
		a.tail.next = nb
	}
	a.tail = nb
	a.cur = nb

	p, _ := nb.alloc(size)
	a.allocated += size
	a.count++
	return p
}

// Reset rewinds every block's cursor without releasing memory.
func (a *StandaloneArena) Reset() {
	for b := a.head; b != nil; b = b.next {
		b.cursor = 0
	}
	a.cur = a.head
	a.allocated = 0
	a.count = 0
}

// Free drops every block. The caller freeing a StandaloneArena need
// not be the goroutine that created it, as long as ownership was
// transferred (never shared) in between.
func (a *StandaloneArena) Free() {
	a.head = nil
	a.tail = nil
	a.cur = nil
	a.allocated = 0
	a.count = 0
}

// Stats reports total bytes allocated (since the last Reset) and the
// allocation count.
func (a *StandaloneArena) Stats() (allocated, allocations int) {
	return a.allocated, a.count
}
