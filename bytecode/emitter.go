package bytecode

// Emitter is the opcode-writing interface the parser targets while
// it recurses through a production. A
// real VM backend would implement this against its own register
// allocator and constant pool; Chunk below is the in-memory backend
// this module uses to exercise the parser end to end.
type Emitter interface {
	// Emit appends one instruction, returning its index so callers can
	// later patch jump targets.
	Emit(op Op, a, b, c, line int) int

	// Patch overwrites operand B of the instruction at pc (the usual
	// jump-target slot for OpJump/OpJumpIfFalse/OpJumpIfTrue/OpTest).
	Patch(pc, b int)

	// Here returns the index the next Emit call will use.
	Here() int

	// Constant interns v into the chunk's constant pool, returning its
	// index.
	Constant(v interface{}) int

	// Reserve allocates the next n free registers, returning the first
	// one. Used by `from` destructuring and local groups, which must
	// reserve target registers before evaluating their source
	// expression.
	Reserve(n int) int

	// Free releases registers back to the allocator down to and
	// including base, in LIFO order matching a block's scope exit.
	Free(base int)
}

// Chunk is the smallest faithful Emitter backend: a flat instruction
// list, a constant pool, and a bump register allocator. It has no
// notion of upvalues or prototypes, those belong to the code generator
// proper; it is enough for the parser's own tests to assert the exact
// instruction sequences the extended-grammar productions emit.
type Chunk struct {
	Code      []Instruction
	Constants []interface{}
	nextReg   int
	maxReg    int
}

// NewChunk returns an empty Chunk ready for Emitter calls.
func NewChunk() *Chunk { return &Chunk{} }

func (c *Chunk) Emit(op Op, a, b, cc, line int) int {
	c.Code = append(c.Code, Instruction{Op: op, A: a, B: b, C: cc, Line: line})
	return len(c.Code) - 1
}

func (c *Chunk) Patch(pc, b int) {
	c.Code[pc].B = b
}

func (c *Chunk) Here() int { return len(c.Code) }

func (c *Chunk) Constant(v interface{}) int {
	for i, k := range c.Constants {
		if k == v {
			return i
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

func (c *Chunk) Reserve(n int) int {
	base := c.nextReg
	c.nextReg += n
	if c.nextReg > c.maxReg {
		c.maxReg = c.nextReg
	}
	return base
}

func (c *Chunk) Free(base int) {
	c.nextReg = base
}

// MaxRegister returns the high-water mark of registers this chunk
// allocated, the register-file size a VM prototype would need.
func (c *Chunk) MaxRegister() int { return c.maxReg }
