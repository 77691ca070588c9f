package ast

// Comment is one lexer-skipped comment, recorded in source order. The
// formatter interleaves these back into its output based on
// Line/EndLine.
type Comment struct {
	Line    int
	EndLine int
	Long    bool // true for `--[[ ... ]]`, false for `-- ...`
	Text    string
	Next    *Comment
}

// CommentList is a simple FIFO-append linked list of Comment, hung off
// the AST root.
type CommentList struct {
	head *Comment
	tail *Comment
}

// Add appends c to the end of the list.
func (l *CommentList) Add(c *Comment) {
	if l.head == nil {
		l.head = c
		l.tail = c
		return
	}
	l.tail.Next = c
	l.tail = c
}

// Head returns the first comment, or nil if the list is empty.
func (l *CommentList) Head() *Comment { return l.head }

// Len counts the comments in the list.
func (l *CommentList) Len() int {
	n := 0
	for c := l.head; c != nil; c = c.Next {
		n++
	}
	return n
}
