// Package kprintf implements the kernel's formatted console output, built
// around a buffer-and-flush structure: a fixed scratch buffer filled by the
// format routine, then flushed a character at a time to the display. A
// hand-rolled %-verb parser (itoa/utoa/ltoa/ultoa, manual width/precision/
// flag handling) is replaced here by Go's fmt package: format and args go
// straight to fmt.Fprintf, so verbs follow fmt's rules. C-only verbs such as
// %u and %n are not translated; fmt reports them as bad verbs (see
// DESIGN.md).
package kprintf

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// bufSize mirrors kprintf.c's 64-byte scratch buffer: output is flushed in
// chunks of this size rather than one syscall-equivalent write per verb.
const bufSize = 64

// Console buffers formatted output before flushing it to an underlying
// sink (ordinarily a driver/uart.UART).
type Console struct {
	mu  sync.Mutex
	out *bufio.Writer
}

// NewConsole wraps sink in a buffered writer sized to match kprintf.c's
// scratch buffer.
func NewConsole(sink io.Writer) *Console {
	return &Console{out: bufio.NewWriterSize(sink, bufSize)}
}

// Printf formats according to format and args and buffers the result,
// flushing once the internal buffer fills or Flush is called explicitly.
func (c *Console) Printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, format, args...)

	if c.out.Buffered() >= bufSize {
		c.out.Flush()
	}
}

// Flush forces any buffered output to the sink, matching the point
// kprintf.c's format loop returns to its caller with nothing left pending.
func (c *Console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.out.Flush()
}
