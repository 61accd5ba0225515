//go:build arm64

package arm64

// Context holds the callee-saved register file (x19-x30, sp) a task needs
// preserved across a context switch. x30 doubles as the resume program
// counter: the switch returns into it exactly as an ordinary call/return
// would, so a freshly created task's Context.X30 is simply set to its entry
// point and the first switch into it "returns" there.
type Context struct {
	X19, X20, X21, X22, X23 uint64
	X24, X25, X26, X27, X28 uint64
	X29                     uint64 // frame pointer
	X30                     uint64 // link register / resume PC
	SP                      uint64
}

// defined in context_switch_arm64.s
func contextSwitch(from, to *Context)

// Switch saves the caller's register file into from and restores it from
// to, resuming execution at to.X30 on a stack rooted at to.SP. It returns
// into the new task the first time, and returns to the original caller (via
// from) only once some other Switch names it as to again.
func Switch(from, to *Context) {
	contextSwitch(from, to)
}
