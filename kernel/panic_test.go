package kernel

import (
	"bytes"
	"os"
	"testing"
)

func TestPanic(t *testing.T) {
	defer func() { HaltFn = func() {} }()

	var haltCalled bool
	HaltFn = func() { haltCalled = true }

	var buf bytes.Buffer
	Default.SetSink(&buf)
	defer Default.SetSink(os.Stderr)

	t.Run("with error", func(t *testing.T) {
		haltCalled = false
		buf.Reset()

		Panic(&Error{Module: "test", Message: "panic test"})

		if !bytes.Contains(buf.Bytes(), []byte("panic test")) {
			t.Fatalf("expected log output to contain the error message, got %q", buf.String())
		}
		if !haltCalled {
			t.Fatal("expected HaltFn to be called by Panic")
		}
	})

	t.Run("with plain string", func(t *testing.T) {
		haltCalled = false
		buf.Reset()

		Panic("out of frames")

		if !bytes.Contains(buf.Bytes(), []byte("out of frames")) {
			t.Fatalf("expected log output to contain the message, got %q", buf.String())
		}
		if !haltCalled {
			t.Fatal("expected HaltFn to be called by Panic")
		}
	})
}
