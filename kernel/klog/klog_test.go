package klog

import (
	"bytes"
	"testing"

	"tinykern/kernel/kfmt"
)

func TestLoggerPrintf(t *testing.T) {
	var (
		buf bytes.Buffer
		log = New("heap")
	)

	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{
			"Heap pointer: 0x%x",
			[]interface{}{uintptr(0x200000)},
			"[heap] Heap pointer: 0x200000\r\n",
		},
		{
			"two\nlines",
			nil,
			"[heap] two\r\n[heap] lines\r\n",
		},
		{
			"",
			nil,
			"[heap] \r\n",
		},
		{
			"already terminated\r\n",
			nil,
			"[heap] already terminated\r\n",
		},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		log.Fprintf(&buf, spec.format, spec.args...)

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected output:\n%q\ngot:\n%q", specIndex, spec.exp, got)
		}
	}
}

func TestLoggerDebugf(t *testing.T) {
	defer func() {
		SetDebug(false)
		kfmt.SetOutputSink(nil)
	}()

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	log := New("kalloc")

	SetDebug(false)
	log.Debugf("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected Debugf to be silent when debug output is disabled; got %q", buf.String())
	}

	SetDebug(true)
	if !DebugEnabled() {
		t.Fatal("expected DebugEnabled to return true")
	}
	log.Debugf("req=%d", 9)
	if exp, got := "[kalloc] req=9\r\n", buf.String(); got != exp {
		t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
	}
}

func TestCRLFWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &crlfWriter{w: &buf}

	n, err := w.Write([]byte("a\nb\r\nc"))
	if err != nil {
		t.Fatal(err)
	}

	if n != 6 {
		t.Fatalf("expected Write to report 6 bytes; got %d", n)
	}

	if exp, got := "a\r\nb\r\nc", buf.String(); got != exp {
		t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
	}

	// A carriage return split across two writes must not be doubled.
	buf.Reset()
	w.Write([]byte("d\r"))
	w.Write([]byte("\n"))
	if exp, got := "d\r\n", buf.String(); got != exp {
		t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
	}
}
