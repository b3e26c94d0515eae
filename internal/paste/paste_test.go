package paste

import (
	"errors"
	"testing"
)

// stubClipboard replaces the robotgo bindings for the duration of a test and
// records the call sequence.
func stubClipboard(t *testing.T) (*[]string, *string) {
	t.Helper()

	var calls []string
	clipboard := "previous contents"

	origRead, origWrite, origTap := readClipboard, writeClipboard, keyTap
	t.Cleanup(func() {
		readClipboard, writeClipboard, keyTap = origRead, origWrite, origTap
	})

	readClipboard = func() (string, error) {
		calls = append(calls, "read")
		return clipboard, nil
	}
	writeClipboard = func(text string) error {
		calls = append(calls, "write:"+text)
		clipboard = text
		return nil
	}
	keyTap = func(key string, args ...interface{}) error {
		calls = append(calls, "tap:"+key)
		return nil
	}

	return &calls, &clipboard
}

func TestPasteSequence(t *testing.T) {
	calls, clipboard := stubClipboard(t)

	p := &Paster{goos: "linux"}
	if err := p.Paste("hello"); err != nil {
		t.Fatalf("Paste() error = %v", err)
	}

	want := []string{"read", "write:hello", "tap:v", "write:previous contents"}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v, want %v", *calls, want)
	}
	for i := range want {
		if (*calls)[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, (*calls)[i], want[i])
		}
	}
	if *clipboard != "previous contents" {
		t.Errorf("clipboard = %q, want restored previous contents", *clipboard)
	}
}

func TestPasteEmptyTextIsNoop(t *testing.T) {
	calls, _ := stubClipboard(t)

	p := New()
	if err := p.Paste(""); err != nil {
		t.Fatalf("Paste(\"\") error = %v", err)
	}
	if len(*calls) != 0 {
		t.Errorf("calls = %v, want none for empty text", *calls)
	}
}

func TestPasteClipboardWriteFailure(t *testing.T) {
	stubClipboard(t)
	writeClipboard = func(string) error { return errors.New("no display") }

	p := &Paster{goos: "linux"}
	if err := p.Paste("hello"); err == nil {
		t.Fatal("Paste() should fail when the clipboard write fails")
	}
}

func TestPasteKeyTapFailure(t *testing.T) {
	stubClipboard(t)
	keyTap = func(string, ...interface{}) error { return errors.New("no permission") }

	p := &Paster{goos: "darwin"}
	if err := p.Paste("hello"); err == nil {
		t.Fatal("Paste() should fail when the keystroke fails")
	}
}
