package streamdown

import (
	"bytes"
	"strings"
	"testing"
)

func TestValidateInputRejectsInvalidUTF8(t *testing.T) {
	data := []byte{0xff, 0xfe, 0xfd}
	if err := ValidateInput(data); err != ErrInvalidUTF8 {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestValidateInputRejectsBinary(t *testing.T) {
	data := append([]byte("hello"), 0x00)
	if err := ValidateInput(data); err != ErrBinaryInput {
		t.Fatalf("expected ErrBinaryInput, got %v", err)
	}
	noisy := bytes.Repeat([]byte{'a', 'b', 'c', 0x07}, 32)
	if err := ValidateInput(noisy); err != ErrBinaryInput {
		t.Fatalf("expected ErrBinaryInput for control-heavy input, got %v", err)
	}
}

func TestValidateInputAcceptsMarkdown(t *testing.T) {
	src := []byte(strings.Repeat("# Title\n\nSome *text* with\ttabs.\r\n", 8))
	if err := ValidateInput(src); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestSanitizeBytesKeepsIncompleteTail(t *testing.T) {
	src := []byte("a\x01b\xe2\x9c")
	dst := make([]byte, len(src))
	clean, rest := sanitizeBytes(dst, src)
	if string(clean) != "ab" {
		t.Fatalf("clean=%q want %q", clean, "ab")
	}
	if !bytes.Equal(rest, []byte{0xe2, 0x9c}) {
		t.Fatalf("rest=%x want e29c", rest)
	}
}
