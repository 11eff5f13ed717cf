package failure

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestKind_Fatal(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{ExtractionMiss, false},
		{PathCollision, false},
		{ParseError, false},
		{LogLineMismatch, false},
		{FilesystemError, true},
		{ProviderError, true},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Fatal(); got != tt.want {
				t.Errorf("Fatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := Filesystem("rename", "/tmp/a", fs.ErrPermission)
	wrapped := fmt.Errorf("reorganize: %w", base)

	if got := KindOf(wrapped); got != FilesystemError {
		t.Errorf("KindOf() = %v, want %v", got, FilesystemError)
	}
	if !errors.Is(wrapped, fs.ErrPermission) {
		t.Error("wrapped error should unwrap to fs.ErrPermission")
	}
	if !IsFatal(wrapped) {
		t.Error("filesystem errors should be fatal")
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil is not fatal")
	}
	if IsFatal(New(ParseError, "parse date", "bad date %q", "x")) {
		t.Error("parse errors are recovered locally")
	}
	if !IsFatal(errors.New("untagged")) {
		t.Error("untagged errors should be treated as fatal")
	}
}

func TestError_Message(t *testing.T) {
	err := Wrap(ProviderError, "fetch filings", "", errors.New("status 503"))
	if got, want := err.Error(), "fetch filings: status 503"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = Filesystem("mkdir", "/out/AAPL", errors.New("read-only"))
	if got, want := err.Error(), "mkdir /out/AAPL: read-only"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(FilesystemError, "op", "", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}
