package family

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := &Record{
		SubjectID:      "alice",
		CurrentTokenID: uuid.NewString(),
		ExpiresAt:      time.Now().Add(time.Hour).Unix(),
	}

	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.SubjectID != rec.SubjectID || got.CurrentTokenID != rec.CurrentTokenID || got.ExpiresAt != rec.ExpiresAt {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestEncodeValidation(t *testing.T) {
	valid := func() *Record {
		return &Record{
			SubjectID:      "alice",
			CurrentTokenID: uuid.NewString(),
			ExpiresAt:      time.Now().Add(time.Hour).Unix(),
		}
	}

	rec := valid()
	rec.CurrentTokenID = "short"
	if _, err := Encode(rec); err == nil {
		t.Fatal("expected error for wrong token id length")
	}

	rec = valid()
	rec.SubjectID = "bad\nsubject"
	if _, err := Encode(rec); err == nil {
		t.Fatal("expected error for subject containing newline")
	}

	rec = valid()
	rec.SubjectID = ""
	if _, err := Encode(rec); err == nil {
		t.Fatal("expected error for empty subject")
	}

	rec = valid()
	rec.ExpiresAt = 0
	if _, err := Encode(rec); err == nil {
		t.Fatal("expected error for zero expiry")
	}
}

func TestDecodeRejectsCorruptBlobs(t *testing.T) {
	tokenID := uuid.NewString()
	blobs := [][]byte{
		nil,
		[]byte("short"),
		[]byte(tokenID + "alice\n123"),        // missing separator after token id
		[]byte(tokenID + "\nalice"),           // missing expiry
		[]byte(tokenID + "\nalice\nnot-a-ts"), // non-numeric expiry
		[]byte(tokenID + "\n\n123"),           // empty subject
		[]byte(strings.Repeat("x", 36) + "\nalice\n-5"), // negative expiry
	}

	for _, blob := range blobs {
		if _, err := Decode(blob); !errors.Is(err, ErrCorruptRecord) {
			t.Fatalf("Decode(%q): expected ErrCorruptRecord, got %v", blob, err)
		}
	}
}
