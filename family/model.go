package family

import (
	"errors"
	"strconv"
	"strings"
)

// TokenIDLength is the exact textual length of a rotation token id (a UUID
// string). The rotation script relies on this fixed width to compare and
// replace the id without parsing the rest of the record.
const TokenIDLength = 36

// Record is the durable state of one session family: the chain of refresh
// tokens descending from a single login. Exactly one CurrentTokenID is
// redeemable at any instant.
type Record struct {
	FamilyID       string
	SubjectID      string
	CurrentTokenID string
	ExpiresAt      int64
}

// ErrCorruptRecord is returned when a stored blob does not match the layout.
var ErrCorruptRecord = errors.New("corrupt family record")

// Encode serializes a record into the store blob. Layout:
// 36-byte token id, newline, subject id, newline, decimal unix expiry.
func Encode(rec *Record) ([]byte, error) {
	if len(rec.CurrentTokenID) != TokenIDLength || strings.ContainsRune(rec.CurrentTokenID, '\n') {
		return nil, errors.New("invalid token id")
	}
	if rec.SubjectID == "" || strings.ContainsRune(rec.SubjectID, '\n') {
		return nil, errors.New("invalid subject id")
	}
	if rec.ExpiresAt <= 0 {
		return nil, errors.New("invalid expiry")
	}

	var b strings.Builder
	b.Grow(TokenIDLength + 1 + len(rec.SubjectID) + 1 + 20)
	b.WriteString(rec.CurrentTokenID)
	b.WriteByte('\n')
	b.WriteString(rec.SubjectID)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(rec.ExpiresAt, 10))

	return []byte(b.String()), nil
}

// Decode parses a store blob. FamilyID is not part of the blob; the caller
// sets it from the key it read.
func Decode(data []byte) (*Record, error) {
	s := string(data)
	if len(s) < TokenIDLength+2 || s[TokenIDLength] != '\n' {
		return nil, ErrCorruptRecord
	}

	tokenID := s[:TokenIDLength]
	rest := s[TokenIDLength+1:]

	sep := strings.IndexByte(rest, '\n')
	if sep <= 0 {
		return nil, ErrCorruptRecord
	}

	expires, err := strconv.ParseInt(rest[sep+1:], 10, 64)
	if err != nil || expires <= 0 {
		return nil, ErrCorruptRecord
	}

	return &Record{
		SubjectID:      rest[:sep],
		CurrentTokenID: tokenID,
		ExpiresAt:      expires,
	}, nil
}
