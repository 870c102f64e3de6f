// Package domain holds identifier primitives shared across modules.
package domain

import (
	"github.com/google/uuid"

	dErrors "benefind/pkg/domain-errors"
)

// Distinct UUID-backed identifiers. Construct them with the Parse* functions at
// trust boundaries; direct conversion skips validation.
type (
	UserID      uuid.UUID
	SessionID   uuid.UUID
	ScreeningID uuid.UUID
)

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id SessionID) String() string   { return uuid.UUID(id).String() }
func (id ScreeningID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ScreeningID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewScreeningID allocates a random screening identifier.
func NewScreeningID() ScreeningID {
	return ScreeningID(uuid.New())
}

// ParseUserID parses an authenticated user's identifier.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseSessionID parses an anonymous intake session identifier.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session_id")
	return SessionID(u), err
}

// ParseScreeningID parses a persisted screening identifier.
func ParseScreeningID(s string) (ScreeningID, error) {
	u, err := parseUUID(s, "screening_id")
	return ScreeningID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return u, nil
}

func (id ScreeningID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ScreeningID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ScreeningID(u)
	return nil
}
