// Package models holds the persisted shape of a completed screening and the
// event emitted for it.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	emodels "benefind/internal/eligibility/models"
	"benefind/internal/eligibility/facts"
	id "benefind/pkg/domain"
	dErrors "benefind/pkg/domain-errors"
)

// OwnerKind says how the owner of a screening was identified.
type OwnerKind string

const (
	OwnerUser    OwnerKind = "user"
	OwnerSession OwnerKind = "session"
)

// Owner is the user or anonymous intake session a screening belongs to.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func UserOwner(u id.UserID) Owner { return Owner{Kind: OwnerUser, ID: uuid.UUID(u)} }

func SessionOwner(s id.SessionID) Owner { return Owner{Kind: OwnerSession, ID: uuid.UUID(s)} }

// IsZero reports whether no owner was resolved.
func (o Owner) IsZero() bool { return o.Kind == "" || o.ID == uuid.Nil }

// String renders the owner as kind:uuid, the form used in store keys.
func (o Owner) String() string { return string(o.Kind) + ":" + o.ID.String() }

// ParseOwner reverses String.
func ParseOwner(s string) (Owner, error) {
	kind, raw, ok := strings.Cut(s, ":")
	if !ok {
		return Owner{}, fmt.Errorf("owner %q: missing kind", s)
	}
	switch OwnerKind(kind) {
	case OwnerUser, OwnerSession:
	default:
		return Owner{}, fmt.Errorf("owner %q: unknown kind", s)
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return Owner{}, fmt.Errorf("owner %q: %w", s, err)
	}
	return Owner{Kind: OwnerKind(kind), ID: u}, nil
}

// Screening is one completed screening as stored. Tiers are not stored; they
// are derived from Results on every read.
//
// Invariants:
//   - ID and Owner are set
//   - Results carries the catalog version it was evaluated against
//   - CreatedAt is immutable after construction
type Screening struct {
	ID        id.ScreeningID           `json:"id"`
	Owner     Owner                    `json:"owner"`
	Intake    facts.RawIntake          `json:"intake"`
	Results   emodels.ScreeningResults `json:"results"`
	Locale    string                   `json:"locale"`
	CreatedAt time.Time                `json:"created_at"`
}

// NewScreening builds a Screening, enforcing its invariants.
func NewScreening(sid id.ScreeningID, owner Owner, intake facts.RawIntake, results emodels.ScreeningResults, locale string, createdAt time.Time) (*Screening, error) {
	if sid.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "screening id is required")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "screening owner is required")
	}
	if results.CatalogVersion == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "catalog version is required")
	}
	return &Screening{
		ID:        sid,
		Owner:     owner,
		Intake:    intake,
		Results:   results,
		Locale:    locale,
		CreatedAt: createdAt,
	}, nil
}

// ProgramIDs lists the surfaced programs in result order.
func (s *Screening) ProgramIDs() []emodels.ProgramID {
	out := make([]emodels.ProgramID, 0, len(s.Results.Programs))
	for _, p := range s.Results.Programs {
		out = append(out, p.ProgramID)
	}
	return out
}

// ProgramTier is a surfaced program and its derived tier.
type ProgramTier struct {
	ProgramID emodels.ProgramID `json:"program_id"`
	Tier      emodels.Tier      `json:"tier"`
}

// Tiers lists the derived tier of every surfaced program in result order.
func (s *Screening) Tiers() []ProgramTier {
	out := make([]ProgramTier, 0, len(s.Results.Programs))
	for _, p := range s.Results.Programs {
		out = append(out, ProgramTier{ProgramID: p.ProgramID, Tier: p.Tier()})
	}
	return out
}

// CompletedEvent is published once per completed screening.
type CompletedEvent struct {
	ScreeningID    string                       `json:"screening_id"`
	Owner          Owner                        `json:"owner"`
	CatalogVersion string                       `json:"catalog_version"`
	Locale         string                       `json:"locale"`
	CompletedAt    time.Time                    `json:"completed_at"`
	Programs       []ProgramTier                `json:"programs"`
	Interactions   []emodels.BenefitInteraction `json:"interactions"`
}

// NewCompletedEvent describes s for downstream consumers.
func NewCompletedEvent(s *Screening, interactions []emodels.BenefitInteraction) CompletedEvent {
	if interactions == nil {
		interactions = []emodels.BenefitInteraction{}
	}
	return CompletedEvent{
		ScreeningID:    s.ID.String(),
		Owner:          s.Owner,
		CatalogVersion: s.Results.CatalogVersion,
		Locale:         s.Locale,
		CompletedAt:    s.Results.CompletedAt,
		Programs:       s.Tiers(),
		Interactions:   interactions,
	}
}
