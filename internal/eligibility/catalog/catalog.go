package catalog

import (
	"errors"
	"fmt"
	"slices"

	"benefind/internal/eligibility/facts"
	"benefind/internal/eligibility/models"
	"benefind/internal/eligibility/poverty"
	"benefind/pkg/platform/sentinel"
)

// ErrInvalid wraps every structural problem found while building a catalog.
var ErrInvalid = errors.New("invalid catalog")

// IssueKind classifies a non-fatal catalog integrity problem.
type IssueKind string

const (
	IssueDanglingHook IssueKind = "dangling_hook"
	IssueSelfHook     IssueKind = "self_hook"
	IssueUnknownFact  IssueKind = "unknown_fact"

	// IssueConflictingHook marks a pair declared from both sides with
	// different kinds. The first declaration in catalog order wins.
	IssueConflictingHook IssueKind = "conflicting_hook"

	// IssueUnknownProgram marks a result that names a program the catalog no
	// longer defines, e.g. a stored screening re-rendered after a reload.
	IssueUnknownProgram IssueKind = "unknown_program"
)

// Issue is a catalog integrity defect that does not stop the catalog from
// loading. Hooks with issues are skipped at resolution; criteria on unknown
// facts evaluate as unknown.
type Issue struct {
	Kind      IssueKind
	Program   models.ProgramID
	Target    models.ProgramID
	Criterion string
	Fact      facts.Key
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueDanglingHook:
		return fmt.Sprintf("program %s declares an interaction with unknown program %s", i.Program, i.Target)
	case IssueSelfHook:
		return fmt.Sprintf("program %s declares an interaction with itself", i.Program)
	case IssueUnknownFact:
		return fmt.Sprintf("program %s criterion %s references unknown fact %q", i.Program, i.Criterion, i.Fact)
	case IssueUnknownProgram:
		return fmt.Sprintf("program %s is not in the catalog", i.Program)
	case IssueConflictingHook:
		return fmt.Sprintf("program %s redeclares its interaction with %s using a different kind", i.Program, i.Target)
	}
	return fmt.Sprintf("program %s: %s", i.Program, i.Kind)
}

// IntegrityError reports an Issue encountered while using the catalog.
type IntegrityError struct {
	Issue Issue
}

func (e *IntegrityError) Error() string {
	return "catalog integrity: " + e.Issue.String()
}

// Catalog is an immutable, ordered set of programs. Declaration order is the
// tie-break used by every downstream ordering. Safe for concurrent readers.
// Lookup, Programs and ListForState hand out copies of the definitions.
type Catalog struct {
	version  string
	programs []Program
	index    map[models.ProgramID]int
	poverty  poverty.Table
	issues   []Issue
}

// New validates programs and builds a catalog. Structural problems are joined
// into one error wrapping ErrInvalid.
func New(version string, table poverty.Table, programs []Program) (*Catalog, error) {
	var errs []error
	if version == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if err := table.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(programs) == 0 {
		errs = append(errs, errors.New("at least one program is required"))
	}

	c := &Catalog{
		version:  version,
		programs: cloneAll(programs),
		index:    make(map[models.ProgramID]int, len(programs)),
		poverty:  table,
	}
	for i, p := range c.programs {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("program #%d: id is required", i+1))
			continue
		}
		if _, dup := c.index[p.ID]; dup {
			errs = append(errs, fmt.Errorf("program %s: duplicate id", p.ID))
			continue
		}
		c.index[p.ID] = i
		errs = append(errs, c.validateProgram(p)...)
	}
	// Hooks are checked once every id is indexed.
	declared := map[[2]models.ProgramID]models.InteractionKind{}
	for _, p := range c.programs {
		for _, h := range p.Interactions {
			switch {
			case h.Target == p.ID:
				c.issues = append(c.issues, Issue{Kind: IssueSelfHook, Program: p.ID, Target: h.Target})
			case !c.Has(h.Target):
				c.issues = append(c.issues, Issue{Kind: IssueDanglingHook, Program: p.ID, Target: h.Target})
			default:
				pair := PairKey(p.ID, h.Target)
				if kind, seen := declared[pair]; !seen {
					declared[pair] = h.Kind
				} else if kind != h.Kind {
					c.issues = append(c.issues, Issue{Kind: IssueConflictingHook, Program: p.ID, Target: h.Target})
				}
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return c, nil
}

func (c *Catalog) validateProgram(p Program) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("program %s: "+format, append([]any{p.ID}, args...)...))
	}
	if p.Name == "" {
		fail("name is required")
	}
	if !p.Jurisdiction.Nationwide && len(p.Jurisdiction.States) == 0 {
		fail("jurisdiction needs nationwide or at least one state")
	}
	for _, s := range p.Jurisdiction.States {
		if _, ok := facts.ParseState(string(s)); !ok {
			fail("unknown jurisdiction state %q", s)
		}
	}
	if len(p.Required) == 0 {
		fail("at least one required criterion is needed")
	}

	ids := map[string]bool{}
	for _, group := range [][]Criterion{p.Required, p.Secondary} {
		for _, cr := range group {
			if cr.ID == "" {
				fail("top-level criterion of kind %s has no id", cr.Kind)
			} else if ids[cr.ID] {
				fail("duplicate criterion id %s", cr.ID)
			}
			ids[cr.ID] = true
			for _, err := range c.validateCriterion(p.ID, cr.ID, cr) {
				fail("criterion %s: %v", cr.ID, err)
			}
		}
	}

	for _, h := range p.Interactions {
		if h.Target == "" {
			fail("interaction target is required")
		}
		if !h.Kind.IsValid() {
			fail("interaction with %s has unknown kind %q", h.Target, h.Kind)
		}
		if h.Explanation == nil {
			fail("interaction with %s has no explanation", h.Target)
		}
	}
	return errs
}

// validateCriterion checks one node. root names the top-level criterion for
// issue reporting.
func (c *Catalog) validateCriterion(program models.ProgramID, root string, cr Criterion) []error {
	var errs []error
	needFact := func(want facts.KeyType) {
		if cr.Fact == "" {
			errs = append(errs, fmt.Errorf("%s needs a fact", cr.Kind))
			return
		}
		switch got := facts.TypeOf(cr.Fact); got {
		case facts.TypeUnsupported:
			c.issues = append(c.issues, Issue{Kind: IssueUnknownFact, Program: program, Criterion: root, Fact: cr.Fact})
		case want:
		default:
			errs = append(errs, fmt.Errorf("fact %s cannot be used with %s", cr.Fact, cr.Kind))
		}
	}

	switch cr.Kind {
	case KindCompare:
		needFact(facts.TypeNumber)
		if !cr.Op.valid() {
			errs = append(errs, fmt.Errorf("unknown operator %q", cr.Op))
		}
	case KindFPLPercent:
		if !cr.Percent.IsPositive() {
			errs = append(errs, errors.New("fpl_percent needs a positive percent"))
		}
	case KindEquals:
		needFact(facts.TypeBool)
	case KindRange:
		needFact(facts.TypeNumber)
		if cr.Min == nil && cr.Max == nil {
			errs = append(errs, errors.New("range needs min or max"))
		}
		if cr.Min != nil && cr.Max != nil && cr.Min.GreaterThan(*cr.Max) {
			errs = append(errs, errors.New("range min is greater than max"))
		}
	case KindOneOf:
		needFact(facts.TypeText)
		if len(cr.Values) == 0 {
			errs = append(errs, errors.New("one_of needs at least one value"))
		}
	case KindAll, KindAny:
		if len(cr.Children) == 0 {
			errs = append(errs, fmt.Errorf("%s needs at least one child", cr.Kind))
		}
	case KindNot:
		if len(cr.Children) != 1 {
			errs = append(errs, errors.New("not needs exactly one child"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", cr.Kind))
	}

	for _, child := range cr.Children {
		errs = append(errs, c.validateCriterion(program, root, child)...)
	}
	return errs
}

// PairKey orders two program ids ascending.
func PairKey(a, b models.ProgramID) [2]models.ProgramID {
	if b < a {
		a, b = b, a
	}
	return [2]models.ProgramID{a, b}
}

// Version identifies the catalog definitions in use.
func (c *Catalog) Version() string { return c.version }

// Poverty returns the poverty guideline table thresholds are computed from.
func (c *Catalog) Poverty() poverty.Table { return c.poverty }

// Issues returns the non-fatal integrity defects found at construction.
func (c *Catalog) Issues() []Issue { return slices.Clone(c.issues) }

// Has reports whether id is defined.
func (c *Catalog) Has(id models.ProgramID) bool {
	_, ok := c.index[id]
	return ok
}

// Lookup returns the program with id, or an error wrapping sentinel.ErrNotFound.
func (c *Catalog) Lookup(id models.ProgramID) (Program, error) {
	i, ok := c.index[id]
	if !ok {
		return Program{}, fmt.Errorf("program %s: %w", id, sentinel.ErrNotFound)
	}
	return c.programs[i].clone(), nil
}

// Index returns the declaration position of id, or -1.
func (c *Catalog) Index(id models.ProgramID) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Programs returns every program in declaration order.
func (c *Catalog) Programs() []Program { return cloneAll(c.programs) }

// ListForState returns the programs offered in state, in declaration order.
func (c *Catalog) ListForState(state facts.StateCode) []Program {
	out := make([]Program, 0, len(c.programs))
	for _, p := range c.programs {
		if p.Jurisdiction.Covers(state) {
			out = append(out, p.clone())
		}
	}
	return out
}
