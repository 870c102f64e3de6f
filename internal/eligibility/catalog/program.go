// Package catalog holds the read-only registry of benefit program definitions
// and the interactions they declare with one another.
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"text/template"

	"github.com/shopspring/decimal"

	"benefind/internal/eligibility/facts"
	"benefind/internal/eligibility/models"
)

// Program is one benefit program definition.
type Program struct {
	ID           models.ProgramID
	Name         string
	Category     string
	Agency       string
	Jurisdiction Jurisdiction
	// Required criteria must all pass for a likely tier; an explicit failure
	// excludes the program.
	Required []Criterion
	// Secondary criteria only influence the tier when their facts are known.
	Secondary    []Criterion
	Interactions []InteractionHook
}

func (p Program) clone() Program {
	p.Jurisdiction.States = slices.Clone(p.Jurisdiction.States)
	p.Required = cloneCriteria(p.Required)
	p.Secondary = cloneCriteria(p.Secondary)
	p.Interactions = slices.Clone(p.Interactions)
	return p
}

func cloneAll(programs []Program) []Program {
	if programs == nil {
		return nil
	}
	out := make([]Program, len(programs))
	for i, p := range programs {
		out[i] = p.clone()
	}
	return out
}

// Jurisdiction is where a program is offered.
type Jurisdiction struct {
	Nationwide bool
	States     []facts.StateCode
}

// Covers reports whether the program is offered in state.
func (j Jurisdiction) Covers(state facts.StateCode) bool {
	return j.Nationwide || slices.Contains(j.States, state)
}

// Kind is the criterion discriminant.
type Kind string

const (
	KindCompare    Kind = "compare"
	KindFPLPercent Kind = "fpl_percent"
	KindEquals     Kind = "equals"
	KindRange      Kind = "range"
	KindOneOf      Kind = "one_of"
	KindAll        Kind = "all"
	KindAny        Kind = "any"
	KindNot        Kind = "not"
)

// Op is a numeric comparison operator for compare criteria.
type Op string

const (
	OpLT  Op = "lt"
	OpLTE Op = "lte"
	OpGT  Op = "gt"
	OpGTE Op = "gte"
	OpEQ  Op = "eq"
)

func (o Op) valid() bool {
	switch o {
	case OpLT, OpLTE, OpGT, OpGTE, OpEQ:
		return true
	}
	return false
}

// Criterion is a node in a program's eligibility predicate. Which fields are
// meaningful depends on Kind:
//
//	compare      Fact Op Value
//	fpl_percent  monthly income <= Percent% of the poverty line
//	equals       Fact == Equals
//	range        Min <= Fact <= Max, either bound optional
//	one_of       Fact in Values
//	all/any/not  Children
type Criterion struct {
	ID       string
	Kind     Kind
	Fact     facts.Key
	Op       Op
	Value    decimal.Decimal
	Percent  decimal.Decimal
	Equals   bool
	Min      *decimal.Decimal
	Max      *decimal.Decimal
	Values   []string // trimmed, deduplicated, folded with facts.FoldText(Fact)
	Children []Criterion
}

func cloneCriteria(in []Criterion) []Criterion {
	if in == nil {
		return nil
	}
	out := make([]Criterion, len(in))
	for i, c := range in {
		c.Values = slices.Clone(c.Values)
		c.Children = cloneCriteria(c.Children)
		if c.Min != nil {
			v := *c.Min
			c.Min = &v
		}
		if c.Max != nil {
			v := *c.Max
			c.Max = &v
		}
		out[i] = c
	}
	return out
}

// InteractionHook declares a relationship from the owning program to Target.
type InteractionHook struct {
	Target      models.ProgramID
	Kind        models.InteractionKind
	Explanation *template.Template
}

// ExplanationData is what an explanation template renders against.
type ExplanationData struct {
	Source string
	Target string
}

// Explain renders the hook's explanation with the two program names.
func (h InteractionHook) Explain(source, target string) (string, error) {
	if h.Explanation == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := h.Explanation.Execute(&buf, ExplanationData{Source: source, Target: target}); err != nil {
		return "", fmt.Errorf("render explanation %s -> %s: %w", source, target, err)
	}
	return buf.String(), nil
}

// ParseExplanation compiles an explanation template and checks it renders
// against ExplanationData.
func ParseExplanation(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, err
	}
	if err := tmpl.Execute(io.Discard, ExplanationData{Source: "source", Target: "target"}); err != nil {
		return nil, err
	}
	return tmpl, nil
}
