package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"benefind/internal/eligibility/facts"
	"benefind/internal/eligibility/models"
	"benefind/internal/eligibility/poverty"
	strutil "benefind/pkg/platform/strings"
)

//go:embed programs.yaml
var embeddedPrograms []byte

type fileDefinition struct {
	Version  string              `yaml:"version"`
	Poverty  *povertyDefinition  `yaml:"poverty"`
	Programs []programDefinition `yaml:"programs"`
}

type povertyDefinition struct {
	Year    int                            `yaml:"year"`
	Default guidelineDefinition            `yaml:"default"`
	Regions map[string]guidelineDefinition `yaml:"regions"`
}

type guidelineDefinition struct {
	Base          string `yaml:"base"`
	PerAdditional string `yaml:"per_additional"`
}

type programDefinition struct {
	ID           string                  `yaml:"id"`
	Name         string                  `yaml:"name"`
	Category     string                  `yaml:"category"`
	Agency       string                  `yaml:"agency"`
	Nationwide   bool                    `yaml:"nationwide"`
	States       []string                `yaml:"states"`
	Required     []criterionDefinition   `yaml:"required"`
	Secondary    []criterionDefinition   `yaml:"secondary"`
	Interactions []interactionDefinition `yaml:"interactions"`
}

type criterionDefinition struct {
	ID       string                `yaml:"id"`
	Kind     string                `yaml:"kind"`
	Fact     string                `yaml:"fact"`
	Op       string                `yaml:"op"`
	Value    string                `yaml:"value"`
	Percent  string                `yaml:"percent"`
	Equals   bool                  `yaml:"equals"`
	Min      string                `yaml:"min"`
	Max      string                `yaml:"max"`
	Values   []string              `yaml:"values"`
	Children []criterionDefinition `yaml:"children"`
}

type interactionDefinition struct {
	Target      string `yaml:"target"`
	Kind        string `yaml:"kind"`
	Explanation string `yaml:"explanation"`
}

// Parse decodes and validates a YAML catalog definition. Without a poverty
// section the 2024 guidelines are used.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("catalog: definition payload is empty")
	}
	var def fileDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("catalog: decode definition: %w", err)
	}

	table := poverty.Guidelines2024()
	if def.Poverty != nil {
		t, err := def.Poverty.table()
		if err != nil {
			return nil, fmt.Errorf("catalog: poverty: %w", err)
		}
		table = t
	}

	programs := make([]Program, 0, len(def.Programs))
	for _, pd := range def.Programs {
		p, err := pd.program()
		if err != nil {
			return nil, fmt.Errorf("catalog: program %s: %w", pd.ID, err)
		}
		programs = append(programs, p)
	}

	c, err := New(strings.TrimSpace(def.Version), table, programs)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return c, nil
}

// LoadFile reads and parses a catalog definition from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadEmbedded parses the catalog compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return Parse(embeddedPrograms)
}

func (d povertyDefinition) table() (poverty.Table, error) {
	def, err := d.Default.guideline()
	if err != nil {
		return poverty.Table{}, fmt.Errorf("default: %w", err)
	}
	t := poverty.Table{Year: d.Year, Default: def, Regions: map[facts.StateCode]poverty.Guideline{}}
	for raw, gd := range d.Regions {
		state, ok := facts.ParseState(raw)
		if !ok {
			return poverty.Table{}, fmt.Errorf("unknown region %q", raw)
		}
		g, err := gd.guideline()
		if err != nil {
			return poverty.Table{}, fmt.Errorf("region %s: %w", state, err)
		}
		t.Regions[state] = g
	}
	return t, nil
}

func (d guidelineDefinition) guideline() (poverty.Guideline, error) {
	base, err := parseDecimal("base", d.Base)
	if err != nil {
		return poverty.Guideline{}, err
	}
	per, err := parseDecimal("per_additional", d.PerAdditional)
	if err != nil {
		return poverty.Guideline{}, err
	}
	return poverty.Guideline{Base: base, PerAdditional: per}, nil
}

func (d programDefinition) program() (Program, error) {
	p := Program{
		ID:       models.ProgramID(strings.TrimSpace(d.ID)),
		Name:     strings.TrimSpace(d.Name),
		Category: d.Category,
		Agency:   d.Agency,
		Jurisdiction: Jurisdiction{
			Nationwide: d.Nationwide,
		},
	}
	for _, s := range strutil.Canonicalize(d.States, facts.FoldText(facts.KeyState)) {
		p.Jurisdiction.States = append(p.Jurisdiction.States, facts.StateCode(s))
	}

	var err error
	if p.Required, err = criteria(d.Required); err != nil {
		return Program{}, err
	}
	if p.Secondary, err = criteria(d.Secondary); err != nil {
		return Program{}, err
	}

	for _, id := range d.Interactions {
		target := models.ProgramID(strings.TrimSpace(id.Target))
		tmpl, err := ParseExplanation(string(p.ID)+"->"+string(target), id.Explanation)
		if err != nil {
			return Program{}, fmt.Errorf("interaction with %s: explanation: %w", target, err)
		}
		p.Interactions = append(p.Interactions, InteractionHook{
			Target:      target,
			Kind:        models.InteractionKind(strings.TrimSpace(id.Kind)),
			Explanation: tmpl,
		})
	}
	return p, nil
}

func criteria(defs []criterionDefinition) ([]Criterion, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]Criterion, 0, len(defs))
	for _, d := range defs {
		c, err := d.criterion()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (d criterionDefinition) criterion() (Criterion, error) {
	fact := facts.Key(strings.TrimSpace(d.Fact))
	c := Criterion{
		ID:     strings.TrimSpace(d.ID),
		Kind:   Kind(strings.TrimSpace(d.Kind)),
		Fact:   fact,
		Op:     Op(strings.TrimSpace(d.Op)),
		Equals: d.Equals,
		Values: strutil.Canonicalize(d.Values, facts.FoldText(fact)),
	}
	wrap := func(err error) error { return fmt.Errorf("criterion %s: %w", c.ID, err) }

	if c.Kind == KindCompare && strings.TrimSpace(d.Value) == "" {
		return Criterion{}, wrap(fmt.Errorf("compare needs a value"))
	}

	var err error
	if d.Value != "" {
		if c.Value, err = parseDecimal("value", d.Value); err != nil {
			return Criterion{}, wrap(err)
		}
	}
	if d.Percent != "" {
		if c.Percent, err = parseDecimal("percent", d.Percent); err != nil {
			return Criterion{}, wrap(err)
		}
	}
	if d.Min != "" {
		v, err := parseDecimal("min", d.Min)
		if err != nil {
			return Criterion{}, wrap(err)
		}
		c.Min = &v
	}
	if d.Max != "" {
		v, err := parseDecimal("max", d.Max)
		if err != nil {
			return Criterion{}, wrap(err)
		}
		c.Max = &v
	}
	if c.Children, err = criteria(d.Children); err != nil {
		return Criterion{}, wrap(err)
	}
	return c, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s %q is not a number", field, s)
	}
	return v, nil
}
