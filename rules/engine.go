package rules

import (
	"embed"
	"fmt"
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"gopkg.in/yaml.v3"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed default/*.yaml
var Embedded embed.FS

type Engine struct {
	RuleSets map[string]RuleSet
	Rules    []CompiledRule
}

func New() *Engine {
	return &Engine{
		RuleSets: map[string]RuleSet{},
	}
}

// CapabilityValues maps a setting name to an expression evaluated against the Input.
type CapabilityValues map[string]string

type Capabilities struct {
	Add    map[string]CapabilityValues `yaml:"add"`
	Remove map[string]CapabilityValues `yaml:"remove"`
}

type Actions struct {
	Capabilities Capabilities `yaml:"capabilities"`
}

type Rule struct {
	Description string  `yaml:"description"`
	Filter      string  `yaml:"filter"`
	Actions     Actions `yaml:"actions"`
	Children    []Rule  `yaml:"children"`
}

type CompiledCapabilityValues map[string]*vm.Program

type CompiledCapabilities struct {
	Add    map[string]CompiledCapabilityValues
	Remove map[string]CompiledCapabilityValues
}

type CompiledActions struct {
	Capabilities CompiledCapabilities
}

type CompiledRule struct {
	Description string
	Filter      *vm.Program
	Actions     CompiledActions
	Children    []CompiledRule
}

type RuleSet struct {
	Name      string   `yaml:"name"`
	DependsOn []string `yaml:"depends_on"`
	Rules     []Rule   `yaml:"rules"`
}

type InputProduct struct {
	ID           string
	Name         string
	Manufacturer string
	Model        string
}

type InputEntity struct {
	Type       string
	Name       string
	DataPoints []string
	Values     map[string][]any
}

type Input struct {
	Product InputProduct
	Entity  InputEntity
}

type Output struct {
	Capabilities map[string]Settings
}

// Implementations returns the names of the capability implementations in the output, sorted.
func (o Output) Implementations() []string {
	var names []string

	for k := range o.Capabilities {
		names = append(names, k)
	}

	sort.Strings(names)
	return names
}

func (e *Engine) LoadString(s string) error {
	return e.LoadReader(strings.NewReader(s))
}

func (e *Engine) LoadReader(r io.Reader) error {
	rs := RuleSet{}

	if err := yaml.NewDecoder(r).Decode(&rs); err != nil {
		return fmt.Errorf("decoding ruleset: %w", err)
	}

	if len(rs.Name) == 0 {
		return fmt.Errorf("ruleset has no name")
	}

	if e.RuleSets == nil {
		e.RuleSets = map[string]RuleSet{}
	}

	e.RuleSets[rs.Name] = rs
	return nil
}

func (e *Engine) LoadFS(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}

		f, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := e.LoadReader(f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		return nil
	})
}

func (e *Engine) CompileRules() error {
	alreadyLoaded := map[string]bool{}

	var names []string

	for k := range e.RuleSets {
		alreadyLoaded[k] = false
		names = append(names, k)
	}

	sort.Strings(names)
	e.Rules = nil

	for _, k := range names {
		if !alreadyLoaded[k] {
			if err := e.compileRuleSet(alreadyLoaded, []string{}, k); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *Engine) compileRuleSet(alreadyLoaded map[string]bool, trail []string, name string) error {
	rs, ok := e.RuleSets[name]
	if !ok {
		return fmt.Errorf("ruleset missing dependency: %s->%s", strings.Join(trail, "->"), name)
	}

	trail = append(trail, rs.Name)

	for _, k := range rs.DependsOn {
		for _, t := range trail {
			if k == t {
				return fmt.Errorf("ruleset circular dependency: %s->%s", strings.Join(trail, "->"), k)
			}
		}

		if !alreadyLoaded[k] {
			if err := e.compileRuleSet(alreadyLoaded, trail, k); err != nil {
				return err
			}
		}
	}

	if cr, err := compileRules(rs.Rules); err != nil {
		return fmt.Errorf("ruleset compilation: %s: %w", strings.Join(trail, "->"), err)
	} else {
		e.Rules = append(e.Rules, cr...)
	}

	alreadyLoaded[name] = true

	return nil
}

func compileRules(rules []Rule) ([]CompiledRule, error) {
	var compiledRules []CompiledRule

	for _, rule := range rules {
		cf, err := expr.Compile(rule.Filter, expr.Env(Input{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("filter compilation: %w", err)
		}

		ca, err := compileActions(rule.Actions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rule.Description, err)
		}

		if childCompiledRules, err := compileRules(rule.Children); err != nil {
			return nil, fmt.Errorf("%s: %w", rule.Description, err)
		} else {
			compiledRules = append(compiledRules, CompiledRule{
				Description: rule.Description,
				Filter:      cf,
				Actions:     ca,
				Children:    childCompiledRules,
			})
		}
	}

	return compiledRules, nil
}

func compileActions(a Actions) (CompiledActions, error) {
	add, err := compileCapabilityValues(a.Capabilities.Add)
	if err != nil {
		return CompiledActions{}, err
	}

	remove, err := compileCapabilityValues(a.Capabilities.Remove)
	if err != nil {
		return CompiledActions{}, err
	}

	return CompiledActions{Capabilities: CompiledCapabilities{Add: add, Remove: remove}}, nil
}

func compileCapabilityValues(in map[string]CapabilityValues) (map[string]CompiledCapabilityValues, error) {
	out := map[string]CompiledCapabilityValues{}

	for name, values := range in {
		compiled := CompiledCapabilityValues{}

		for k, v := range values {
			p, err := expr.Compile(v, expr.Env(Input{}))
			if err != nil {
				return nil, fmt.Errorf("value compilation: %s.%s: %w", name, k, err)
			}

			compiled[k] = p
		}

		out[name] = compiled
	}

	return out, nil
}

// Execute runs every compiled rule against the input. A rule's children are only evaluated if the rule itself
// matched, allowing children to refine the actions of their parent.
func (e *Engine) Execute(i Input) (Output, error) {
	o := Output{Capabilities: map[string]Settings{}}

	if err := execute(e.Rules, i, &o); err != nil {
		return Output{}, err
	}

	return o, nil
}

func execute(rules []CompiledRule, i Input, o *Output) error {
	for _, r := range rules {
		matched, err := expr.Run(r.Filter, i)
		if err != nil {
			return fmt.Errorf("filter execution: %s: %w", r.Description, err)
		}

		if b, ok := matched.(bool); !ok || !b {
			continue
		}

		for name, values := range r.Actions.Capabilities.Add {
			settings := Settings{}

			for k, p := range values {
				v, err := expr.Run(p, i)
				if err != nil {
					return fmt.Errorf("value execution: %s: %s.%s: %w", r.Description, name, k, err)
				}

				settings[k] = v
			}

			o.Capabilities[name] = settings
		}

		for name := range r.Actions.Capabilities.Remove {
			delete(o.Capabilities, name)
		}

		if err := execute(r.Children, i, o); err != nil {
			return err
		}
	}

	return nil
}
