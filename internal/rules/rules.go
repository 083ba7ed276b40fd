// Package rules holds the category rule set and the keyword classifier.
//
// Rules are loaded from a YAML document with a mandatory top-level
// "categories" key and an optional "auto_tagging" key. A second
// "private" overlay document with the same schema can be merged on top
// of the base to extend keyword coverage without touching the base file.
package rules

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pftrack/pftrack/internal/domain"
)

// FallbackPriority is the priority assigned to the reserved fallback
// rule. It sorts after every real rule.
const FallbackPriority = 999

// Override condition names accepted in rule files. Conditions are an
// enumerated set, not arbitrary code.
const (
	WhenAmountNegative = "amount-negative"
	WhenAmountPositive = "amount-positive"
)

// Override voids a specific keyword match under a named condition.
// Example: "INTEREST" under Travel does not apply when the amount is
// negative, because that is interest income rather than a purchase.
type Override struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	When    string `yaml:"when" json:"when"`
}

// Rule is one category's matching definition.
type Rule struct {
	Name            string     `yaml:"-" json:"name"`
	Keywords        []string   `yaml:"keywords" json:"keywords"`
	Priority        int        `yaml:"priority" json:"priority"`
	RequireNegative bool       `yaml:"require_negative_amount" json:"require_negative_amount,omitempty"`
	Overrides       []Override `yaml:"overrides" json:"overrides,omitempty"`
}

// TagRule attaches a tag when any keyword matches the description or
// the transaction's category is in the rule's category list.
type TagRule struct {
	Keywords   []string `yaml:"keywords" json:"keywords"`
	Categories []string `yaml:"categories" json:"categories"`
}

// Set is an ordered, de-duplicated collection of category rules plus
// the auto-tagging rules. Order is ascending by priority, with
// declaration order breaking ties, and is fixed at build time;
// classification never re-sorts.
type Set struct {
	ordered  []*Rule
	byName   map[string]*Rule
	order    []string
	tagNames []string
	tagRules map[string]TagRule
}

// ruleFile is the on-disk schema shared by base and overlay documents.
// Priority is a pointer so a merge can tell "explicitly given" apart
// from "absent". Categories and tags keep their document order, which
// decides ties between equal priorities and the order tags are
// attached in, so decoding walks the yaml.Node tree instead of
// unmarshalling into plain maps.
type ruleFile struct {
	Categories    []namedFileRule
	AutoTags      []namedTagRule
	hasCategories bool
}

type namedFileRule struct {
	Name string
	Rule *fileRule
}

type namedTagRule struct {
	Name string
	Rule TagRule
}

func (f *ruleFile) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("document root must be a mapping")
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, node := value.Content[i], value.Content[i+1]
		switch key.Value {
		case "categories":
			f.hasCategories = true
			if node.Tag == "!!null" {
				continue
			}
			if node.Kind != yaml.MappingNode {
				return fmt.Errorf("'categories' must be a mapping")
			}
			for j := 0; j+1 < len(node.Content); j += 2 {
				fr := &fileRule{}
				if err := node.Content[j+1].Decode(fr); err != nil {
					return err
				}
				f.Categories = append(f.Categories, namedFileRule{Name: node.Content[j].Value, Rule: fr})
			}
		case "auto_tagging":
			if node.Tag == "!!null" {
				continue
			}
			if node.Kind != yaml.MappingNode {
				return fmt.Errorf("'auto_tagging' must be a mapping")
			}
			for j := 0; j+1 < len(node.Content); j += 2 {
				var tr TagRule
				if err := node.Content[j+1].Decode(&tr); err != nil {
					return err
				}
				f.AutoTags = append(f.AutoTags, namedTagRule{Name: node.Content[j].Value, Rule: tr})
			}
		}
	}
	return nil
}

type fileRule struct {
	Keywords        []string   `yaml:"keywords"`
	Priority        *int       `yaml:"priority"`
	RequireNegative bool       `yaml:"require_negative_amount"`
	Overrides       []Override `yaml:"overrides"`
}

func (fr *fileRule) toRule(name string) *Rule {
	priority := 1
	if fr.Priority != nil {
		priority = *fr.Priority
	}
	return &Rule{
		Name:            name,
		Keywords:        fr.Keywords,
		Priority:        priority,
		RequireNegative: fr.RequireNegative,
		Overrides:       fr.Overrides,
	}
}

// Default returns the built-in rule set used when no rule file is
// configured.
func Default() *Set {
	s := newSet()
	for _, r := range defaultRules() {
		s.insert(r)
	}
	s.rebuild()
	return s
}

func newSet() *Set {
	return &Set{
		byName:   make(map[string]*Rule),
		tagRules: make(map[string]TagRule),
	}
}

// insert registers a rule. A re-inserted name replaces the rule but
// keeps its first-seen position.
func (s *Set) insert(r *Rule) {
	if _, ok := s.byName[r.Name]; !ok {
		s.order = append(s.order, r.Name)
	}
	s.byName[r.Name] = r
}

func (s *Set) insertTag(name string, tr TagRule) {
	if _, ok := s.tagRules[name]; !ok {
		s.tagNames = append(s.tagNames, name)
	}
	s.tagRules[name] = tr
}

func defaultRules() []*Rule {
	return []*Rule{
		{Name: "Income", Priority: 1, RequireNegative: true,
			Keywords: []string{"PAYROLL", "DEPOSIT", "INTEREST"}},
		{Name: "Groceries", Priority: 1,
			Keywords: []string{"SUPERSTORE", "SAFEWAY", "SAVE ON FOODS", "MARKET", "GROCERY"}},
		{Name: "Dining", Priority: 2,
			Keywords: []string{"RESTAURANT", "CAFE", "COFFEE", "PIZZA", "SUSHI", "DOORDASH", "UBER EATS"}},
		{Name: "Transport", Priority: 2,
			Keywords: []string{"SHELL", "PETRO", "ESSO", "CHEVRON", "TRANSIT", "UBER", "LYFT", "PARKING"}},
		{Name: "Subscriptions", Priority: 2,
			Keywords: []string{"NETFLIX", "SPOTIFY", "DISNEY", "PRIME", "APPLE.COM", "PATREON"}},
		{Name: "Utilities", Priority: 2,
			Keywords: []string{"HYDRO", "FORTIS", "TELUS", "ROGERS", "SHAW", "INTERNET"}},
		{Name: "Travel", Priority: 3,
			Keywords: []string{"AIRLINE", "AIR CANADA", "WESTJET", "HOTEL", "AIRBNB", "CASH INTEREST"},
			Overrides: []Override{
				{Keyword: "CASH INTEREST", When: WhenAmountNegative},
			}},
		{Name: "Shopping", Priority: 3,
			Keywords: []string{"AMAZON", "WALMART", "COSTCO", "BEST BUY", "CANADIAN TIRE"}},
		{Name: domain.CategoryOther, Priority: FallbackPriority},
	}
}

// Load reads the base rule file at path. An empty path returns the
// built-in defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := parseRuleFile(path)
	if err != nil {
		return nil, err
	}

	s := newSet()
	for _, c := range f.Categories {
		s.insert(c.Rule.toRule(c.Name))
	}
	for _, tr := range f.AutoTags {
		s.insertTag(tr.Name, tr.Rule)
	}

	// The fallback rule always exists, even when the file omits it.
	if _, ok := s.byName[domain.CategoryOther]; !ok {
		s.insert(&Rule{Name: domain.CategoryOther, Priority: FallbackPriority})
	}

	s.rebuild()
	return s, nil
}

// LoadWithOverlay loads the base rule file and, if overlayPath exists,
// merges the overlay on top. A missing overlay file is not an error;
// a malformed one is.
func LoadWithOverlay(basePath, overlayPath string) (*Set, error) {
	s, err := Load(basePath)
	if err != nil {
		return nil, err
	}

	if overlayPath == "" {
		return s, nil
	}
	if _, statErr := os.Stat(overlayPath); os.IsNotExist(statErr) {
		return s, nil
	}

	if err := s.MergeFile(overlayPath); err != nil {
		return nil, err
	}
	return s, nil
}

// MergeFile merges an overlay rule document into the set.
//
// For categories already present, keywords are unioned (duplicates
// collapse), an explicitly given overlay priority replaces the base
// one, and overlay-only fields are copied over. New categories are
// inserted as-is. Auto-tag rules from the overlay replace same-named
// base entries.
func (s *Set) MergeFile(path string) error {
	f, err := parseRuleFile(path)
	if err != nil {
		return err
	}

	for _, c := range f.Categories {
		base, ok := s.byName[c.Name]
		if !ok {
			s.insert(c.Rule.toRule(c.Name))
			continue
		}

		overlay := c.Rule
		base.Keywords = unionKeywords(base.Keywords, overlay.Keywords)
		if overlay.Priority != nil {
			base.Priority = *overlay.Priority
		}
		if overlay.RequireNegative {
			base.RequireNegative = overlay.RequireNegative
		}
		if len(overlay.Overrides) > 0 {
			base.Overrides = append(base.Overrides, overlay.Overrides...)
		}
	}

	for _, tr := range f.AutoTags {
		s.insertTag(tr.Name, tr.Rule)
	}

	s.rebuild()
	return nil
}

func parseRuleFile(path string) (*ruleFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ErrConfig{Source: path, Reason: fmt.Sprintf("read failed: %v", err)}
	}

	var f ruleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, &domain.ErrConfig{Source: path, Reason: fmt.Sprintf("not valid YAML: %v", err)}
	}
	if !f.hasCategories {
		return nil, &domain.ErrConfig{Source: path, Reason: "missing mandatory 'categories' key"}
	}
	return &f, nil
}

func unionKeywords(base, overlay []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(overlay))
	for _, kw := range base {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	for _, kw := range overlay {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

// rebuild re-derives the evaluation order. The stable sort keeps
// declaration order between rules of equal priority.
func (s *Set) rebuild() {
	s.ordered = s.ordered[:0]
	for _, name := range s.order {
		s.ordered = append(s.ordered, s.byName[name])
	}
	sort.SliceStable(s.ordered, func(i, j int) bool {
		return s.ordered[i].Priority < s.ordered[j].Priority
	})
}

// Rules returns the rules in evaluation order, fallback last.
func (s *Set) Rules() []*Rule {
	return s.ordered
}

// Rule looks up one rule by category name.
func (s *Set) Rule(name string) (*Rule, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// TagRules returns the auto-tagging rules keyed by tag name.
func (s *Set) TagRules() map[string]TagRule {
	return s.tagRules
}

// TagNames returns the auto-tag names in declaration order. Tags are
// applied in this order so identical transactions end up with
// identically ordered tag lists.
func (s *Set) TagNames() []string {
	return s.tagNames
}

// Categories returns all category names in evaluation order.
func (s *Set) Categories() []string {
	out := make([]string, 0, len(s.ordered))
	for _, r := range s.ordered {
		out = append(out, r.Name)
	}
	return out
}
