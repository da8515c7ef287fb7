// Package classifier decides whether a concept text is valid for an account
// and which reporting category an account belongs to.
package classifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/rules"
)

// ConceptSource exposes the chart of accounts' permitted phrases.
type ConceptSource interface {
	Permitted(code string) []string
	AppendPermittedConcept(code, phrase string) error
}

// RuleSource exposes the classification rulebook.
type RuleSource interface {
	Get(code string) (rules.Rule, bool)
	AppendPermitted(code, phrase string) error
}

// Classifier combines the chart of accounts and the rulebook.
type Classifier struct {
	concepts ConceptSource
	rules    RuleSource
}

// New creates a Classifier.
func New(concepts ConceptSource, rules RuleSource) *Classifier {
	return &Classifier{concepts: concepts, rules: rules}
}

// ConceptError reports a concept that matches none of the account's
// permitted phrases. The caller may accept it anyway and learn it.
type ConceptError struct {
	Account     string
	Concept     string
	Suggestions []string
}

func (e *ConceptError) Error() string {
	msg := fmt.Sprintf("concept %q not recognized for account %s", e.Concept, e.Account)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean: " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

func (e *ConceptError) Unwrap() error { return apperr.ErrConceptNotRecognized }

// Validate reports whether concept is acceptable for code: accounts without
// permitted phrases accept anything, otherwise some phrase must be a
// substring of the lowercased concept.
func (c *Classifier) Validate(code, concept string) bool {
	permitted := c.concepts.Permitted(code)
	if len(permitted) == 0 {
		return true
	}
	lower := strings.ToLower(concept)
	for _, p := range permitted {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Check is Validate returning a *ConceptError with suggestions on failure.
func (c *Classifier) Check(code, concept string) error {
	if c.Validate(code, concept) {
		return nil
	}
	return &ConceptError{
		Account:     model.BaseCode(code),
		Concept:     concept,
		Suggestions: c.Suggest(code, concept, 3),
	}
}

// Learn records concept as a permitted phrase for code in the chart of
// accounts, and in the rulebook when the account has a rule.
func (c *Classifier) Learn(code, concept string) error {
	if err := c.concepts.AppendPermittedConcept(code, concept); err != nil {
		return fmt.Errorf("learning concept: %w", err)
	}
	if c.rules != nil {
		if err := c.rules.AppendPermitted(code, concept); err != nil {
			return fmt.Errorf("learning concept rule: %w", err)
		}
	}
	return nil
}

// Suggest returns up to n permitted phrases of code closest to concept by
// edit distance against any word of the concept.
func (c *Classifier) Suggest(code, concept string, n int) []string {
	words := strings.Fields(strings.ToLower(concept))
	if len(words) == 0 || n <= 0 {
		return nil
	}

	targets := append(words[:len(words):len(words)], strings.Join(words, " "))

	type scored struct {
		phrase string
		dist   int
	}
	var candidates []scored
	for _, p := range c.concepts.Permitted(code) {
		best := -1
		for _, w := range targets {
			d := levenshtein.ComputeDistance(w, p)
			if best < 0 || d < best {
				best = d
			}
		}
		if best <= len([]rune(p))/2+1 {
			candidates = append(candidates, scored{phrase: p, dist: best})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].phrase < candidates[j].phrase
	})

	var out []string
	for _, s := range candidates {
		if len(out) == n {
			break
		}
		out = append(out, s.phrase)
	}
	return out
}

// Categorize assigns a reporting category to an account code: the
// rulebook label first, then the numeric ranges, then OTROS.
func (c *Classifier) Categorize(code string) model.Category {
	code = model.BaseCode(code)
	if c.rules != nil {
		if r, ok := c.rules.Get(code); ok {
			if cat, ok := model.NormalizeLabel(r.Categoria); ok {
				return cat
			}
		}
	}
	return CategoryByRange(code)
}

type codeRange struct {
	lo, hi   int
	category model.Category
}

// Checked in order; narrower ranges come before the 600000–609999 block
// that contains them.
var ranges = []codeRange{
	{603000, 603999, model.CategoryFood},
	{602400, 602499, model.CategoryHygiene},
	{600000, 609999, model.CategoryMedicine},
	{620401, 620499, model.CategoryHygiene},
	{640000, 649999, model.CategorySalary},
	{750000, 759999, model.CategorySalary},
	{629200, 629299, model.CategoryOnline},
}

// CategoryByRange applies only the numeric-range fallback.
func CategoryByRange(code string) model.Category {
	n, err := strconv.Atoi(model.BaseCode(code))
	if err != nil {
		return model.CategoryOther
	}
	for _, r := range ranges {
		if n >= r.lo && n <= r.hi {
			return r.category
		}
	}
	return model.CategoryOther
}
