package filter

import (
	"regexp"
	"sort"

	"github.com/oncueprod/voicecastingpro-platform-sub002/internal/models"
)

// Violation is one rule match. Start/End are byte offsets into the text
// the rule ran against (the running filtered text, since redact rules
// rewrite it as evaluation proceeds).
type Violation struct {
	Category string `json:"category"`
	Match    string `json:"match"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Severity string `json:"severity"`
	Action   string `json:"action"`
}

// Verdict is the result of evaluating one message body.
//
// Blocked means un-redactable high-severity content was found: the message
// must not be delivered at all. High-severity content under a redact rule
// is scrubbed and still delivered. RequiresReview is set whenever any rule
// matched, so a moderator can look at the original later.
type Verdict struct {
	FilteredText   string      `json:"filteredText"`
	Violations     []Violation `json:"violations"`
	Blocked        bool        `json:"blocked"`
	RequiresReview bool        `json:"requiresReview"`
}

// Changed reports whether redaction altered the input.
func (v *Verdict) Changed(original string) bool {
	return v.FilteredText != original
}

// BlockedCategory returns the category of the first blocking violation.
func (v *Verdict) BlockedCategory() string {
	for _, viol := range v.Violations {
		if viol.Severity == models.SeverityHigh && viol.Action != models.ActionRedact {
			return viol.Category
		}
	}
	return ""
}

type compiledRule struct {
	rule models.FilterRule
	re   *regexp.Regexp
}

// Engine evaluates message text against a loaded rule set. It holds no
// mutable state after construction; Evaluate is a pure function, safe for
// concurrent use.
type Engine struct {
	rules []compiledRule
}

// NewEngine compiles the active rules into an engine. Rules run in
// Priority order (ascending); rows with broken patterns are skipped by
// the caller via CompileError.
func NewEngine(rules []models.FilterRule) (*Engine, error) {
	sorted := make([]models.FilterRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	e := &Engine{rules: make([]compiledRule, 0, len(sorted))}
	for _, r := range sorted {
		if !r.Active {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, &CompileError{RuleID: r.ID, Pattern: r.Pattern, Err: err}
		}
		e.rules = append(e.rules, compiledRule{rule: r, re: re})
	}
	return e, nil
}

// CompileError reports a rule row whose pattern does not compile.
type CompileError struct {
	RuleID  string
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return "filter rule " + e.RuleID + ": bad pattern " + e.Pattern + ": " + e.Err.Error()
}

// Evaluate runs every rule against text, in rule-set order. For a redact
// rule every match is replaced with the rule's template in one pass, and
// later rules see the already-redacted text.
func (e *Engine) Evaluate(text string) Verdict {
	verdict := Verdict{FilteredText: text}

	for _, cr := range e.rules {
		locs := cr.re.FindAllStringIndex(verdict.FilteredText, -1)
		if len(locs) == 0 {
			continue
		}

		for _, loc := range locs {
			verdict.Violations = append(verdict.Violations, Violation{
				Category: cr.rule.Category,
				Match:    verdict.FilteredText[loc[0]:loc[1]],
				Start:    loc[0],
				End:      loc[1],
				Severity: cr.rule.Severity,
				Action:   cr.rule.Action,
			})
			if cr.rule.Severity == models.SeverityHigh && cr.rule.Action != models.ActionRedact {
				verdict.Blocked = true
			}
		}

		if cr.rule.Action == models.ActionRedact {
			verdict.FilteredText = cr.re.ReplaceAllString(verdict.FilteredText, cr.rule.Replacement)
		}
	}

	verdict.RequiresReview = len(verdict.Violations) > 0
	return verdict
}
