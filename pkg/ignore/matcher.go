// Package ignore implements the literal / regex ignore-rule engine used to
// filter repository scans and to prune saved selections.
package ignore

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
)

// MatchTimeout bounds a single regex evaluation.
const MatchTimeout = 100 * time.Millisecond

// PathMatcher is implemented by anything that can decide whether a path is
// ignored.
type PathMatcher interface {
	IsIgnored(path string) bool
	IsIgnoredDir(path string) bool
}

// compiledRule pairs a rule with its compiled regex. re is nil for literal
// rules and for regex rules that failed to compile.
type compiledRule struct {
	rule Rule
	re   *regexp2.Regexp
}

// Matcher is an immutable compiled rule set. Reloading means building a new
// Matcher and swapping it in.
type Matcher struct {
	rules     []Rule
	literals  []string
	regexes   []compiledRule
	gitignore *gitignore.GitIgnore
	logger    *zap.Logger
}

var _ PathMatcher = (*Matcher)(nil)

// NewMatcher compiles rules. Invalid regexes are logged and never match.
func NewMatcher(rules []Rule, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Matcher{
		rules:  append([]Rule{}, rules...),
		logger: logger,
	}

	for i, r := range rules {
		if r.Pattern == "" {
			continue
		}
		if !r.Regex {
			m.literals = append(m.literals, r.Pattern)
			continue
		}

		re, err := compileRegex(r)
		if err != nil {
			logger.Warn("Invalid ignore regex, rule disabled",
				zap.Int("ruleIndex", i),
				zap.String("pattern", r.Pattern),
				zap.String("flags", r.Flags),
				zap.Error(err))
			m.regexes = append(m.regexes, compiledRule{rule: r})
			continue
		}
		m.regexes = append(m.regexes, compiledRule{rule: r, re: re})
		logger.Debug("Compiled ignore regex", zap.String("pattern", r.Pattern), zap.String("flags", r.Flags))
	}

	return m
}

// IsIgnored evaluates path against rules without keeping the compiled set.
func IsIgnored(path string, rules []Rule) bool {
	return NewMatcher(rules, nil).IsIgnored(path)
}

// WithGitignore returns a copy of m that also consults gi. A nil gi returns m.
func (m *Matcher) WithGitignore(gi *gitignore.GitIgnore) *Matcher {
	if gi == nil {
		return m
	}
	clone := *m
	clone.gitignore = gi
	return &clone
}

// Rules returns a copy of the rules the matcher was built from.
func (m *Matcher) Rules() []Rule {
	return append([]Rule{}, m.rules...)
}

// IsIgnored reports whether path matches any rule.
func (m *Matcher) IsIgnored(path string) bool {
	matched, _ := m.Match(path)
	return matched
}

// IsIgnoredDir tests a directory path with a trailing separator appended so
// rules such as `^node_modules[\\/]` prune the whole subtree.
func (m *Matcher) IsIgnoredDir(path string) bool {
	if !strings.HasSuffix(path, "/") && !strings.HasSuffix(path, `\`) {
		path += "/"
	}
	return m.IsIgnored(path)
}

// Match reports whether path matches and which rule matched first. The
// returned rule is the zero Rule when the .gitignore layer matched.
func (m *Matcher) Match(path string) (bool, Rule) {
	for _, lit := range m.literals {
		if matchLiteral(path, lit) {
			return true, Literal(lit)
		}
	}

	for _, cr := range m.regexes {
		if cr.re == nil {
			continue
		}
		ok, err := cr.re.MatchString(path)
		if err != nil {
			m.logger.Warn("Ignore regex evaluation failed",
				zap.String("pattern", cr.rule.Pattern),
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		if ok {
			return true, cr.rule
		}
	}

	if m.gitignore != nil && m.gitignore.MatchesPath(filepath.ToSlash(path)) {
		return true, Rule{}
	}

	return false, Rule{}
}

// CleanSelection splits files into those kept and those removed by the
// rule set. Only file semantics apply; order is preserved.
func (m *Matcher) CleanSelection(files []string) (kept, removed []string) {
	kept = make([]string, 0, len(files))
	for _, f := range files {
		if m.IsIgnored(f) {
			removed = append(removed, f)
			continue
		}
		kept = append(kept, f)
	}
	m.logger.Debug("Cleaned selection", zap.Int("kept", len(kept)), zap.Int("removed", len(removed)))
	return kept, removed
}

// matchLiteral implements the literal rule: equality, suffix, or the rule
// starting a path segment. A leading segment only counts when followed by a
// separator, so `build` does not swallow `build.gradle` at the top level.
func matchLiteral(path, rule string) bool {
	if path == rule || strings.HasSuffix(path, rule) {
		return true
	}
	if strings.Contains(path, "/"+rule) || strings.Contains(path, `\`+rule) {
		return true
	}
	return strings.HasPrefix(path, rule+"/") || strings.HasPrefix(path, rule+`\`)
}

func compileRegex(r Rule) (*regexp2.Regexp, error) {
	opts, err := parseFlags(r.Flags)
	if err != nil {
		return nil, err
	}
	re, err := regexp2.Compile(r.Pattern, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

// parseFlags maps JavaScript-style flag letters to regexp2 options. Flags
// that only affect iteration state are accepted and ignored.
func parseFlags(flags string) (regexp2.RegexOptions, error) {
	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'g', 'u', 'y', 'd':
		default:
			return opts, fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	return opts, nil
}
