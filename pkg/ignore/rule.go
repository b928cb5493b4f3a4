package ignore

import "strings"

// Rule is a single ignore rule. A literal rule matches by equality, suffix
// or path-segment containment; a regex rule is compiled with Flags.
type Rule struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Regex   bool   `yaml:"regex,omitempty" mapstructure:"regex"`
	Flags   string `yaml:"flags,omitempty" mapstructure:"flags"`
}

// Literal returns a literal rule.
func Literal(pattern string) Rule {
	return Rule{Pattern: pattern}
}

// Regex returns a regex rule with optional flags.
func Regex(pattern, flags string) Rule {
	return Rule{Pattern: pattern, Regex: true, Flags: flags}
}

func (r Rule) String() string {
	if !r.Regex {
		return r.Pattern
	}
	return "/" + r.Pattern + "/" + r.Flags
}

func (r Rule) key() Rule {
	if !r.Regex {
		r.Flags = ""
	}
	return r
}

// Overrides is the user layer combined with the built-in defaults.
type Overrides struct {
	Add     []Rule   `yaml:"add,omitempty" mapstructure:"add"`
	Disable []string `yaml:"disable,omitempty" mapstructure:"disable"` // Patterns removed from the defaults.
}

// IsZero reports whether the overrides change nothing.
func (o Overrides) IsZero() bool {
	return len(o.Add) == 0 && len(o.Disable) == 0
}

// Combine stacks two override layers, later taking precedence for additions.
func (o Overrides) Combine(next Overrides) Overrides {
	return Overrides{
		Add:     append(append([]Rule{}, o.Add...), next.Add...),
		Disable: append(append([]string{}, o.Disable...), next.Disable...),
	}
}

// Merge combines the default layer with user overrides. Defaults whose
// pattern is listed in Disable are dropped, Add rules are appended and
// duplicates are removed keeping the first occurrence. Inputs are not
// modified.
func Merge(defaults []Rule, overrides Overrides) []Rule {
	disabled := make(map[string]struct{}, len(overrides.Disable))
	for _, p := range overrides.Disable {
		disabled[p] = struct{}{}
	}

	seen := make(map[Rule]struct{}, len(defaults)+len(overrides.Add))
	merged := make([]Rule, 0, len(defaults)+len(overrides.Add))

	add := func(r Rule) {
		if strings.TrimSpace(r.Pattern) == "" {
			return
		}
		k := r.key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		merged = append(merged, k)
	}

	for _, r := range defaults {
		if _, ok := disabled[r.Pattern]; ok {
			continue
		}
		add(r)
	}
	for _, r := range overrides.Add {
		add(r)
	}
	return merged
}

// DefaultRules returns the built-in rule layer. A fresh slice is returned on
// every call.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(defaultSegments)+len(defaultLiterals)+len(defaultRegexes))
	for _, name := range defaultSegments {
		rules = append(rules, SegmentRule(name))
	}
	for _, p := range defaultLiterals {
		rules = append(rules, Literal(p))
	}
	return append(rules, defaultRegexes...)
}

// SegmentRule returns a regex rule matching name as whole path segments at
// any depth. A slash in name matches either separator.
func SegmentRule(name string) Rule {
	quoted := strings.ReplaceAll(name, ".", `\.`)
	quoted = strings.ReplaceAll(quoted, "/", `[\\/]`)
	return Regex(`(^|[\\/])`+quoted+`([\\/]|$)`, "")
}

// Directory and file names pruned wherever they appear.
var defaultSegments = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Dependencies and caches
	"node_modules",
	"bower_components",
	"vendor/bundle",
	"__pycache__",
	".venv",
	".pytest_cache",
	".mypy_cache",
	".gradle",
	".next",
	".nuxt",
	".cache",

	// Editors and OS
	".idea",
	".vscode",
	".DS_Store",
	"Thumbs.db",
}

var defaultLiterals = []string{
	// Lockfiles
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.lock",
	"go.sum",
	"poetry.lock",
}

var defaultRegexes = []Rule{
	Regex(`^(dist|build|out|target|coverage)[\\/]`, ""),
	Regex(`\.(png|jpe?g|gif|bmp|ico|webp|pdf|zip|tar|gz|tgz|7z|rar|exe|dll|so|dylib|a|o|class|jar|pyc|wasm)$`, "i"),
	Regex(`\.(swp|swo|tmp|log)$`, "i"),
	Regex(`\.min\.(js|css)$`, ""),
}
