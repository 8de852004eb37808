package triage

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PatternRule is one entry of a compiled pattern list: critical,
// spam, or profanity, loaded from YAML (SPEC_FULL §4.8).
type PatternRule struct {
	ID      string `yaml:"id"`
	Pattern string `yaml:"pattern"`

	compiled *regexp.Regexp
}

// RulesConfig is the on-disk shape of the triage rule set.
type RulesConfig struct {
	CriticalPatterns []PatternRule `yaml:"critical_patterns"`
	BlockedDomains   []string      `yaml:"blocked_domains"`
	SpamPatterns     []PatternRule `yaml:"spam_patterns"`
	SpamPhrases      []string      `yaml:"spam_phrases"`
	ProfanityWords   []PatternRule `yaml:"profanity_words"`
}

// LoadRulesConfig reads and compiles a YAML rule file at path.
func LoadRulesConfig(path string) (*RulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read triage rules from %s: %w", path, err)
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse triage rules: %w", err)
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RulesConfig) compile() error {
	groups := [][]PatternRule{c.CriticalPatterns, c.SpamPatterns, c.ProfanityWords}
	for _, group := range groups {
		for i := range group {
			p, err := regexp.Compile("(?i)" + group[i].Pattern)
			if err != nil {
				return fmt.Errorf("failed to compile pattern '%s': %w", group[i].Pattern, err)
			}
			group[i].compiled = p
		}
	}
	return nil
}

// DefaultRulesConfig returns a small built-in rule set so the engine
// runs without an external YAML file — used by tests and the CLI
// simulator, mirroring how the pack's own classifiers fall back to a
// safe default when no config file is found.
func DefaultRulesConfig() *RulesConfig {
	cfg := &RulesConfig{
		CriticalPatterns: []PatternRule{
			{ID: "bomb-threat", Pattern: `bomb\s+threat`},
			{ID: "kill-threat", Pattern: `\bi\s+will\s+kill\s+you\b`},
			{ID: "csam", Pattern: `\bchild\s+(sexual|porn)`},
		},
		BlockedDomains: []string{"bit.ly", "tinyurl.com", "spamlink.biz"},
		SpamPatterns: []PatternRule{
			{ID: "buy-now", Pattern: `buy\s+now`},
			{ID: "free-money", Pattern: `free\s+money`},
			{ID: "click-here", Pattern: `click\s+here`},
		},
		SpamPhrases: []string{"limited time offer", "act now"},
		ProfanityWords: []PatternRule{
			{ID: "profanity-1", Pattern: `\bfuck\b`},
			{ID: "profanity-2", Pattern: `\b(bull)?shit\b`},
			{ID: "profanity-3", Pattern: `\bass(hole)?\b`},
		},
	}
	_ = cfg.compile()
	return cfg
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// extractURLs returns every http(s) URL substring found in text.
func extractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

var domainPattern = regexp.MustCompile(`https?://([^/\s]+)`)

func hostOf(url string) string {
	m := domainPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

// normalizeText lowercases and undoes common l33tspeak obfuscation so
// pattern matching isn't defeated by simple substitution (SPEC_FULL
// §4.8, grounded on the pack's toxicity classifier normalizer).
func normalizeText(text string) string {
	text = strings.ToLower(text)

	replacements := []struct{ old, new string }{
		{"@", "a"}, {"4", "a"}, {"3", "e"}, {"1", "i"}, {"!", "i"},
		{"0", "o"}, {"$", "s"}, {"5", "s"}, {"7", "t"}, {"+", "t"},
		{"_", ""}, {"-", ""},
	}
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r.old, r.new)
	}

	var b strings.Builder
	var last rune
	repeat := 0
	for _, c := range text {
		if c == last {
			repeat++
			if repeat < 3 {
				b.WriteRune(c)
			}
		} else {
			b.WriteRune(c)
			last = c
			repeat = 1
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
