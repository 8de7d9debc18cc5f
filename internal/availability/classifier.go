package availability

import (
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// Classifier decides the availability of a single page.
type Classifier interface {
	Classify(content string) State
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(content string) State

// Classify implements Classifier.
func (f ClassifierFunc) Classify(content string) State { return f(content) }

// PatternClassifier applies negative-over-positive text rules.
type PatternClassifier struct {
	positive []*regexp.Regexp
	negative []*regexp.Regexp
}

// NewPatternClassifier compiles the given rule sets.
func NewPatternClassifier(positive, negative []string) (*PatternClassifier, error) {
	pos, err := compileAll(positive)
	if err != nil {
		return nil, fmt.Errorf("positive patterns: %w", err)
	}
	neg, err := compileAll(negative)
	if err != nil {
		return nil, fmt.Errorf("negative patterns: %w", err)
	}
	return &PatternClassifier{positive: pos, negative: neg}, nil
}

// Classify returns NotAvailable on any negative match, Available on a positive
// match, and NotAvailable when the page carries neither signal.
func (c *PatternClassifier) Classify(content string) State {
	content = norm.NFC.String(content)
	if matchAny(c.negative, content) {
		return NotAvailable
	}
	if matchAny(c.positive, content) {
		return Available
	}
	return NotAvailable
}

// MarkerClassifier looks only at structured availability markers
// (schema.org availability, data attributes) and ignores button labels.
type MarkerClassifier struct {
	inStock    []*regexp.Regexp
	outOfStock []*regexp.Regexp
	fallback   State
}

// NewMarkerClassifier compiles the marker sets. An invalid fallback becomes NotAvailable.
func NewMarkerClassifier(inStock, outOfStock []string, fallback State) (*MarkerClassifier, error) {
	in, err := compileAll(inStock)
	if err != nil {
		return nil, fmt.Errorf("in-stock markers: %w", err)
	}
	out, err := compileAll(outOfStock)
	if err != nil {
		return nil, fmt.Errorf("out-of-stock markers: %w", err)
	}
	if !fallback.Valid() {
		fallback = NotAvailable
	}
	return &MarkerClassifier{inStock: in, outOfStock: out, fallback: fallback}, nil
}

// Classify gives the out-of-stock marker precedence over the in-stock one.
func (c *MarkerClassifier) Classify(content string) State {
	content = norm.NFC.String(content)
	switch {
	case matchAny(c.outOfStock, content):
		return NotAvailable
	case matchAny(c.inStock, content):
		return Available
	default:
		return c.fallback
	}
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + norm.NFC.String(p))
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(patterns []*regexp.Regexp, content string) bool {
	for _, re := range patterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}
