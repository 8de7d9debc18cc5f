package availability

import (
	"net/url"
	"strings"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

// GenericRuleSet is the rule set name reported when no host rule matched.
const GenericRuleSet = "generic"

type hostRoute struct {
	match      string
	classifier Classifier
}

// Router picks the classifier for a target by its host.
type Router struct {
	generic Classifier
	hosts   []hostRoute
}

// NewRouter creates a router that falls back to generic.
func NewRouter(generic Classifier) *Router {
	return &Router{generic: generic}
}

// WithHost registers an override. The first registered match wins.
func (r *Router) WithHost(match string, c Classifier) *Router {
	r.hosts = append(r.hosts, hostRoute{match: normalizeHost(match), classifier: c})
	return r
}

// For returns the classifier for target and the name of its rule set.
func (r *Router) For(target string) (Classifier, string) {
	host := targetHost(target)
	if host != "" {
		for _, h := range r.hosts {
			if host == h.match || strings.HasSuffix(host, "."+h.match) {
				return h.classifier, h.match
			}
		}
	}
	return r.generic, GenericRuleSet
}

// ClassifyTarget classifies content fetched from target.
func (r *Router) ClassifyTarget(target, content string) State {
	c, _ := r.For(target)
	return c.Classify(content)
}

// NewRouterFromConfig compiles the generic and per-host rule sets.
func NewRouterFromConfig(cfg *config.Config) (*Router, error) {
	generic, err := NewPatternClassifier(cfg.Rules.Positive, cfg.Rules.Negative)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "compile generic rules").Fatal().Build()
	}
	r := NewRouter(generic)
	for _, h := range cfg.Hosts {
		var c Classifier
		switch h.Strategy {
		case config.HostStrategyMarkers:
			fallback := NotAvailable
			if s, ok := ParseState(h.Default); ok {
				fallback = s
			}
			c, err = NewMarkerClassifier(h.InStock, h.OutOfStock, fallback)
		default:
			c, err = NewPatternClassifier(h.Positive, h.Negative)
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "compile host rules").
				Fatal().WithContext("host", h.Match).Build()
		}
		r.WithHost(h.Match, c)
	}
	return r, nil
}

func targetHost(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}
