package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

func genericClassifier(t *testing.T) *PatternClassifier {
	t.Helper()
	c, err := NewPatternClassifier(config.DefaultPositivePatterns, config.DefaultNegativePatterns)
	require.NoError(t, err)
	return c
}

func TestPatternClassifier(t *testing.T) {
	c := genericClassifier(t)

	tests := []struct {
		name    string
		content string
		want    State
	}{
		{"add to cart", `<button class="btn">Přidat do košíku</button>`, Available},
		{"buy now", `<a href="/cart">Koupit</a>`, Available},
		{"case insensitive with diacritics", `<button>PŘIDAT DO KOŠÍKU</button>`, Available},
		{"decomposed diacritics", "<button>Do kos\u030ci\u0301ku</button>", Available},
		{"structured in-stock marker", `<link itemprop="availability" href="https://schema.org/InStock">`, Available},
		{"negative overrides positive", `<p>Položka byla vyprodána</p><button>Do košíku</button>`, NotAvailable},
		{"pre-order banner", `<span>Dostupnost:   Objednáno</span><button>Koupit</button>`, NotAvailable},
		{"notify me prompt", `<button>Hlídat</button> <a>Koupit</a>`, NotAvailable},
		{"no signal fails closed", `<html><body>Ascended Heroes ETB</body></html>`, NotAvailable},
		{"empty page", ``, NotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.content))
		})
	}
}

func TestPatternClassifier_InvalidPattern(t *testing.T) {
	_, err := NewPatternClassifier([]string{"(open"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive patterns")
}

func TestMarkerClassifier(t *testing.T) {
	c, err := NewMarkerClassifier([]string{`schema\.org/InStock`}, []string{`schema\.org/OutOfStock`}, NotAvailable)
	require.NoError(t, err)

	t.Run("out-of-stock marker beats generic positive text", func(t *testing.T) {
		page := `<meta itemprop="availability" content="https://schema.org/OutOfStock"><button>Do košíku</button>`
		assert.Equal(t, NotAvailable, c.Classify(page))
	})
	t.Run("in-stock marker", func(t *testing.T) {
		assert.Equal(t, Available, c.Classify(`{"availability":"http://schema.org/InStock"}`))
	})
	t.Run("both markers prefer out of stock", func(t *testing.T) {
		assert.Equal(t, NotAvailable, c.Classify(`schema.org/InStock schema.org/OutOfStock`))
	})
	t.Run("no marker uses conservative default", func(t *testing.T) {
		assert.Equal(t, NotAvailable, c.Classify(`<button>Koupit</button>`))
	})

	optimistic, err := NewMarkerClassifier([]string{"in"}, nil, Available)
	require.NoError(t, err)
	assert.Equal(t, Available, optimistic.Classify("nothing here"))

	invalidFallback, err := NewMarkerClassifier([]string{"in"}, nil, State("maybe"))
	require.NoError(t, err)
	assert.Equal(t, NotAvailable, invalidFallback.Classify("nothing here"))
}

func TestRouter_HostMatching(t *testing.T) {
	generic := ClassifierFunc(func(string) State { return Available })
	special := ClassifierFunc(func(string) State { return NotAvailable })
	r := NewRouter(generic).WithHost("kuma.cz", special)

	tests := []struct {
		target  string
		ruleSet string
	}{
		{"https://www.kuma.cz/etb/", "kuma.cz"},
		{"https://kuma.cz/etb/", "kuma.cz"},
		{"https://shop.KUMA.cz/etb/", "kuma.cz"},
		{"https://notkuma.cz/etb/", GenericRuleSet},
		{"https://www.xzone.cz/bundle", GenericRuleSet},
		{"::not a url", GenericRuleSet},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			_, name := r.For(tt.target)
			assert.Equal(t, tt.ruleSet, name)
		})
	}
	assert.Equal(t, NotAvailable, r.ClassifyTarget("https://www.kuma.cz/x", "anything"))
	assert.Equal(t, Available, r.ClassifyTarget("https://www.xzone.cz/x", "anything"))
}

func TestNewRouterFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
targets:
  - url: https://www.kuma.cz/etb/
  - url: https://www.pokemall.cz/etb/
hosts:
  - match: kuma.cz
    strategy: markers
    in_stock: ['schema\.org/InStock']
    out_of_stock: ['schema\.org/OutOfStock']
  - match: pokemall.cz
    strategy: patterns
    positive: ['Skladem']
`))
	require.NoError(t, err)

	r, err := NewRouterFromConfig(cfg)
	require.NoError(t, err)

	page := `<div itemprop="availability" content="https://schema.org/OutOfStock"></div><button>Do košíku</button>`
	assert.Equal(t, NotAvailable, r.ClassifyTarget("https://www.kuma.cz/etb/", page))
	assert.Equal(t, Available, r.ClassifyTarget("https://www.cardsnation.cz/etb/", page), "generic rules see the add-to-cart label")
	assert.Equal(t, Available, r.ClassifyTarget("https://www.pokemall.cz/etb/", "Skladem 3 ks"))
	assert.Equal(t, NotAvailable, r.ClassifyTarget("https://www.pokemall.cz/etb/", "Do košíku"))
}

func TestNewRouterFromConfig_BadPattern(t *testing.T) {
	cfg := &config.Config{Rules: config.RuleSet{Positive: []string{"[a-"}}}
	_, err := NewRouterFromConfig(cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestObservedLabels(t *testing.T) {
	assert.Equal(t, Unknown, Label(NeverSeen()))
	assert.Equal(t, "available", Label(Seen(Available)))
	assert.True(t, WasAvailable(Seen(Available)))
	assert.False(t, WasAvailable(Seen(NotAvailable)))
	assert.False(t, WasAvailable(NeverSeen()))

	s, ok := ParseState("not_available")
	assert.True(t, ok)
	assert.Equal(t, NotAvailable, s)
	_, ok = ParseState(Unknown)
	assert.False(t, ok)
}
