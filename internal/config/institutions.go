package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

// Mode selects the history window of a recompute.
type Mode string

const (
	// ModePreview is the fast computation run right after an account is linked.
	ModePreview Mode = "preview"
	// ModeBackfill is the authoritative full-history computation.
	ModeBackfill Mode = "backfill"
)

// ParseMode maps a string onto a Mode. Empty means backfill.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBackfill:
		return ModeBackfill, nil
	case ModePreview:
		return ModePreview, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// DefaultRequestWindowDays bounds the date span of a single upstream
// transaction request.
const DefaultRequestWindowDays = 90

// Policy is the per-institution behaviour of the cycle engine.
type Policy struct {
	PreviewLookbackMonths  int
	BackfillLookbackMonths int
	// CycleLengthDays overrides the estimated statement period when positive.
	CycleLengthDays   int
	BackoffBase       time.Duration
	RequestWindowDays int
}

// LookbackMonths returns the history window for a mode.
func (p Policy) LookbackMonths(mode Mode) int {
	if mode == ModePreview {
		return p.PreviewLookbackMonths
	}
	return p.BackfillLookbackMonths
}

// Override is one entry of the `institutions` config map.
type Override struct {
	LookbackMonths    int           `mapstructure:"lookback_months"`
	CycleLengthDays   int           `mapstructure:"cycle_length_days"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	RequestWindowDays int           `mapstructure:"request_window_days"`
}

// Institutions whose upstream rate-limits historical queries; they use the
// short window for preview and backfill alike.
var shortWindowInstitutions = map[string]Override{
	"ins_capital_one": {LookbackMonths: 3, BackoffBase: 5 * time.Second, RequestWindowDays: 30},
	"ins_discover":    {LookbackMonths: 3, BackoffBase: 5 * time.Second, RequestWindowDays: 30},
	"ins_amex":        {LookbackMonths: 3, RequestWindowDays: 31},
}

// PolicyTable maps normalised institution keys to policies.
type PolicyTable struct {
	defaults Policy
	policies map[string]Policy
}

// NewPolicyTable builds a table from explicit overrides on top of defaults.
func NewPolicyTable(defaults Policy, overrides map[string]Override) *PolicyTable {
	t := &PolicyTable{defaults: defaults, policies: make(map[string]Policy, len(overrides))}
	for key, o := range overrides {
		t.policies[NormalizeInstitutionKey(key)] = defaults.apply(o)
	}
	return t
}

// DefaultPolicyTable returns the built-in table.
func DefaultPolicyTable(defaults Policy) *PolicyTable {
	return NewPolicyTable(defaults, shortWindowInstitutions)
}

// LoadPolicyTable merges the `institutions` config map over the built-in table.
func LoadPolicyTable(v *viper.Viper, defaults Policy) (*PolicyTable, error) {
	overrides := make(map[string]Override, len(shortWindowInstitutions))
	for k, o := range shortWindowInstitutions {
		overrides[k] = o
	}

	var configured map[string]Override
	if err := v.UnmarshalKey("institutions", &configured); err != nil {
		return nil, fmt.Errorf("parsing institutions: %w", err)
	}
	for k, o := range configured {
		if o.LookbackMonths < 0 || o.CycleLengthDays < 0 || o.RequestWindowDays < 0 {
			return nil, fmt.Errorf("institution %q: negative value", k)
		}
		overrides[NormalizeInstitutionKey(k)] = o
	}

	return NewPolicyTable(defaults, overrides), nil
}

func (p Policy) apply(o Override) Policy {
	out := p
	if o.LookbackMonths > 0 {
		out.PreviewLookbackMonths = o.LookbackMonths
		out.BackfillLookbackMonths = o.LookbackMonths
	}
	if o.CycleLengthDays > 0 {
		out.CycleLengthDays = o.CycleLengthDays
	}
	if o.BackoffBase > 0 {
		out.BackoffBase = o.BackoffBase
	}
	if o.RequestWindowDays > 0 {
		out.RequestWindowDays = o.RequestWindowDays
	}
	return out
}

// Lookup returns the policy for an institution, or the default policy.
func (t *PolicyTable) Lookup(institutionID string) Policy {
	if p, ok := t.policies[NormalizeInstitutionKey(institutionID)]; ok {
		return p
	}
	return t.defaults
}

// Default returns the policy for unrecognised institutions.
func (t *PolicyTable) Default() Policy {
	return t.defaults
}

// NormalizeInstitutionKey lower-cases and trims the key and folds runs of
// non-alphanumerics to a single underscore.
func NormalizeInstitutionKey(key string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
