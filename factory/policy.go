/*
Package factory provides JSON/YAML to Go break-policy conversion.

PURPOSE:
  Converts policy documents into engine.BreakPolicy values. This enables
  policy configuration without code changes - admins can keep the system
  policy in a config file, and the factory creates the proper Go structs.

WHY DOCUMENTS?
  - Non-developers can modify the policy
  - Version control for policy definitions
  - The same schema feeds the settings API and the config file

DOCUMENT SCHEMA (YAML shown; JSON is the same shape):
  arbzg_enabled: true
  strategy: lunch_priority          # lunch_priority | end_of_day | distributed
  lunch_window:
    start: "11:30"
    end: "14:00"
  prefer_consolidated: false
  min_break_minutes: 15
  max_breaks_per_day: 3
  break_spacing_minutes: 120
  exclude_breaks_from_billing: true

KEY FEATURES:
  - Omitted fields fall back to the built-in defaults
  - Out-of-range values are clamped, reported via ClampNotes
  - Unknown strategies fall back rather than fail

USAGE:
  f := factory.NewPolicyFactory()
  pol, notes, err := f.LoadFile("policy.yaml")
  for _, n := range notes {
      log.Printf("policy adjusted: %s", n)
  }
  store.SaveSystemPolicy(ctx, pol)

SEE ALSO:
  - engine/policy.go: BreakPolicy, defaults and clamping bounds
  - cmd/server/main.go: Seeds the system policy from a file at startup
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/warp/attendance-engine/engine"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// PolicyDocument is the file representation of a break policy. Every field
// is optional; absent fields take the built-in default.
type PolicyDocument struct {
	ArbzgEnabled        *bool           `json:"arbzg_enabled,omitempty" yaml:"arbzg_enabled,omitempty"`
	Strategy            *string         `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	LunchWindow         *WindowDocument `json:"lunch_window,omitempty" yaml:"lunch_window,omitempty"`
	PreferConsolidated  *bool           `json:"prefer_consolidated,omitempty" yaml:"prefer_consolidated,omitempty"`
	MinBreakMinutes     *int            `json:"min_break_minutes,omitempty" yaml:"min_break_minutes,omitempty"`
	MaxBreaksPerDay     *int            `json:"max_breaks_per_day,omitempty" yaml:"max_breaks_per_day,omitempty"`
	BreakSpacingMinutes *int            `json:"break_spacing_minutes,omitempty" yaml:"break_spacing_minutes,omitempty"`
	ExcludeFromBilling  *bool           `json:"exclude_breaks_from_billing,omitempty" yaml:"exclude_breaks_from_billing,omitempty"`
}

// WindowDocument holds the lunch window as "HH:MM" clock strings.
type WindowDocument struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts policy documents to engine structs.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// LoadFile reads a policy document from path. Files ending in .json are
// parsed as JSON, everything else as YAML.
func (f *PolicyFactory) LoadFile(path string) (engine.BreakPolicy, []engine.ClampNote, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return engine.BreakPolicy{}, nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	if filepath.Ext(path) == ".json" {
		return f.ParseJSON(raw)
	}
	return f.ParseYAML(raw)
}

// ParseJSON parses a JSON policy document.
func (f *PolicyFactory) ParseJSON(raw []byte) (engine.BreakPolicy, []engine.ClampNote, error) {
	var doc PolicyDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return engine.BreakPolicy{}, nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromDocument(doc)
}

// ParseYAML parses a YAML policy document.
func (f *PolicyFactory) ParseYAML(raw []byte) (engine.BreakPolicy, []engine.ClampNote, error) {
	var doc PolicyDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return engine.BreakPolicy{}, nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	return f.FromDocument(doc)
}

// FromDocument converts a PolicyDocument to a complete BreakPolicy. Absent
// fields come from engine.DefaultPolicy; present ones are clamped by the
// same rules the settings API applies.
func (f *PolicyFactory) FromDocument(doc PolicyDocument) (engine.BreakPolicy, []engine.ClampNote, error) {
	override, err := f.ToOverride(doc)
	if err != nil {
		return engine.BreakPolicy{}, nil, err
	}
	base := engine.DefaultPolicy()
	return engine.ResolvePolicy(override, &base)
}

// ToOverride converts a document to the sparse override form used for
// per-user policies. Only fields present in the document are set.
func (f *PolicyFactory) ToOverride(doc PolicyDocument) (*engine.PolicyOverride, error) {
	ov := &engine.PolicyOverride{
		ArbzgEnabled:        doc.ArbzgEnabled,
		PreferConsolidated:  doc.PreferConsolidated,
		MinBreakMinutes:     doc.MinBreakMinutes,
		MaxBreaksPerDay:     doc.MaxBreaksPerDay,
		BreakSpacingMinutes: doc.BreakSpacingMinutes,
		ExcludeFromBilling:  doc.ExcludeFromBilling,
	}
	if doc.Strategy != nil {
		st := engine.Strategy(*doc.Strategy)
		ov.Strategy = &st
	}
	if doc.LunchWindow != nil {
		win, err := parseWindow(*doc.LunchWindow)
		if err != nil {
			return nil, err
		}
		ov.Lunch = win
	}
	return ov, nil
}

// ToDocument converts a BreakPolicy back to its document form, e.g. for the
// settings API response.
func (f *PolicyFactory) ToDocument(pol engine.BreakPolicy) PolicyDocument {
	strategy := string(pol.Strategy)
	start := fmt.Sprintf("%02d:%02d", pol.Lunch.StartHour, pol.Lunch.StartMinute)
	end := fmt.Sprintf("%02d:%02d", pol.Lunch.EndHour, pol.Lunch.EndMinute)
	return PolicyDocument{
		ArbzgEnabled:        &pol.ArbzgEnabled,
		Strategy:            &strategy,
		LunchWindow:         &WindowDocument{Start: start, End: end},
		PreferConsolidated:  &pol.PreferConsolidated,
		MinBreakMinutes:     &pol.MinBreakMinutes,
		MaxBreaksPerDay:     &pol.MaxBreaksPerDay,
		BreakSpacingMinutes: &pol.BreakSpacingMinutes,
		ExcludeFromBilling:  &pol.ExcludeFromBilling,
	}
}

// OverrideToDocument renders a sparse override back to document form.
// Absent fields stay absent.
func (f *PolicyFactory) OverrideToDocument(ov engine.PolicyOverride) PolicyDocument {
	doc := PolicyDocument{
		ArbzgEnabled:        ov.ArbzgEnabled,
		PreferConsolidated:  ov.PreferConsolidated,
		MinBreakMinutes:     ov.MinBreakMinutes,
		MaxBreaksPerDay:     ov.MaxBreaksPerDay,
		BreakSpacingMinutes: ov.BreakSpacingMinutes,
		ExcludeFromBilling:  ov.ExcludeFromBilling,
	}
	if ov.Strategy != nil {
		s := string(*ov.Strategy)
		doc.Strategy = &s
	}
	if ov.Lunch != nil {
		doc.LunchWindow = &WindowDocument{
			Start: fmt.Sprintf("%02d:%02d", ov.Lunch.StartHour, ov.Lunch.StartMinute),
			End:   fmt.Sprintf("%02d:%02d", ov.Lunch.EndHour, ov.Lunch.EndMinute),
		}
	}
	return doc
}

// parseWindow parses "HH:MM" clock strings into a LunchWindow.
func parseWindow(doc WindowDocument) (*engine.LunchWindow, error) {
	var win engine.LunchWindow
	if _, err := fmt.Sscanf(doc.Start, "%d:%d", &win.StartHour, &win.StartMinute); err != nil {
		return nil, fmt.Errorf("invalid lunch window start %q: %w", doc.Start, err)
	}
	if _, err := fmt.Sscanf(doc.End, "%d:%d", &win.EndHour, &win.EndMinute); err != nil {
		return nil, fmt.Errorf("invalid lunch window end %q: %w", doc.End, err)
	}
	if win.StartHour < 0 || win.StartHour > 23 || win.EndHour < 0 || win.EndHour > 23 ||
		win.StartMinute < 0 || win.StartMinute > 59 || win.EndMinute < 0 || win.EndMinute > 59 {
		return nil, fmt.Errorf("lunch window out of range: %s-%s", doc.Start, doc.End)
	}
	return &win, nil
}
