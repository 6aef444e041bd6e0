package editable

import (
	"regexp"
	"sync"

	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/metrics"
	"github.com/rasto/lcmc-sub002/pkg/types"
	"github.com/rs/zerolog"
)

// ParamSpec describes one editable parameter
type ParamSpec struct {
	Name     string
	Default  string
	Regexp   *regexp.Regexp // nil accepts any value
	Required bool
}

// Source holds the current and the committed parameter values
type Source interface {
	HasValue(param string) bool
	Value(param string) string
	SetValue(param, value string)
	SavedValue(param string) (string, bool)
	StoreValue(param, value string)
}

// Checker supplies domain-specific validation
type Checker interface {
	CheckParam(param, value string) bool
	// IsEnabled returns "" for an enabled parameter and the reason it is
	// disabled otherwise.
	IsEnabled(param string) string
}

// Checks adapts plain functions to Checker. Nil functions accept every
// value and enable every parameter.
type Checks struct {
	Check   func(param, value string) bool
	Enabled func(param string) string
}

func (c Checks) CheckParam(param, value string) bool {
	if c.Check == nil {
		return true
	}
	return c.Check(param, value)
}

func (c Checks) IsEnabled(param string) string {
	if c.Enabled == nil {
		return ""
	}
	return c.Enabled(param)
}

// ButtonState is the enablement of the apply and revert actions
type ButtonState struct {
	Apply  bool
	Revert bool
}

// Tracker validates parameter values and detects unsaved edits
type Tracker struct {
	mu      sync.Mutex
	source  Source
	checker Checker
	isNew   func() bool
	specs   map[string]ParamSpec
	order   []string

	correct  map[string]bool // cached verdict per parameter
	wrong    map[string]bool
	disabled map[string]string

	logger zerolog.Logger
}

// NewTracker creates a tracker for the given parameters. isNew may be nil.
func NewTracker(source Source, specs []ParamSpec, checker Checker, isNew func() bool) *Tracker {
	if checker == nil {
		checker = Checks{}
	}
	if isNew == nil {
		isNew = func() bool { return false }
	}
	t := &Tracker{
		source:   source,
		checker:  checker,
		isNew:    isNew,
		specs:    make(map[string]ParamSpec, len(specs)),
		correct:  make(map[string]bool),
		wrong:    make(map[string]bool),
		disabled: make(map[string]string),
		logger:   log.WithComponent("editable"),
	}
	for _, s := range specs {
		t.specs[s.Name] = s
		t.order = append(t.order, s.Name)
		if !source.HasValue(s.Name) {
			source.SetValue(s.Name, t.SavedOrDefault(s.Name))
		}
	}
	return t
}

// ForResource creates a tracker over the parameters of r
func ForResource(r *types.Resource, specs []ParamSpec, checker Checker) *Tracker {
	t := NewTracker(r, specs, checker, func() bool { return r.IsNew })
	t.logger = t.logger.With().Str("resource_id", r.ID).Logger()
	return t
}

// Params returns the parameter names in declaration order
func (t *Tracker) Params() []string {
	return append([]string(nil), t.order...)
}

// Default returns the default value of param
func (t *Tracker) Default(param string) string {
	return t.specs[param].Default
}

// SavedOrDefault returns the committed value of param, or its default when
// nothing was committed yet.
func (t *Tracker) SavedOrDefault(param string) string {
	if v, ok := t.source.SavedValue(param); ok {
		return v
	}
	return t.Default(param)
}

// CheckFieldsCorrect reports whether every parameter in params holds a
// valid value. Verdicts are cached per parameter; with a non-empty
// changedParam only that parameter and parameters without a verdict are
// validated again. Disabled parameters are validated like enabled ones.
func (t *Tracker) CheckFieldsCorrect(changedParam string, params []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := true
	for _, param := range params {
		verdict, cached := t.correct[param]
		if changedParam == "" || changedParam == param || !cached {
			verdict = t.validate(param)
			t.correct[param] = verdict
		}
		if !verdict {
			all = false
		}
	}
	return all
}

func (t *Tracker) validate(param string) bool {
	value := t.source.Value(param)

	if reason := t.checker.IsEnabled(param); reason != "" {
		t.disabled[param] = reason
	} else {
		delete(t.disabled, param)
	}

	ok := t.checker.CheckParam(param, value) && t.matchesRegexp(param, value)
	t.wrong[param] = !ok
	if !ok {
		metrics.ValidationFailures.Inc()
		t.logger.Debug().Str("param", param).Str("value", value).Msg("wrong value")
	}
	return ok
}

func (t *Tracker) matchesRegexp(param, value string) bool {
	spec, ok := t.specs[param]
	if !ok {
		return true
	}
	if spec.Required && value == "" {
		return false
	}
	if spec.Regexp == nil || value == "" {
		return true
	}
	return spec.Regexp.MatchString(value)
}

// CheckFieldsChanged reports whether any parameter in params differs from
// its committed value. It is never cached.
func (t *Tracker) CheckFieldsChanged(changedParam string, params []string) bool {
	changed := false
	for _, param := range params {
		if t.source.Value(param) != t.SavedOrDefault(param) {
			changed = true
		}
	}
	return changed
}

// SetApplyButtons recomputes the apply and revert enablement. Apply is
// enabled for correct values that were changed, or for any correct new
// resource.
func (t *Tracker) SetApplyButtons(changedParam string, params []string) ButtonState {
	correct := t.CheckFieldsCorrect(changedParam, params)
	changed := t.CheckFieldsChanged(changedParam, params)
	return ButtonState{
		Apply:  correct && (changed || t.isNew()),
		Revert: changed,
	}
}

// WrongValue reports whether param failed its last validation
func (t *Tracker) WrongValue(param string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wrong[param]
}

// DisabledReason returns why param is disabled, or ""
func (t *Tracker) DisabledReason(param string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disabled[param]
}

// Revert resets every parameter to its committed value and drops the
// cached verdicts.
func (t *Tracker) Revert() {
	for _, param := range t.order {
		t.source.SetValue(param, t.SavedOrDefault(param))
	}
	t.invalidate()
}

// Store records the current values as the committed baseline
func (t *Tracker) Store() {
	for _, param := range t.order {
		t.source.StoreValue(param, t.source.Value(param))
	}
}

func (t *Tracker) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.correct = make(map[string]bool)
	t.wrong = make(map[string]bool)
}

// NonDefault returns the parameters whose current value differs from the
// default, skipping the names in skip.
func (t *Tracker) NonDefault(skip ...string) map[string]string {
	specs := make([]ParamSpec, 0, len(t.order))
	for _, param := range t.order {
		specs = append(specs, t.specs[param])
	}
	return NonDefault(t.source, specs, skip...)
}

// NonDefault is Tracker.NonDefault without a tracker: source is only
// read. A parameter with no current value counts as its committed value,
// or its default when nothing was committed.
func NonDefault(source Source, specs []ParamSpec, skip ...string) map[string]string {
	out := make(map[string]string)
outer:
	for _, spec := range specs {
		for _, s := range skip {
			if s == spec.Name {
				continue outer
			}
		}
		v, ok := source.SavedValue(spec.Name)
		if source.HasValue(spec.Name) {
			v = source.Value(spec.Name)
		} else if !ok {
			v = spec.Default
		}
		if v != spec.Default {
			out[spec.Name] = v
		}
	}
	return out
}
