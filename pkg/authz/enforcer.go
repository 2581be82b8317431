package authz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Decision reasons.
const (
	ReasonGranted               = "granted"
	ReasonPublic                = "public"
	ReasonNoMatchingRule        = "no_matching_rule"
	ReasonUnauthenticated       = "unauthenticated"
	ReasonInsufficientAuthority = "insufficient_authority"
	ReasonConfined              = "confined"
)

// AnyAction matches every action in a rule.
const AnyAction = "*"

// Decision is the outcome of one authorization check.
type Decision struct {
	Allow  bool
	Reason string

	// Rule is the resource pattern that decided, empty when none did.
	Rule string
}

// Rule grants the listed actions on resources matching Resource to anyone
// holding one of Authorities. No authorities makes the rule public.
type Rule struct {
	Resource    string   `yaml:"resource" json:"resource"`
	Actions     []string `yaml:"actions" json:"actions"`
	Authorities []string `yaml:"authorities" json:"authorities"`
}

// Confinement limits holders of Authority to the listed resource patterns,
// whatever else they hold.
type Confinement struct {
	Authority string   `yaml:"authority" json:"authority"`
	Resources []string `yaml:"resources" json:"resources"`
}

// Policy is the full rule table. Rules are evaluated in order.
type Policy struct {
	Rules        []Rule        `yaml:"rules" json:"rules"`
	Confinements []Confinement `yaml:"confinements" json:"confinements"`
}

type compiledRule struct {
	Rule
	match   glob.Glob
	actions map[string]struct{}
}

type compiledConfinement struct {
	authority string
	allowed   []glob.Glob
}

// Enforcer evaluates a compiled Policy. It holds no mutable state and is
// safe for concurrent use.
type Enforcer struct {
	rules        []compiledRule
	confinements []compiledConfinement
}

// NewEnforcer compiles the policy's patterns up front so a bad pattern
// fails at startup rather than on a request.
func NewEnforcer(p Policy) (*Enforcer, error) {
	e := &Enforcer{}

	for i, r := range p.Rules {
		if r.Resource == "" {
			return nil, fmt.Errorf("authz: rule %d has no resource", i)
		}
		if len(r.Actions) == 0 {
			return nil, fmt.Errorf("authz: rule %d (%s) has no actions", i, r.Resource)
		}
		g, err := compilePattern(r.Resource)
		if err != nil {
			return nil, fmt.Errorf("authz: rule %d: %w", i, err)
		}
		actions := make(map[string]struct{}, len(r.Actions))
		for _, a := range r.Actions {
			actions[strings.ToUpper(strings.TrimSpace(a))] = struct{}{}
		}
		e.rules = append(e.rules, compiledRule{Rule: r, match: g, actions: actions})
	}

	for _, c := range p.Confinements {
		if c.Authority == "" {
			return nil, errors.New("authz: confinement has no authority")
		}
		cc := compiledConfinement{authority: c.Authority}
		for _, res := range c.Resources {
			g, err := compilePattern(res)
			if err != nil {
				return nil, fmt.Errorf("authz: confinement %s: %w", c.Authority, err)
			}
			cc.allowed = append(cc.allowed, g)
		}
		e.confinements = append(e.confinements, cc)
	}

	return e, nil
}

// Authorize decides whether id may perform action on resource. A nil id is
// an anonymous caller. Anything not explicitly allowed is denied.
//
// A public rule allows everyone, confined identities included. Otherwise
// confinements are checked before the rule's authorities.
func (e *Enforcer) Authorize(id *Identity, resource, action string) Decision {
	r, ok := e.match(resource, action)
	if ok && len(r.Authorities) == 0 {
		return Decision{Allow: true, Reason: ReasonPublic, Rule: r.Resource}
	}

	if !id.Anonymous() {
		for _, c := range e.confinements {
			if id.HasAuthority(c.authority) && !matchesAny(c.allowed, resource) {
				return Decision{Allow: false, Reason: ReasonConfined}
			}
		}
	}

	switch {
	case !ok:
		return Decision{Allow: false, Reason: ReasonNoMatchingRule}
	case id.Anonymous():
		return Decision{Allow: false, Reason: ReasonUnauthenticated, Rule: r.Resource}
	case id.HasAny(r.Authorities):
		return Decision{Allow: true, Reason: ReasonGranted, Rule: r.Resource}
	default:
		return Decision{Allow: false, Reason: ReasonInsufficientAuthority, Rule: r.Resource}
	}
}

func (e *Enforcer) match(resource, action string) (compiledRule, bool) {
	action = strings.ToUpper(action)
	for _, r := range e.rules {
		if !r.match.Match(resource) {
			continue
		}
		if _, ok := r.actions[action]; ok {
			return r, true
		}
		if _, ok := r.actions[AnyAction]; ok {
			return r, true
		}
	}
	return compiledRule{}, false
}

// compilePattern compiles a path glob with '/' as the separator. A trailing
// "/**" also matches the bare prefix, so "/api/users/**" covers "/api/users".
func compilePattern(p string) (glob.Glob, error) {
	expr := p
	if prefix, ok := strings.CutSuffix(p, "/**"); ok && prefix != "" {
		expr = "{" + prefix + "," + p + "}"
	}
	g, err := glob.Compile(expr, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
	}
	return g, nil
}

func matchesAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}
