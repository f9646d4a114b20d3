package event

// Config is the event configuration carried by a view specification.
type Config struct {
	// Defaults controls whether the host's default action is suppressed.
	Defaults Defaults

	// Allow, when non-empty, lists the only event types that may be
	// listened to.
	Allow []Type
}

// Defaults is the prevent-default policy. Prevent and Allow each either
// apply to every type (the All flag) or to the listed types.
type Defaults struct {
	Prevent Policy
	Allow   Policy
}

// Policy is a boolean or a type list.
type Policy struct {
	// Set distinguishes an explicit policy from an absent one.
	Set   bool
	All   bool
	Types []Type
}

// PolicyAll returns a policy that applies to every type when v is true,
// and to none when false.
func PolicyAll(v bool) Policy {
	return Policy{Set: true, All: v}
}

// PolicyTypes returns a policy listing types.
func PolicyTypes(types ...Type) Policy {
	return Policy{Set: true, Types: types}
}

func (p Policy) isBool(v bool) bool {
	return p.Set && p.Types == nil && p.All == v
}

func (p Policy) has(t Type) bool {
	for _, x := range p.Types {
		if x == t {
			return true
		}
	}
	return false
}

// ShouldPrevent decides whether default actions are prevented for t.
// An explicit configuration wins; otherwise fallback, the view's own
// preventDefault setting, decides.
func (c Config) ShouldPrevent(t Type, fallback bool) bool {
	prevent, allow := c.Defaults.Prevent, c.Defaults.Allow
	switch {
	case prevent.isBool(false) || allow.isBool(true):
		return false
	case prevent.isBool(true) || allow.isBool(false):
		return true
	case prevent.Set && prevent.Types != nil:
		return prevent.has(t)
	case allow.Set && allow.Types != nil:
		return !allow.has(t)
	}
	return fallback
}

// Allowed reports whether listeners may be registered for t.
func (c Config) Allowed(t Type) bool {
	if len(c.Allow) == 0 {
		return true
	}
	for _, x := range c.Allow {
		if x == t {
			return true
		}
	}
	return false
}
