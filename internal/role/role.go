package role

import (
	"fmt"
	"strings"
)

// Role is the behavioral identity assigned to one agent.
type Role string

const (
	Commander  Role = "commander"
	Planner    Role = "planner"
	Researcher Role = "researcher"
	Reflector  Role = "reflector"
	Content    Role = "content"
	Designer   Role = "designer"
	Engineer   Role = "engineer"
	Reviewer   Role = "reviewer"
)

var all = []Role{Commander, Planner, Researcher, Reflector, Content, Designer, Engineer, Reviewer}

// All returns the closed role set in roster order.
func All() []Role {
	out := make([]Role, len(all))
	copy(out, all)
	return out
}

// Parse maps a case-insensitive name onto a known role.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range all {
		if r == known {
			return r, nil
		}
	}
	return "", &UnknownRoleError{Role: Role(s)}
}

// Title returns the role name with its first letter upper-cased.
func (r Role) Title() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// UnknownRoleError reports a role that is outside the closed set or has
// no registered instruction template.
type UnknownRoleError struct {
	Role Role
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q: no instruction template registered", e.Role)
}

// Profile is the identity and instruction template of a role.
type Profile struct {
	Role   Role   `json:"role" yaml:"role"`
	Name   string `json:"name" yaml:"name"`
	Icon   string `json:"icon" yaml:"icon"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// Identity renders the profile as "<icon> <name> (<role>)".
func (p Profile) Identity() string {
	icon := p.Icon
	if icon == "" {
		icon = "🤖"
	}
	return fmt.Sprintf("%s %s (%s)", icon, p.Name, p.Role)
}

// Registry maps roles to their profiles. It is immutable once built.
type Registry struct {
	profiles map[Role]Profile
}

// NewRegistry copies the given profiles into a new registry. Later entries
// for the same role replace earlier ones.
func NewRegistry(profiles ...Profile) *Registry {
	m := make(map[Role]Profile, len(profiles))
	for _, p := range profiles {
		if p.Name == "" {
			p.Name = p.Role.Title() + "Agent"
		}
		m[p.Role] = p
	}
	return &Registry{profiles: m}
}

// Lookup returns the profile registered for r.
func (reg *Registry) Lookup(r Role) (Profile, error) {
	p, ok := reg.profiles[r]
	if !ok || strings.TrimSpace(p.Prompt) == "" {
		return Profile{}, &UnknownRoleError{Role: r}
	}
	return p, nil
}

// Validate checks that every role in the closed set has a template.
func (reg *Registry) Validate() error {
	for _, r := range all {
		if _, err := reg.Lookup(r); err != nil {
			return err
		}
	}
	return nil
}

// Profiles returns all registered profiles in roster order.
func (reg *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(reg.profiles))
	for _, r := range all {
		if p, ok := reg.profiles[r]; ok {
			out = append(out, p)
		}
	}
	return out
}
