package reflector

import "regexp"

// aliasPattern matches "<name> AS <alias>". The keyword is case sensitive.
var aliasPattern = regexp.MustCompile(`^(\w+) AS (\w+)`)

// SplitAlias splits a table token into its name and alias. When the token
// carries no alias it is returned unchanged with an empty alias.
func SplitAlias(token string) (name, alias string) {
	m := aliasPattern.FindStringSubmatch(token)
	if m == nil {
		return token, ""
	}
	return m[1], m[2]
}

// Resolve maps a raw table token to the base tables it reads from.
// Aliases are stripped and views listed in views expand to their base tables.
// Unknown tokens resolve to themselves.
func Resolve(token string, views map[string][]string) []string {
	name, _ := SplitAlias(token)
	if bases, ok := views[name]; ok {
		return append([]string(nil), bases...)
	}
	return []string{name}
}

// TableResolver resolves table tokens against a fixed view map.
type TableResolver struct {
	views map[string][]string
}

// NewTableResolver copies views so later changes to the caller's map are not
// observed.
func NewTableResolver(views map[string][]string) TableResolver {
	copied := make(map[string][]string, len(views))
	for view, bases := range views {
		copied[view] = append([]string(nil), bases...)
	}
	return TableResolver{views: copied}
}

// Resolve is Resolve bound to the resolver's view map.
func (r TableResolver) Resolve(token string) []string {
	return Resolve(token, r.views)
}

// IsView reports whether name is a configured view.
func (r TableResolver) IsView(name string) bool {
	_, ok := r.views[name]
	return ok
}
