package querycache

import "github.com/goliatone/go-query-cache/reflector"

// Policy decides whether an operation is worth caching.
type Policy interface {
	ShouldCache(r reflector.Reflector) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(r reflector.Reflector) bool

func (f PolicyFunc) ShouldCache(r reflector.Reflector) bool { return f(r) }

// ConfigPolicy is the default Policy built from Config.
type ConfigPolicy struct {
	active  bool
	include map[string]struct{}
	exclude map[string]struct{}
}

// NewConfigPolicy builds a ConfigPolicy from the Active, IncludeTables and
// ExcludeTables settings.
func NewConfigPolicy(cfg Config) *ConfigPolicy {
	return &ConfigPolicy{
		active:  cfg.Active,
		include: toSet(cfg.IncludeTables),
		exclude: toSet(cfg.ExcludeTables),
	}
}

// ShouldCache rejects everything when inactive, any operation touching an
// excluded table, and, with an include list, any table outside of it.
func (p *ConfigPolicy) ShouldCache(r reflector.Reflector) bool {
	if !p.active {
		return false
	}
	for _, table := range r.Tables() {
		if _, ok := p.exclude[table]; ok {
			return false
		}
		if len(p.include) > 0 {
			if _, ok := p.include[table]; !ok {
				return false
			}
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
