package formula

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/goplus/llar-mongocxx/mod/module"
)

// Matrix describes the build variants of a module. Require holds the
// platform axes (os, arch, compiler, ...), Options the package options.
type Matrix struct {
	Require        map[string][]string
	Options        map[string][]string
	DefaultOptions map[string][]string
}

// Combinations returns all cartesian product combinations of the matrix.
// Keys are sorted alphabetically, and combinations are built layer by layer.
// Require fields are joined with "-", then combined with options using "|".
func (m *Matrix) Combinations() []string {
	cartesian := func(kvs map[string][]string) []string {
		if len(kvs) == 0 {
			return nil
		}

		keys := make([]string, 0, len(kvs))
		for k := range kvs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		result := make([]string, len(kvs[keys[0]]))
		copy(result, kvs[keys[0]])

		for i := 1; i < len(keys); i++ {
			values := kvs[keys[i]]
			newResult := make([]string, 0, len(result)*len(values))
			for _, prev := range result {
				for _, v := range values {
					newResult = append(newResult, prev+"-"+v)
				}
			}
			result = newResult
		}
		return result
	}

	requireCombos := cartesian(m.Require)
	optionsCombos := cartesian(m.Options)

	if len(requireCombos) == 0 {
		return optionsCombos
	}
	if len(optionsCombos) == 0 {
		return requireCombos
	}

	result := make([]string, 0, len(requireCombos)*len(optionsCombos))
	for _, req := range requireCombos {
		for _, opt := range optionsCombos {
			result = append(result, req+"|"+opt)
		}
	}

	return result
}

// CombinationCount returns the total number of cartesian product combinations.
func (m *Matrix) CombinationCount() int {
	countPart := func(kvs map[string][]string) int {
		if len(kvs) == 0 {
			return 0
		}
		count := 1
		for _, v := range kvs {
			count *= len(v)
		}
		return count
	}

	requireCount := countPart(m.Require)
	optionsCount := countPart(m.Options)

	if requireCount == 0 {
		return optionsCount
	}
	if optionsCount == 0 {
		return requireCount
	}
	return requireCount * optionsCount
}

// String returns the combination string of a matrix that pins every axis
// to one value. For a wider matrix it is the first combination.
func (m *Matrix) String() string {
	if combos := m.Combinations(); len(combos) > 0 {
		return combos[0]
	}
	return ""
}

// Variant is one point of a Matrix: one value per axis.
type Variant struct {
	Require map[string]string
	Options map[string]string
}

// String returns the same combination string Matrix.Combinations uses.
func (v Variant) String() string {
	join := func(kv map[string]string) string {
		vals := make([]string, 0, len(kv))
		for _, k := range slices.Sorted(maps.Keys(kv)) {
			vals = append(vals, kv[k])
		}
		return strings.Join(vals, "-")
	}
	req, opt := join(v.Require), join(v.Options)
	switch {
	case req == "":
		return opt
	case opt == "":
		return req
	}
	return req + "|" + opt
}

// Matrix returns the single-valued matrix of v.
func (v Variant) Matrix() Matrix {
	lift := func(kv map[string]string) map[string][]string {
		if len(kv) == 0 {
			return nil
		}
		out := make(map[string][]string, len(kv))
		for k, val := range kv {
			out[k] = []string{val}
		}
		return out
	}
	return Matrix{Require: lift(v.Require), Options: lift(v.Options)}
}

// Variants expands the matrix like Combinations, keeping the axis names.
// Variants()[i].String() == Combinations()[i].
func (m *Matrix) Variants() []Variant {
	expand := func(kvs map[string][]string) []map[string]string {
		if len(kvs) == 0 {
			return nil
		}
		result := []map[string]string{{}}
		for _, k := range slices.Sorted(maps.Keys(kvs)) {
			next := make([]map[string]string, 0, len(result)*len(kvs[k]))
			for _, prev := range result {
				for _, val := range kvs[k] {
					cur := maps.Clone(prev)
					cur[k] = val
					next = append(next, cur)
				}
			}
			result = next
		}
		return result
	}

	reqs, opts := expand(m.Require), expand(m.Options)
	switch {
	case len(reqs) == 0 && len(opts) == 0:
		return nil
	case len(reqs) == 0:
		reqs = []map[string]string{nil}
	case len(opts) == 0:
		opts = []map[string]string{nil}
	}

	out := make([]Variant, 0, len(reqs)*len(opts))
	for _, r := range reqs {
		for _, o := range opts {
			out = append(out, Variant{Require: r, Options: o})
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// ModuleDeps represents the dependencies of a module.
type ModuleDeps struct {
	deps []module.Version
}

// Deps returns the collected module dependencies.
func (p *ModuleDeps) Deps() []module.Version {
	return slices.Clone(p.deps)
}

// Require declares that the module being built depends on the specified
// module (by its path and version).
func (p *ModuleDeps) Require(path, ver string) {
	p.deps = append(p.deps, module.Version{Path: path, Version: ver})
}

// -----------------------------------------------------------------------------

// BuildResult represents the result of building a project.
type BuildResult struct {
	errs     []error
	metadata string // build output metadata, for C/C++ it's the result of pkg-config.
}

// AddErr records a build error.
func (b *BuildResult) AddErr(err error) {
	b.errs = append(b.errs, err)
}

// Errs returns all errors collected during build.
func (b *BuildResult) Errs() []error {
	return b.errs
}

// Metadata returns the build output metadata.
func (b *BuildResult) Metadata() string {
	return b.metadata
}

// SetMetadata sets the build output metadata.
func (b *BuildResult) SetMetadata(metadata string) {
	b.metadata = metadata
}
