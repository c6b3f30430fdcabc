package recipe

import (
	"fmt"

	"github.com/goplus/llar-mongocxx/formula"
)

func onOff(name string, v bool) string {
	if v {
		return name + "ON"
	}
	return name + "OFF"
}

// defaultBuildType stands for an unset build type in a matrix.
const defaultBuildType = "default"

func buildTypeValue(p Platform) string {
	if p.BuildType == "" {
		return defaultBuildType
	}
	return p.BuildType
}

// Variant returns the matrix point of p and o. fPIC is recorded as
// effective for p, so it is always off on windows.
func Variant(p Platform, o Options) formula.Variant {
	return formula.Variant{
		Require: map[string]string{
			"os":         p.OS,
			"arch":       p.Arch,
			"build_type": buildTypeValue(p),
			"compiler":   string(p.Compiler),
			"cppstd":     p.CppStd.String(),
		},
		Options: map[string]string{
			"shared":   onOff("shared", o.Shared),
			"fPIC":     onOff("fPIC", o.PIC(p)),
			"polyfill": o.Polyfill.String(),
		},
	}
}

// Matrix returns every option combination for p. When stds is not empty
// the cppstd axis spans those standards instead of p.CppStd. On windows
// the fPIC axis only holds fPICOFF.
func Matrix(p Platform, stds ...CppStd) formula.Matrix {
	if len(stds) == 0 {
		stds = []CppStd{p.CppStd}
	}
	stdValues := make([]string, len(stds))
	for i, s := range stds {
		stdValues[i] = s.String()
	}
	polyfills := make([]string, len(Polyfills))
	for i, pf := range Polyfills {
		polyfills[i] = pf.String()
	}
	fpic := []string{"fPICON", "fPICOFF"}
	if p.Windows() {
		fpic = []string{"fPICOFF"}
	}
	def := DefaultOptions()
	return formula.Matrix{
		Require: map[string][]string{
			"os":         {p.OS},
			"arch":       {p.Arch},
			"build_type": {buildTypeValue(p)},
			"compiler":   {string(p.Compiler)},
			"cppstd":     stdValues,
		},
		Options: map[string][]string{
			"shared":   {"sharedOFF", "sharedON"},
			"fPIC":     fpic,
			"polyfill": polyfills,
		},
		DefaultOptions: map[string][]string{
			"shared":   {onOff("shared", def.Shared)},
			"fPIC":     {onOff("fPIC", def.PIC(p))},
			"polyfill": {def.Polyfill.String()},
		},
	}
}

// FromVariant maps a matrix point back to a platform and options. The
// build type is not part of the matrix and is left empty.
func FromVariant(v formula.Variant) (Platform, Options, error) {
	var (
		p   Platform
		o   Options
		err error
	)
	p.OS, p.Arch = v.Require["os"], v.Require["arch"]
	if bt := v.Require["build_type"]; bt != defaultBuildType {
		p.BuildType = bt
	}
	if p.Compiler, err = ParseCompiler(v.Require["compiler"]); err != nil {
		return p, o, err
	}
	if std := v.Require["cppstd"]; std != "c++default" {
		if p.CppStd, err = ParseCppStd(std); err != nil {
			return p, o, err
		}
	}
	if o.Shared, err = parseOnOff("shared", v.Options["shared"]); err != nil {
		return p, o, err
	}
	if o.FPIC, err = parseOnOff("fPIC", v.Options["fPIC"]); err != nil {
		return p, o, err
	}
	o.Polyfill, err = ParsePolyfill(v.Options["polyfill"])
	return p, o, err
}

func parseOnOff(name, val string) (bool, error) {
	switch val {
	case name + "ON":
		return true, nil
	case name + "OFF":
		return false, nil
	}
	return false, fmt.Errorf("option %s: unexpected matrix value %q", name, val)
}
