package recipe

import "strings"

// Compiler identifies the C++ toolchain.
type Compiler string

const (
	CompilerGCC        Compiler = "gcc"
	CompilerClang      Compiler = "clang"
	CompilerAppleClang Compiler = "apple-clang"
	CompilerMSVC       Compiler = "msvc"
	CompilerIntel      Compiler = "intel"
)

var compilerAliases = map[string]Compiler{
	"gcc":           CompilerGCC,
	"g++":           CompilerGCC,
	"clang":         CompilerClang,
	"clang++":       CompilerClang,
	"apple-clang":   CompilerAppleClang,
	"msvc":          CompilerMSVC,
	"visual studio": CompilerMSVC,
	"cl":            CompilerMSVC,
	"intel":         CompilerIntel,
	"icc":           CompilerIntel,
}

// ParseCompiler parses a compiler name. "Visual Studio" and "cl" are
// accepted for msvc.
func ParseCompiler(s string) (Compiler, error) {
	if c, ok := compilerAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", &ConfigurationError{
		Setting: "compiler",
		Value:   s,
		Reason:  "unknown compiler",
	}
}

// CppStd is the compiler.cppstd setting. The empty value means the
// compiler default.
type CppStd string

var cppStds = []CppStd{"98", "gnu98", "11", "gnu11", "14", "gnu14", "17", "gnu17", "20", "gnu20"}

// CppStds lists the accepted settings, oldest first.
func CppStds() []CppStd {
	out := make([]CppStd, len(cppStds))
	copy(out, cppStds)
	return out
}

// ParseCppStd parses a cppstd setting such as "17" or "gnu14". A leading
// "c++" or "gnu++" is accepted.
func ParseCppStd(s string) (CppStd, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "", nil
	}
	s = strings.Replace(s, "c++", "", 1)
	s = strings.Replace(s, "gnu++", "gnu", 1)
	for _, std := range cppStds {
		if string(std) == s {
			return std, nil
		}
	}
	return "", &ConfigurationError{
		Setting: "compiler.cppstd",
		Value:   s,
		Reason:  "unknown language standard",
	}
}

// IsSet reports whether a standard was chosen explicitly.
func (s CppStd) IsSet() bool { return s != "" }

// Pre11 reports whether s is C++98.
func (s CppStd) Pre11() bool {
	return s == "98" || s == "gnu98"
}

// AtLeast17 reports whether s is C++17 or later.
func (s CppStd) AtLeast17() bool {
	switch s {
	case "17", "gnu17", "20", "gnu20":
		return true
	}
	return false
}

// String renders s the way it appears in a matrix, e.g. "c++17".
func (s CppStd) String() string {
	switch {
	case s == "":
		return "c++default"
	case strings.HasPrefix(string(s), "gnu"):
		return "gnu++" + strings.TrimPrefix(string(s), "gnu")
	}
	return "c++" + string(s)
}

// Platform describes the target of one packaging run.
type Platform struct {
	OS        string
	Arch      string
	Compiler  Compiler
	CppStd    CppStd
	BuildType string
}

// Windows reports whether p targets windows.
func (p Platform) Windows() bool {
	return p.OS == "windows"
}
