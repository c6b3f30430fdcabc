package recipe

// Validate checks p and o against the driver's toolchain requirements:
// msvc needs the boost polyfill, C++98 is unsupported, and the std
// polyfill needs C++17. An unset cppstd passes both standard checks.
func Validate(p Platform, o Options) error {
	if !o.Polyfill.Valid() {
		return &ConfigurationError{Setting: "polyfill", Value: o.Polyfill.String(), Reason: "unknown polyfill"}
	}
	if p.Compiler == CompilerMSVC && o.Polyfill != PolyfillBoost {
		return &ConfigurationError{
			Setting: "polyfill",
			Value:   o.Polyfill.String(),
			Reason:  "for msvc, use the boost polyfill",
		}
	}
	if p.CppStd.Pre11() {
		return &ConfigurationError{
			Setting: "compiler.cppstd",
			Value:   string(p.CppStd),
			Reason:  "requires at least C++11",
		}
	}
	if o.Polyfill == PolyfillStd && p.CppStd.IsSet() && !p.CppStd.AtLeast17() {
		return &ConfigurationError{
			Setting: "compiler.cppstd",
			Value:   string(p.CppStd),
			Reason:  "std polyfill requires at least C++17",
		}
	}
	return nil
}
