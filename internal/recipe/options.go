package recipe

// Options are the package options of the recipe.
type Options struct {
	Shared   bool
	FPIC     bool
	Polyfill Polyfill
}

// DefaultOptions returns static linkage, fPIC on and the boost polyfill.
func DefaultOptions() Options {
	return Options{
		Shared:   false,
		FPIC:     true,
		Polyfill: PolyfillBoost,
	}
}

// PIC reports whether position independent code is requested for p.
// fPIC has no meaning on windows.
func (o Options) PIC(p Platform) bool {
	return o.FPIC && !p.Windows()
}
