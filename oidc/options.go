package oidc

import "time"

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// WithExpirySkew provides an optional expiry skew duration when checking a
// TokenSet's expiration.
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok {
			o.withExpirySkew = d
		}
	}
}

// WithForceReinit resets a component's guarded one-time initialization so
// Init runs again.  Supported by: Authenticator.Init, ProfileCreator.Init
func WithForceReinit() Option {
	return func(o interface{}) {
		if o, ok := o.(*initOptions); ok {
			o.withForceReinit = true
		}
	}
}

// initOptions is the set of available options for the Init functions of
// components with guarded one-time initialization.
type initOptions struct {
	withForceReinit bool
}

// initDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func initDefaults() initOptions {
	return initOptions{}
}

// getInitOpts gets the init defaults and applies the opt overrides passed in.
func getInitOpts(opt ...Option) initOptions {
	opts := initDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
