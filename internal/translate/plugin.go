package translate

import (
	"errors"
	"fmt"
	"plugin"

	"github.com/typesync/typesync/internal/tstype"
	"github.com/typesync/typesync/internal/typenode"
)

// PluginSymbol is the symbol a translator plugin exports. It must be a
// function, or a variable holding one, returning a Registration, optionally
// with an error:
//
//	func Translator() translate.Registration
//	func Translator() (translate.Registration, error)
const PluginSymbol = "Translator"

// PluginLoadError reports a malformed translator plugin.
type PluginLoadError struct {
	Path string
	Err  error
}

func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("loading translator plugin %s: %v", e.Path, e.Err)
}

func (e *PluginLoadError) Unwrap() error { return e.Err }

// LoadPlugin opens a Go plugin built with -buildmode=plugin and returns the
// registration its factory produces.
func LoadPlugin(path string) (Registration, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return Registration{}, &PluginLoadError{Path: path, Err: err}
	}
	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return Registration{}, &PluginLoadError{Path: path, Err: fmt.Errorf("missing factory: %w", err)}
	}
	return registrationFrom(path, sym)
}

// registrationFrom calls a plugin factory symbol and checks what it
// returns, converting panics into load errors.
func registrationFrom(path string, sym any) (reg Registration, err error) {
	var factory func() (Registration, error)
	switch f := sym.(type) {
	case func() Registration:
		factory = func() (Registration, error) { return f(), nil }
	case func() (Registration, error):
		factory = f
	case *func() Registration:
		factory = func() (Registration, error) { return (*f)(), nil }
	case *func() (Registration, error):
		factory = *f
	default:
		return Registration{}, &PluginLoadError{
			Path: path,
			Err:  fmt.Errorf("symbol %s has type %T, want func() translate.Registration", PluginSymbol, sym),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			reg = Registration{}
			err = &PluginLoadError{Path: path, Err: fmt.Errorf("factory panicked: %v", r)}
		}
	}()

	reg, err = factory()
	if err != nil {
		return Registration{}, &PluginLoadError{Path: path, Err: err}
	}
	if err := reg.validate(); err != nil {
		return Registration{}, &PluginLoadError{Path: path, Err: err}
	}
	// The factory must yield a Translator.
	if reg.New(declineAll, &Context{}) == nil {
		return Registration{}, &PluginLoadError{Path: path, Err: errors.New("factory does not produce a Translator")}
	}
	return reg, nil
}

func declineAll(*typenode.Node, Bindings) (tstype.Type, error) {
	return nil, ErrDecline
}
