package registry

import (
	"fmt"
	"strings"
)

// verbs accepted in an exposure entry.
var verbs = map[string]bool{
	"get":    true,
	"post":   true,
	"put":    true,
	"patch":  true,
	"delete": true,
}

// Descriptor identifies one exposed function.
type Descriptor struct {
	Module   string
	Verb     string
	Function string
}

func (d Descriptor) String() string {
	return d.Module + "." + d.Verb + "=" + d.Function
}

// ParseDescriptor parses a "verb=functionName" entry for module.
// The verb is case-insensitive and stored lower-case.
func ParseDescriptor(module, entry string) (Descriptor, error) {
	verb, function, found := strings.Cut(entry, "=")
	if !found {
		return Descriptor{}, fmt.Errorf("%w: %q in module %q", ErrMissingSeparator, entry, module)
	}

	verb = strings.ToLower(strings.TrimSpace(verb))
	function = strings.TrimSpace(function)

	if !verbs[verb] {
		return Descriptor{}, fmt.Errorf("%w: %q in module %q", ErrUnknownVerb, entry, module)
	}
	if function == "" {
		return Descriptor{}, fmt.Errorf("%w: %q in module %q", ErrEmptyFunction, entry, module)
	}

	return Descriptor{Module: module, Verb: verb, Function: function}, nil
}
