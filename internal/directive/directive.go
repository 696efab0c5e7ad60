// Package directive turns a finished bundle set into the ordered input
// directives of the external compiler.
package directive

import (
	"fmt"
	"strings"
)

// Kind distinguishes directive types.
type Kind uint8

const (
	// KindFlag is a plain compiler option.
	KindFlag Kind = iota + 1
	// KindInput names one compiler input file.
	KindInput
	// KindBundle closes the inputs listed since the previous bundle.
	KindBundle
	// KindWrapper selects the runtime wrapper for a bundle.
	KindWrapper
)

func (k Kind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindInput:
		return "input"
	case KindBundle:
		return "bundle"
	case KindWrapper:
		return "wrapper"
	default:
		return "unknown"
	}
}

// Synthetic is generated input content that exists only for the duration of
// one compiler run.
type Synthetic struct {
	Name    string // file name inside the build's scratch directory
	Content string
}

// Directive is one compiler instruction.
type Directive struct {
	Kind  Kind
	Name  string // flag name, or sanitized bundle name
	Value string // flag value, input path, or wrapper text

	// bundle descriptor fields
	Count     int
	DependsOn string

	// set on inputs that must be materialized before compiling
	Synthetic *Synthetic
}

// Input returns an input directive for path.
func Input(path string) Directive {
	return Directive{Kind: KindInput, Value: path}
}

// Flag returns a compiler option directive.
func Flag(name, value string) Directive {
	return Directive{Kind: KindFlag, Name: name, Value: value}
}

// Spec renders the bundle descriptor as name:count[:dep].
func (d Directive) Spec() string {
	spec := fmt.Sprintf("%s:%d", d.Name, d.Count)
	if d.DependsOn != "" {
		spec += ":" + d.DependsOn
	}
	return spec
}

// Args renders one directive as compiler argv words.
func (d Directive) Args() []string {
	switch d.Kind {
	case KindFlag:
		return []string{"--" + d.Name, d.Value}
	case KindInput:
		return []string{"--js", d.Value}
	case KindBundle:
		return []string{"--module", d.Spec()}
	case KindWrapper:
		return []string{"--module_wrapper", d.Name + ":" + d.Value}
	}
	return nil
}

// Args renders a directive list as compiler argv.
func Args(ds []Directive) []string {
	out := make([]string, 0, 2*len(ds))
	for _, d := range ds {
		out = append(out, d.Args()...)
	}
	return out
}

// String renders a directive for display.
func (d Directive) String() string {
	return strings.Join(d.Args(), " ")
}
