package discovery

import (
	"fmt"
	"strings"
)

// ResolutionError reports that the module set could not be discovered or is
// not usable as a closed graph. Output carries the resolver's own diagnostic
// verbatim when there is one.
type ResolutionError struct {
	Module string
	Reason string
	Output string
	Err    error
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	sb.WriteString("resolution failed")
	if e.Module != "" {
		fmt.Fprintf(&sb, " for %q", e.Module)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		sb.WriteString("\n")
		sb.WriteString(out)
	}
	return sb.String()
}

func (e *ResolutionError) Unwrap() error { return e.Err }
