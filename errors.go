package extracta

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the extraction pipeline. Callers distinguish failure
// classes with errors.Is.
var (
	// ErrUnsupportedFormat indicates the input is not one of the supported
	// document formats.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrConversionFailed indicates a legacy format could not be upgraded
	// to its modern equivalent.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrMissingCapability indicates a required external capability (a
	// conversion or recognition backend) is not available on the host.
	ErrMissingCapability = errors.New("missing capability")

	// ErrRecognitionFailed classifies per-unit text recognition failures.
	// Recognition failures never abort an extraction; the affected unit
	// carries a failed text block and a warning instead.
	ErrRecognitionFailed = errors.New("recognition failed")

	// ErrSchemaInvariant indicates the assembled document violated a
	// structural invariant. This is a bug in a walker or the assembler,
	// never a property of the input.
	ErrSchemaInvariant = errors.New("schema invariant violation")
)

// MissingCapabilityError reports which capability was required and absent.
type MissingCapabilityError struct {
	Capability string // e.g. "libreoffice", "rasterizer", "recognizer"
	Err        error
}

func (e *MissingCapabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing capability %q: %v", e.Capability, e.Err)
	}
	return fmt.Sprintf("missing capability %q", e.Capability)
}

func (e *MissingCapabilityError) Unwrap() error { return ErrMissingCapability }

// Warning describes a non-fatal problem encountered during extraction.
// Extraction continues past warnings; the affected unit may be incomplete.
type Warning struct {
	// Unit is the 1-based unit index the warning applies to, 0 for
	// document-level warnings.
	Unit    int
	Message string
}

func (w Warning) String() string {
	if w.Unit > 0 {
		return fmt.Sprintf("unit %d: %s", w.Unit, w.Message)
	}
	return w.Message
}

// FormatWarnings joins warnings into a single printable string.
func FormatWarnings(warnings []Warning) string {
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}
