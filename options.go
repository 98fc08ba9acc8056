package extracta

import (
	"time"

	"github.com/tsawler/extracta/recognize"
)

// ExtractOptions holds configuration for document extraction.
type ExtractOptions struct {
	// Recognition
	ocrLanguages []string
	visionAPIKey string
	visionModel  string
	retryPolicy  recognize.RetryPolicy

	// PDF rasterization
	rasterDPI int

	// Legacy conversion
	libreOfficePath string
	convertTimeout  time.Duration

	// Image reference naming
	maxRefLen  int
	summaryLen int

	// Output
	workDir string
}

// defaultOptions returns the default extraction options.
func defaultOptions() ExtractOptions {
	return ExtractOptions{
		ocrLanguages: nil, // engine default
		retryPolicy:  recognize.DefaultRetryPolicy,
		rasterDPI:    0, // rasterizer default
		maxRefLen:    0, // resolver default
		summaryLen:   0, // resolver default
	}
}

// clone creates a deep copy of ExtractOptions.
func (o ExtractOptions) clone() ExtractOptions {
	newOpts := o
	if o.ocrLanguages != nil {
		newOpts.ocrLanguages = make([]string, len(o.ocrLanguages))
		copy(newOpts.ocrLanguages, o.ocrLanguages)
	}
	return newOpts
}
