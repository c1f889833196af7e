package config

import (
	"fmt"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
	"github.com/cognicore/textclass/pkg/textclass/stoplist"
)

// Loader loads tokenizer configuration and constructs components
type Loader struct {
	Tokenizer TokenizerConfig
}

// Components holds all loaded configuration components
type Components struct {
	Tokenizer *ingest.Tokenizer
	Pipeline  *ingest.Pipeline
}

// Load reads the stoplist file (if any) and returns initialized components.
// The built-in stop words come first unless disabled, then the file, then
// the extra terms.
func (l *Loader) Load() (*Components, error) {
	var stops []string
	if !l.Tokenizer.NoDefaultStops {
		stops = append(stops, stoplist.Default()...)
	}

	if l.Tokenizer.StoplistPath != "" {
		sl, err := LoadStoplist(l.Tokenizer.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		stops = append(stops, sl.Terms...)
	}
	stops = append(stops, l.Tokenizer.ExtraStops...)

	tok := ingest.NewTokenizer(stops)
	return &Components{
		Tokenizer: tok,
		Pipeline:  ingest.NewPipeline(tok),
	}, nil
}
