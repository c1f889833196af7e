package ingest

// Pipeline orchestrates normalization:
// text → markup stripping → tokenization
type Pipeline struct {
	tokenizer *Tokenizer
}

// NewPipeline creates a normalization pipeline around the tokenizer
func NewPipeline(tokenizer *Tokenizer) *Pipeline {
	return &Pipeline{tokenizer: tokenizer}
}

// Process turns raw text into terms. HTML markup is stripped first when
// present, so post bodies and plain memos tokenize the same way.
func (p *Pipeline) Process(text string) []string {
	if HasMarkup(text) {
		text = StripMarkup(text)
	}
	return p.tokenizer.Tokenize(text)
}

// Tokenizer returns the underlying tokenizer
func (p *Pipeline) Tokenizer() *Tokenizer {
	return p.tokenizer
}
