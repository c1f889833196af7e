// Package corpus reads labelled documents from JSONL files, one
// {"text", "label", "source"} object per line.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/textclass/pkg/textclass/ingest"
)

const maxLine = 1 << 20

// Report counts what was read.
type Report struct {
	Lines     int
	Loaded    int
	Malformed int
	Invalid   int
}

// LoadFromJSONL loads documents from a JSONL file. Malformed lines and
// documents without text or label are skipped with a warning.
func LoadFromJSONL(path string, logger *zap.Logger) ([]ingest.Document, Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	docs, rep, err := Read(f, logger.With(zap.String("path", path)))
	if err != nil {
		return nil, rep, fmt.Errorf("read %s: %w", path, err)
	}
	return docs, rep, nil
}

// Read parses JSONL from r.
func Read(r io.Reader, logger *zap.Logger) ([]ingest.Document, Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		docs []ingest.Document
		rep  Report
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	for sc.Scan() {
		rep.Lines++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var d ingest.Document
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			rep.Malformed++
			logger.Warn("skipping malformed line", zap.Int("line", rep.Lines), zap.Error(err))
			continue
		}
		if err := d.Validate(); err != nil {
			rep.Invalid++
			logger.Warn("skipping invalid document", zap.Int("line", rep.Lines), zap.Error(err))
			continue
		}
		docs = append(docs, d)
	}
	if err := sc.Err(); err != nil {
		return nil, rep, err
	}
	rep.Loaded = len(docs)
	return docs, rep, nil
}
