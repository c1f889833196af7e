package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/textclass/internal/corpus"
	"github.com/cognicore/textclass/pkg/textclass"
	"github.com/cognicore/textclass/pkg/textclass/analytics"
	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/config"
	"github.com/cognicore/textclass/pkg/textclass/registry"
	"github.com/cognicore/textclass/pkg/textclass/stoplist"
	"github.com/cognicore/textclass/pkg/textclass/store"
	"github.com/cognicore/textclass/pkg/textclass/store/badger"
	"github.com/cognicore/textclass/pkg/textclass/store/memstore"
	"github.com/cognicore/textclass/pkg/textclass/store/sqlite"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store
	docs   store.DocumentSource
	engine *textclass.Engine
	stdout io.Writer
	stderr io.Writer
}

func newApp(configPath string, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	st, docs, err := openStore(context.Background(), cfg.Store)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	comp, err := (&config.Loader{Tokenizer: cfg.Tokenizer}).Load()
	if err != nil {
		st.Close()
		return nil, err
	}

	opts := textclass.Options{
		Documents:    docs,
		Models:       st,
		Pipeline:     comp.Pipeline,
		Logger:       logger,
		SkipAccuracy: !*cfg.Training.ComputeAccuracy,
	}
	if *cfg.Prediction.Record {
		opts.Predictions = st
	}
	engine, err := textclass.New(opts)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		docs:   docs,
		engine: engine,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, store.DocumentSource, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DocumentsQuery != "" {
			return st, st.QuerySource(cfg.DocumentsQuery), nil
		}
		return st, st, nil
	case config.DriverBadger:
		st, err := badger.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.DriverMemory:
		st := memstore.New()
		return st, st, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	a.logger.Sync()
}

func (a *app) print(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, string(out))
	return err
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) importDocs(ctx context.Context, args []string) error {
	fs := a.flags("import")
	input := fs.String("input", "", "Path to JSONL file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("--input required")
	}

	docs, rep, err := corpus.LoadFromJSONL(*input, a.logger)
	if err != nil {
		return err
	}
	n, err := a.store.InsertDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("store documents: %w", err)
	}
	a.logger.Info("imported documents", zap.String("input", *input), zap.Int("documents", n))
	return a.print(map[string]int{
		"imported":  n,
		"malformed": rep.Malformed,
		"invalid":   rep.Invalid,
	})
}

type trainOutput struct {
	ModelID   int64    `json:"model_id"`
	RunID     string   `json:"run_id"`
	Kind      string   `json:"kind"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Documents int      `json:"documents"`
	Skipped   int      `json:"skipped"`
	Labels    []string `json:"labels"`
}

func (a *app) train(ctx context.Context, args []string) error {
	fs := a.flags("train")
	kind := fs.String("kind", a.cfg.Training.Kind, "Model kind: "+kindList())
	k := fs.Int("k", a.cfg.Training.Params.K, "Neighbours for knn (0 = default)")
	maxDepth := fs.Int("max-depth", a.cfg.Training.Params.MaxDepth, "Decision tree depth limit (0 = default)")
	minSamples := fs.Int("min-samples", a.cfg.Training.Params.MinSamples, "Smallest node a decision tree splits (0 = default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.engine.Train(ctx, textclass.TrainRequest{
		Kind:   classify.Kind(*kind),
		Params: registry.Params{K: *k, MaxDepth: *maxDepth, MinSamples: *minSamples},
	})
	if err != nil {
		return err
	}
	return a.print(trainOutput{
		ModelID:   res.ModelID,
		RunID:     res.RunID,
		Kind:      *kind,
		Accuracy:  res.Accuracy,
		Documents: res.Documents,
		Skipped:   res.Skipped,
		Labels:    res.Labels,
	})
}

func kindList() string {
	kinds := classify.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func (a *app) modelText(name string, args []string) (int64, string, error) {
	fs := a.flags(name)
	id := fs.Int64("model", 0, "Model id (required)")
	if err := fs.Parse(args); err != nil {
		return 0, "", err
	}
	if *id == 0 {
		return 0, "", errors.New("--model required")
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return 0, "", errors.New("text to classify required")
	}
	return *id, text, nil
}

func (a *app) predict(ctx context.Context, args []string) error {
	id, text, err := a.modelText("predict", args)
	if err != nil {
		return err
	}
	p, err := a.engine.Predict(ctx, id, text)
	if err != nil {
		return err
	}
	return a.print(struct {
		ModelID    int64              `json:"model_id"`
		Label      string             `json:"label"`
		Confidence float64            `json:"confidence"`
		Scores     map[string]float64 `json:"scores,omitempty"`
	}{p.ModelID, p.Label, p.Confidence, p.Scores})
}

func (a *app) similar(ctx context.Context, args []string) error {
	id, text, err := a.modelText("similar", args)
	if err != nil {
		return err
	}
	neighbors, err := a.engine.Similar(ctx, id, text)
	if err != nil {
		return err
	}
	type neighborJSON struct {
		Index      int     `json:"index"`
		Label      string  `json:"label"`
		Similarity float64 `json:"similarity"`
	}
	out := make([]neighborJSON, len(neighbors))
	for i, n := range neighbors {
		out[i] = neighborJSON{n.Index, n.Label, n.Similarity}
	}
	return a.print(out)
}

type modelJSON struct {
	ID        int64    `json:"id"`
	Kind      string   `json:"kind"`
	CreatedAt string   `json:"created_at"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Documents int      `json:"documents"`
	Labels    []string `json:"labels"`
}

func (a *app) models(ctx context.Context, args []string) error {
	if err := a.flags("models").Parse(args); err != nil {
		return err
	}
	list, err := a.engine.ListModels(ctx)
	if err != nil {
		return err
	}
	out := make([]modelJSON, len(list))
	for i, m := range list {
		out[i] = modelJSON{
			ID:        m.ID,
			Kind:      m.Kind,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
			Accuracy:  m.Accuracy,
			Documents: m.Documents,
			Labels:    m.Labels,
		}
	}
	return a.print(out)
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := a.flags("history")
	id := fs.Int64("model", 0, "Model id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("--model required")
	}
	preds, err := a.engine.History(ctx, *id)
	if err != nil {
		return err
	}
	type predictionJSON struct {
		ID         int64   `json:"id"`
		Text       string  `json:"text"`
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	out := make([]predictionJSON, len(preds))
	for i, p := range preds {
		out[i] = predictionJSON{p.ID, p.InputText, p.PredictedLabel, p.Confidence}
	}
	return a.print(out)
}

type candidateJSON struct {
	Token        string  `json:"token"`
	Score        float64 `json:"score"`
	DFPercent    float64 `json:"df_percent"`
	LabelEntropy float64 `json:"label_entropy"`
}

func (a *app) stopwords(ctx context.Context, args []string) error {
	fs := a.flags("stopwords")
	dfPercent := fs.Float64("df", stoplist.DefaultThresholds().DFPercent, "Minimum document frequency, percent")
	entropy := fs.Float64("entropy", stoplist.DefaultThresholds().LabelEntropy, "Minimum normalized label entropy")
	write := fs.String("write", "", "Append the candidates to this stoplist file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	docs, err := a.docs.Documents(ctx)
	if err != nil {
		return err
	}
	analyzer := analytics.NewAnalyzer()
	pipeline := a.engine.Pipeline()
	for _, d := range docs {
		analyzer.Process(pipeline.Process(d.Text), d.Label)
	}

	stats := analyzer.Snapshot().StopwordStats()
	dfByToken := make(map[string]float64, len(stats))
	for _, s := range stats {
		dfByToken[s.Token] = s.DFPercent
	}
	mgr := stoplist.NewManager(pipeline.Tokenizer().Stopwords())
	candidates := mgr.SuggestCandidates(stats, stoplist.Thresholds{
		DFPercent:    *dfPercent,
		LabelEntropy: *entropy,
	})

	out := make([]candidateJSON, len(candidates))
	for i, c := range candidates {
		out[i] = candidateJSON{c.Token, c.Score, dfByToken[c.Token], c.Reason.LabelEntropy}
	}

	if *write != "" && len(candidates) > 0 {
		if err := appendStoplist(*write, candidates); err != nil {
			return err
		}
		a.logger.Info("stoplist updated", zap.String("path", *write), zap.Int("added", len(candidates)))
	}
	return a.print(out)
}

func appendStoplist(path string, candidates []stoplist.Candidate) error {
	var terms []string
	if _, err := os.Stat(path); err == nil {
		sl, err := config.LoadStoplist(path)
		if err != nil {
			return err
		}
		terms = sl.Terms
	}
	mgr := stoplist.NewManager(terms)
	for _, c := range candidates {
		mgr.Add(c.Token, c.Reason)
	}
	return config.SaveStoplist(path, mgr.All())
}
