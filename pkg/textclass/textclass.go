// Package textclass trains text classifiers on labelled documents and
// serves predictions from stored models.
package textclass

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/textclass/pkg/textclass/classify"
	"github.com/cognicore/textclass/pkg/textclass/classify/knn"
	"github.com/cognicore/textclass/pkg/textclass/ingest"
	"github.com/cognicore/textclass/pkg/textclass/internalerr"
	"github.com/cognicore/textclass/pkg/textclass/registry"
	"github.com/cognicore/textclass/pkg/textclass/stoplist"
	"github.com/cognicore/textclass/pkg/textclass/store"
	"github.com/cognicore/textclass/pkg/textclass/vectorize"
)

// Engine is the training and prediction facade
type Engine struct {
	docs        store.DocumentSource
	registry    *registry.Registry
	predictions store.PredictionStore
	pipeline    *ingest.Pipeline
	logger      *zap.Logger
	accuracy    bool
	now         func() time.Time
	ids         *runIDs
}

// Options configures an Engine
type Options struct {
	Documents store.DocumentSource
	Models    store.ModelStore
	// Predictions receives an audit row per prediction; nil disables it.
	Predictions store.PredictionStore
	// Pipeline defaults to markup stripping plus the default stop words.
	Pipeline *ingest.Pipeline
	Logger   *zap.Logger
	// SkipAccuracy disables scoring the model on its training set.
	SkipAccuracy bool
	Now          func() time.Time
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Documents == nil || opts.Models == nil {
		return nil, fmt.Errorf("%w: engine needs a document source and a model store", internalerr.ErrInvalidConfig)
	}
	e := &Engine{
		docs:        opts.Documents,
		registry:    registry.NewRegistry(opts.Models),
		predictions: opts.Predictions,
		pipeline:    opts.Pipeline,
		logger:      opts.Logger,
		accuracy:    !opts.SkipAccuracy,
		now:         opts.Now,
		ids:         newRunIDs(),
	}
	if e.pipeline == nil {
		e.pipeline = ingest.NewPipeline(ingest.NewTokenizer(stoplist.Default()))
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Pipeline returns the text pipeline used for training and prediction.
func (e *Engine) Pipeline() *ingest.Pipeline { return e.pipeline }

// TrainRequest selects the classifier to train.
type TrainRequest struct {
	Kind   classify.Kind
	Params registry.Params
}

// TrainResult describes a completed run.
type TrainResult struct {
	ModelID   int64
	RunID     string
	Accuracy  *float64
	Documents int
	Skipped   int
	Labels    []string
	Run       *Run
}

// Train fetches the corpus, fits a vocabulary, trains a classifier of the
// requested kind and stores it. Nothing is persisted unless every earlier
// step succeeded. The returned Run is set even on failure.
func (e *Engine) Train(ctx context.Context, req TrainRequest) (TrainResult, error) {
	run := newRun(e.ids.next(e.now()), req.Kind, e.now())
	log := e.logger.With(zap.String("run_id", run.ID), zap.String("kind", string(req.Kind)))
	log.Info("training run requested")

	res, err := e.train(ctx, req, run, log)
	if err != nil {
		run.fail(err, e.now())
		log.Warn("training run failed", zap.Error(err))
		return TrainResult{RunID: run.ID, Run: run}, err
	}
	log.Info("training run completed",
		zap.Int64("model_id", res.ModelID),
		zap.Int("documents", res.Documents),
		zap.Int("skipped", res.Skipped),
		zap.Duration("took", run.Duration()))
	return res, nil
}

func (e *Engine) step(run *Run, log *zap.Logger, to Stage) error {
	if err := run.advance(to, e.now()); err != nil {
		return err
	}
	log.Debug("training run stage", zap.String("stage", string(to)))
	return nil
}

func (e *Engine) train(ctx context.Context, req TrainRequest, run *Run, log *zap.Logger) (TrainResult, error) {
	kind, err := classify.ParseKind(string(req.Kind))
	if err != nil {
		return TrainResult{}, err
	}

	if err := e.step(run, log, StageFetching); err != nil {
		return TrainResult{}, err
	}
	docs, err := e.docs.Documents(ctx)
	if err != nil {
		return TrainResult{}, fmt.Errorf("fetch documents: %w", err)
	}
	for i, d := range docs {
		if strings.TrimSpace(d.Label) == "" {
			return TrainResult{}, fmt.Errorf("%w: document %d has no label", internalerr.ErrInvalidInput, i)
		}
	}
	if err := checkLabels(docs); err != nil {
		return TrainResult{}, err
	}

	if err := e.step(run, log, StageVectorizing); err != nil {
		return TrainResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return TrainResult{}, err
	}
	kept := make([]ingest.Document, 0, len(docs))
	tokens := make([][]string, 0, len(docs))
	for _, d := range docs {
		toks := e.pipeline.Process(d.Text)
		if len(toks) == 0 {
			continue
		}
		kept = append(kept, d)
		tokens = append(tokens, toks)
	}
	skipped := len(docs) - len(kept)
	if len(kept) == 0 {
		return TrainResult{}, fmt.Errorf("%w: all %d documents are empty after tokenization", internalerr.ErrEmptyInput, len(docs))
	}
	if skipped > 0 {
		log.Info("skipped empty documents", zap.Int("skipped", skipped))
		if err := checkLabels(kept); err != nil {
			return TrainResult{}, err
		}
	}

	vocab := vectorize.Fit(tokens)
	examples := make([]classify.Example, len(kept))
	for i, d := range kept {
		examples[i] = classify.Example{Tokens: tokens[i], Vector: vocab.Transform(tokens[i]), Label: d.Label}
	}

	if err := e.step(run, log, StageTraining); err != nil {
		return TrainResult{}, err
	}
	c, err := registry.New(kind, vocab, req.Params)
	if err != nil {
		return TrainResult{}, err
	}
	if err := c.Train(examples); err != nil {
		return TrainResult{}, fmt.Errorf("train %s: %w", kind, err)
	}
	labels, _ := classify.Labels(examples)

	var accuracy *float64
	if e.accuracy {
		acc, err := score(c, examples)
		if err != nil {
			return TrainResult{}, err
		}
		accuracy = &acc
	}

	if err := e.step(run, log, StagePersisting); err != nil {
		return TrainResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return TrainResult{}, err
	}
	id, err := e.registry.Save(ctx, registry.Model{
		Kind:       kind,
		Vocabulary: vocab,
		Classifier: c,
		CreatedAt:  e.now().UTC(),
		Accuracy:   accuracy,
		Documents:  len(examples),
		Labels:     labels,
	})
	if err != nil {
		return TrainResult{}, err
	}

	if err := e.step(run, log, StageCompleted); err != nil {
		return TrainResult{}, err
	}
	return TrainResult{
		ModelID:   id,
		RunID:     run.ID,
		Accuracy:  accuracy,
		Documents: len(examples),
		Skipped:   skipped,
		Labels:    labels,
		Run:       run,
	}, nil
}

// checkLabels requires at least two distinct labels.
func checkLabels(docs []ingest.Document) error {
	seen := make(map[string]struct{})
	for _, d := range docs {
		seen[d.Label] = struct{}{}
	}
	if len(seen) < 2 {
		return fmt.Errorf("%w: need at least 2 distinct labels, got %d across %d documents",
			internalerr.ErrInsufficientData, len(seen), len(docs))
	}
	return nil
}

// score returns the fraction of examples c labels correctly.
func score(c classify.Classifier, examples []classify.Example) (float64, error) {
	correct := 0
	for _, ex := range examples {
		res, err := c.Predict(classify.Query{Tokens: ex.Tokens, Vector: ex.Vector})
		if err != nil {
			return 0, fmt.Errorf("score training set: %w", err)
		}
		if res.Label == ex.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(examples)), nil
}

// Prediction is the outcome of classifying one text.
type Prediction struct {
	// ID is the audit row id, 0 when auditing is disabled.
	ID         int64
	ModelID    int64
	Kind       classify.Kind
	Label      string
	Confidence float64
	Scores     map[string]float64
	Tokens     []string
}

// Predict classifies text with a stored model.
func (e *Engine) Predict(ctx context.Context, modelID int64, text string) (Prediction, error) {
	m, tokens, err := e.load(ctx, modelID, text)
	if err != nil {
		return Prediction{}, err
	}

	res, err := m.Classifier.Predict(classify.Query{Tokens: tokens, Vector: m.Vocabulary.Transform(tokens)})
	if err != nil {
		return Prediction{}, fmt.Errorf("predict with model %d: %w", modelID, err)
	}
	p := Prediction{
		ModelID:    modelID,
		Kind:       m.Kind,
		Label:      res.Label,
		Confidence: res.Confidence,
		Scores:     res.Scores,
		Tokens:     tokens,
	}

	if e.predictions != nil {
		id, err := e.predictions.InsertPrediction(ctx, store.Prediction{
			InputText:      text,
			ModelID:        modelID,
			PredictedLabel: res.Label,
			Confidence:     res.Confidence,
			CreatedAt:      e.now().UTC(),
		})
		if err != nil {
			e.logger.Warn("prediction audit failed", zap.Int64("model_id", modelID), zap.Error(err))
			return Prediction{}, fmt.Errorf("record prediction: %w", err)
		}
		p.ID = id
	}

	e.logger.Debug("prediction",
		zap.Int64("model_id", modelID),
		zap.String("label", p.Label),
		zap.Float64("confidence", p.Confidence))
	return p, nil
}

func (e *Engine) load(ctx context.Context, modelID int64, text string) (registry.Model, []string, error) {
	m, err := e.registry.Load(ctx, modelID)
	if err != nil {
		return registry.Model{}, nil, err
	}
	tokens := e.pipeline.Process(text)
	if len(tokens) == 0 {
		return registry.Model{}, nil, fmt.Errorf("%w: %q", internalerr.ErrEmptyInput, text)
	}
	return m, tokens, nil
}

// Neighbor is a training document close to a query.
type Neighbor struct {
	Index      int
	Label      string
	Similarity float64
}

// Similar returns the nearest training documents of a knn model, most
// similar first.
func (e *Engine) Similar(ctx context.Context, modelID int64, text string) ([]Neighbor, error) {
	m, tokens, err := e.load(ctx, modelID, text)
	if err != nil {
		return nil, err
	}
	c, ok := m.Classifier.(*knn.Classifier)
	if !ok {
		return nil, fmt.Errorf("%w: nearest documents need a knn model, model %d is %s",
			internalerr.ErrUnsupportedModelType, modelID, m.Kind)
	}
	labels := c.State().Labels
	found := c.Neighbors(classify.Query{Tokens: tokens, Vector: m.Vocabulary.Transform(tokens)})
	out := make([]Neighbor, len(found))
	for i, n := range found {
		out[i] = Neighbor{Index: n.Index, Label: labels[n.Index], Similarity: n.Similarity}
	}
	return out, nil
}

// ListModels returns every stored model, ordered by id.
func (e *Engine) ListModels(ctx context.Context) ([]store.ModelSummary, error) {
	return e.registry.List(ctx)
}

// History returns the audited predictions of a model. It fails with
// ErrInvalidConfig when auditing is disabled.
func (e *Engine) History(ctx context.Context, modelID int64) ([]store.Prediction, error) {
	if e.predictions == nil {
		return nil, fmt.Errorf("%w: prediction auditing is disabled", internalerr.ErrInvalidConfig)
	}
	return e.predictions.ListPredictions(ctx, modelID)
}
