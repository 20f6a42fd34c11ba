// Package atlas is the library entry point for the CTCL expression atlas.
// An Atlas holds one immutable single-cell dataset and answers gene queries
// against it: per-group summaries, threshold verdicts comparing the tumor
// group with its references, and the clinical insight phrased from them.
//
//	a, err := atlas.New(atlas.WithManifest("data/dataset.yaml"))
//	if err != nil {
//		return err
//	}
//	ins, err := a.Insight(ctx, "TOX")
//
// An Atlas keeps no global state. Many instances may coexist and every
// method is safe for concurrent use.
package atlas

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ctcl-atlas/atlas/internal/matcher"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/errors"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/insight"
	"github.com/ctcl-atlas/atlas/pkg/loader"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

// Atlas answers expression queries against one dataset
type Atlas interface {
	// Dataset returns the loaded dataset
	Dataset() *expression.Dataset

	// Stats returns dataset statistics
	Stats() expression.Stats

	// Policy returns the significance policy
	Policy() compare.Policy

	// Target returns the default target group
	Target() expression.Group

	// Compare compares gene in the default target against refs, or every
	// other group with cells when refs is empty
	Compare(ctx context.Context, gene string, refs ...expression.Group) (*compare.Verdict, error)

	// CompareRequest runs a fully specified comparison
	CompareRequest(ctx context.Context, req compare.Request) (*compare.Verdict, error)

	// Insight compares gene and phrases the verdict
	Insight(ctx context.Context, gene string, refs ...expression.Group) (insight.Insight, error)

	// InsightRequest phrases the verdict of a fully specified comparison
	InsightRequest(ctx context.Context, req compare.Request) (insight.Insight, error)

	// Summaries returns gene summaries for every group with cells
	Summaries(ctx context.Context, gene string) ([]compare.GroupSummary, error)

	// Genes lists the gene symbols matching a comma-separated pattern list
	Genes(pattern string) ([]string, error)

	// Suggest returns close gene symbols for a misspelled one
	Suggest(gene string) []string

	// QuickSelect returns the quick-select markers and whether the dataset has them
	QuickSelect() []QuickPick

	// OnVerdict registers a callback for computed verdicts
	OnVerdict(VerdictHook)

	// OnInsight registers a callback for generated insights
	OnInsight(InsightHook)
}

// QuickPick is a quick-select marker annotated with dataset availability.
type QuickPick struct {
	insight.QuickGene
	Available bool `json:"available" yaml:"available"`
}

type atlas struct {
	dataset    *expression.Dataset
	comparator *compare.Comparator
	target     expression.Group
	logger     *zerolog.Logger
	hooks      *hooks
}

// New creates a new Atlas instance with the given options
func New(opts ...Option) (Atlas, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.Default()
	}

	ds := cfg.dataset
	if ds == nil {
		if cfg.manifestPath == "" {
			return nil, errors.NewConfigError("atlas", "no dataset configured: use WithDataset or WithManifest", nil)
		}
		var err error
		ds, err = load(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("loading dataset: %w", err)
		}
	}

	cmpOpts := []compare.Option{compare.WithParallel(cfg.parallel)}
	if cfg.logger != nil {
		cmpOpts = append(cmpOpts, compare.WithLogger(cfg.logger))
	}
	c, err := compare.New(cfg.policy, cmpOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating comparator: %w", err)
	}

	return &atlas{
		dataset:    ds,
		comparator: c,
		target:     cfg.target,
		logger:     logger,
		hooks:      newHooks(),
	}, nil
}

func load(cfg *config, logger *zerolog.Logger) (*expression.Dataset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.loadTimeout)
	defer cancel()
	return loader.LoadFile(ctx, cfg.manifestPath, loader.Options{
		Strict: cfg.strict,
		Logger: logger,
	})
}

func (a *atlas) Dataset() *expression.Dataset { return a.dataset }
func (a *atlas) Stats() expression.Stats      { return a.dataset.Stats() }
func (a *atlas) Policy() compare.Policy       { return a.comparator.Policy() }
func (a *atlas) Target() expression.Group     { return a.target }

func (a *atlas) Compare(ctx context.Context, gene string, refs ...expression.Group) (*compare.Verdict, error) {
	return a.CompareRequest(ctx, compare.Request{Gene: gene, References: refs})
}

func (a *atlas) CompareRequest(ctx context.Context, req compare.Request) (*compare.Verdict, error) {
	if req.Target == "" {
		req.Target = a.target
	}
	v, err := a.comparator.Compare(a.withLogger(ctx), a.dataset, req)
	if err != nil {
		return nil, err
	}
	a.hooks.triggerVerdict(v)
	return v, nil
}

func (a *atlas) Insight(ctx context.Context, gene string, refs ...expression.Group) (insight.Insight, error) {
	return a.InsightRequest(ctx, compare.Request{Gene: gene, References: refs})
}

func (a *atlas) InsightRequest(ctx context.Context, req compare.Request) (insight.Insight, error) {
	v, err := a.CompareRequest(ctx, req)
	if err != nil {
		return insight.Insight{}, err
	}
	ins := insight.Generate(v)
	a.hooks.triggerInsight(ins)
	return ins, nil
}

func (a *atlas) Summaries(ctx context.Context, gene string) ([]compare.GroupSummary, error) {
	return a.comparator.Summarize(a.withLogger(ctx), a.dataset, gene)
}

func (a *atlas) Genes(pattern string) ([]string, error) {
	genes, err := matcher.FilterGenes(pattern, a.dataset.Genes())
	if err != nil {
		return nil, errors.NewValidationError("pattern", pattern, err.Error())
	}
	return genes, nil
}

func (a *atlas) Suggest(gene string) []string {
	return a.dataset.Suggest(gene, constants.MaxSuggestions)
}

func (a *atlas) QuickSelect() []QuickPick {
	quick := insight.QuickGenes()
	picks := make([]QuickPick, len(quick))
	for i, q := range quick {
		picks[i] = QuickPick{QuickGene: q, Available: a.dataset.HasGene(q.Symbol)}
	}
	return picks
}

func (a *atlas) OnVerdict(fn VerdictHook) { a.hooks.OnVerdict(fn) }
func (a *atlas) OnInsight(fn InsightHook) { a.hooks.OnInsight(fn) }

// withLogger attaches the atlas logger unless the caller's context already
// carries one.
func (a *atlas) withLogger(ctx context.Context) context.Context {
	if logging.HasLogger(ctx) {
		return ctx
	}
	return logging.WithLogger(ctx, a.logger)
}
