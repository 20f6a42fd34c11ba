package handlers

import (
	"net/http"

	"github.com/ctcl-atlas/atlas/internal/server/cache"
	"github.com/ctcl-atlas/atlas/internal/server/filter"
	"github.com/ctcl-atlas/atlas/internal/server/response"
	"github.com/ctcl-atlas/atlas/pkg/compare"
	"github.com/ctcl-atlas/atlas/pkg/expression"
	"github.com/ctcl-atlas/atlas/pkg/logging"
)

// HandleDataset handles GET /api/v1/dataset.
// @Summary Dataset statistics
// @Tags dataset
// @Produce json
// @Success 200 {object} response.Response{data=expression.Stats}
// @Router /api/v1/dataset [get].
func (h *Handlers) HandleDataset(w http.ResponseWriter, r *http.Request) {
	a, ok := h.atlas(w, r)
	if !ok {
		return
	}
	response.OK(w, map[string]any{
		"stats":  a.Stats(),
		"target": a.Target(),
		"policy": a.Policy(),
	})
}

// HandleListGenes handles GET /api/v1/genes.
// @Summary List genes
// @Description Paginated gene symbols, optionally filtered by glob, regex or prefix patterns
// @Tags genes
// @Produce json
// @Param match query string false "Comma-separated patterns (e.g. CD*,^CCR)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Response{data=filter.Page}
// @Failure 400 {object} response.Response{error=response.Error}
// @Router /api/v1/genes [get].
func (h *Handlers) HandleListGenes(w http.ResponseWriter, r *http.Request) {
	a, ok := h.atlas(w, r)
	if !ok {
		return
	}

	q := filter.ParseGeneQuery(r)
	genes, err := a.Genes(q.Match)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, q.Paginate(genes))
}

// HandleQuickGenes handles GET /api/v1/genes/quick.
// @Summary Quick-select markers
// @Tags genes
// @Produce json
// @Success 200 {object} response.Response{data=[]atlas.QuickPick}
// @Router /api/v1/genes/quick [get].
func (h *Handlers) HandleQuickGenes(w http.ResponseWriter, r *http.Request) {
	a, ok := h.atlas(w, r)
	if !ok {
		return
	}
	response.OK(w, a.QuickSelect())
}

// HandleSummary handles GET /api/v1/genes/{gene}/summary.
// @Summary Per-group expression summary
// @Tags genes
// @Produce json
// @Param gene path string true "Gene symbol"
// @Success 200 {object} response.Response{data=[]compare.GroupSummary}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/genes/{gene}/summary [get].
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	a, ok := h.atlas(w, r)
	if !ok {
		return
	}
	gene, err := geneParam(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	ctx := logging.WithGene(r.Context(), gene)
	data, err := h.cache.Remember(cache.Key("summary", gene), func() (any, error) {
		return a.Summaries(ctx, gene)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, data)
}

// HandleCompare handles GET /api/v1/genes/{gene}/compare.
// @Summary Compare a gene between groups
// @Tags genes
// @Produce json
// @Param gene path string true "Gene symbol"
// @Param target query string false "Target group (default tumor)"
// @Param ref query []string false "Reference groups (default every other group)"
// @Success 200 {object} response.Response{data=compare.Verdict}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 404 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Router /api/v1/genes/{gene}/compare [get].
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	h.serveComparison(w, r, "compare", func(req compare.Request) (any, error) {
		a, err := h.app.Atlas()
		if err != nil {
			return nil, err
		}
		return a.CompareRequest(logging.WithGene(r.Context(), req.Gene), req)
	})
}

// HandleInsight handles GET /api/v1/genes/{gene}/insight.
// @Summary Clinical insight for a gene
// @Tags genes
// @Produce json
// @Param gene path string true "Gene symbol"
// @Param target query string false "Target group (default tumor)"
// @Param ref query []string false "Reference groups (default every other group)"
// @Success 200 {object} response.Response{data=insight.Insight}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/genes/{gene}/insight [get].
func (h *Handlers) HandleInsight(w http.ResponseWriter, r *http.Request) {
	h.serveComparison(w, r, "insight", func(req compare.Request) (any, error) {
		a, err := h.app.Atlas()
		if err != nil {
			return nil, err
		}
		return a.InsightRequest(logging.WithGene(r.Context(), req.Gene), req)
	})
}

// serveComparison parses the gene and group selection, then serves the
// cached or freshly computed result.
func (h *Handlers) serveComparison(w http.ResponseWriter, r *http.Request, kind string, run func(compare.Request) (any, error)) {
	if _, ok := h.atlas(w, r); !ok {
		return
	}
	gene, err := geneParam(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	q, err := filter.ParseComparisonQuery(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	data, err := h.cache.Remember(cache.Key(kind, gene, q.Key()), func() (any, error) {
		return run(compare.Request{Gene: gene, Target: q.Target, References: q.References})
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, data)
}

// fail logs unexpected errors and writes the mapped error response.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := response.ErrorBody(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Query failed")
	}
	response.ErrorFromType(w, err)
}

// groupsOf parses optional group names from an explorer request.
func groupsOf(target string, refs []string) (expression.Group, []expression.Group, error) {
	var t expression.Group
	if target != "" {
		g, err := expression.ParseGroup(target)
		if err != nil {
			return "", nil, err
		}
		t = g
	}
	rs, err := expression.ParseGroups(refs)
	if err != nil {
		return "", nil, err
	}
	if len(rs) == 0 {
		rs = nil
	}
	return t, rs, nil
}
