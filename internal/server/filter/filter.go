// Package filter provides query parameter parsing and filtering for API endpoints.
package filter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ctcl-atlas/atlas/pkg/constants"
	"github.com/ctcl-atlas/atlas/pkg/expression"
)

// GeneQuery holds the gene listing parameters.
type GeneQuery struct {
	Match  string
	Limit  int
	Offset int
}

// ParseGeneQuery extracts gene list parameters from the request. Limit is
// clamped to [1, MaxPageSize]; a negative offset becomes zero.
func ParseGeneQuery(r *http.Request) GeneQuery {
	q := r.URL.Query()

	query := GeneQuery{
		Match:  strings.TrimSpace(q.Get("match")),
		Limit:  parseIntOrDefault(q.Get("limit"), constants.DefaultPageSize),
		Offset: parseIntOrDefault(q.Get("offset"), 0),
	}
	if query.Limit <= 0 {
		query.Limit = constants.DefaultPageSize
	}
	if query.Limit > constants.MaxPageSize {
		query.Limit = constants.MaxPageSize
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return query
}

// Page is one window of a gene listing.
type Page struct {
	Genes  []string `json:"genes"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// Paginate returns the window of genes selected by the query.
func (q GeneQuery) Paginate(genes []string) Page {
	page := Page{Total: len(genes), Limit: q.Limit, Offset: q.Offset, Genes: []string{}}
	if q.Offset >= len(genes) {
		return page
	}
	end := min(q.Offset+q.Limit, len(genes))
	page.Genes = genes[q.Offset:end]
	return page
}

// ComparisonQuery holds the group selection of a compare or insight request.
type ComparisonQuery struct {
	Target     expression.Group
	References []expression.Group
}

// ParseComparisonQuery reads target and ref. ref may repeat or hold a
// comma-separated list. An unset target is left empty for the caller's default.
func ParseComparisonQuery(r *http.Request) (ComparisonQuery, error) {
	q := r.URL.Query()

	var query ComparisonQuery
	if target := q.Get("target"); target != "" {
		g, err := expression.ParseGroup(target)
		if err != nil {
			return query, err
		}
		query.Target = g
	}

	var refs []string
	for _, v := range q["ref"] {
		refs = append(refs, strings.Split(v, ",")...)
	}
	groups, err := expression.ParseGroups(refs)
	if err != nil {
		return query, err
	}
	if len(groups) > 0 {
		query.References = groups
	}
	return query, nil
}

// Key renders the query as cache key parts, in request order.
func (q ComparisonQuery) Key() string {
	parts := make([]string, 0, len(q.References)+1)
	parts = append(parts, q.Target.String())
	for _, g := range q.References {
		parts = append(parts, g.String())
	}
	return strings.Join(parts, ",")
}

// parseIntOrDefault parses an integer or returns default.
func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}
