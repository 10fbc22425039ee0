package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ideasearch/internal/domain/search/filter"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/mode"
	"github.com/kailas-cloud/ideasearch/internal/domain/search/request"
	chiTransport "github.com/kailas-cloud/ideasearch/internal/transport/chi"
)

// queryFlags mirrors the search request body of the HTTP API.
type queryFlags struct {
	provider      string
	mode          string
	limit         int
	offset        int
	domain        []string
	businessGroup []string
	techStack     []string
	buildPhase    []string
	years         []int
	themes        []string
	facets        bool
}

func newQueryCmd(g *globals) *cobra.Command {
	var f queryFlags

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run one search and print the ranked page as JSON",
		Long: `Runs the full ranking pipeline against the configured store.

Examples:
  ideasearch query "blockchain payments"
  ideasearch query "fraud detection 2023" --tech-stack Python --mode boost
  ideasearch query --facets`,
		Args: func(_ *cobra.Command, args []string) error {
			if f.facets {
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("query text is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var req request.Request
			if !f.facets {
				var err error
				if req, err = f.request(strings.Join(args, " ")); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := buildApp(ctx, &g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.close()

			if f.facets {
				h, err := a.search.Facets(ctx)
				if err != nil {
					return fmt.Errorf("facets: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), chiTransport.FacetsResponse{Facets: h})
			}

			page, err := a.search.Search(ctx, &req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), chiTransport.NewSearchResponse(&page))
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.provider, "provider", "", "preferred embedding provider")
	fl.StringVar(&f.mode, "mode", string(mode.Filter), "facet mode: filter or boost")
	fl.IntVar(&f.limit, "limit", request.DefaultLimit, "page size")
	fl.IntVar(&f.offset, "offset", 0, "page offset")
	fl.StringSliceVar(&f.domain, "domain", nil, "domain facet values")
	fl.StringSliceVar(&f.businessGroup, "business-group", nil, "business group facet values")
	fl.StringSliceVar(&f.techStack, "tech-stack", nil, "tech stack facet values")
	fl.StringSliceVar(&f.buildPhase, "build-phase", nil, "build phase facet values")
	fl.IntSliceVar(&f.years, "year", nil, "creation years")
	fl.StringSliceVar(&f.themes, "theme", nil, "extra theme keywords")
	fl.BoolVar(&f.facets, "facets", false, "print facet counts over the stored ideas instead of searching")
	return cmd
}

// request validates the flags the same way the HTTP API validates a body.
func (f *queryFlags) request(text string) (request.Request, error) {
	filters, err := filter.New(f.domain, f.businessGroup, f.techStack, f.buildPhase, f.years, nil)
	if err != nil {
		return request.Request{}, err //nolint:wrapcheck // validation errors are returned as-is
	}
	return request.New(text, f.provider, filters, mode.Mode(f.mode), f.limit, f.offset, f.themes) //nolint:wrapcheck // validation
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
