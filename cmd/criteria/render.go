package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-criteria-cache/criteria"
	"github.com/goliatone/go-criteria-cache/internal/cli"
	"github.com/goliatone/go-criteria-cache/pkg/convert"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	table    string
	prefix   string
	page     int
	size     int
	sort     []string
	skip     []string
	caseFold bool
	tagged   bool
}

var renderOpts renderOptions

var renderCmd = &cobra.Command{
	Use:   "render [request.json]",
	Short: "Render a JSON search request into SQL",
	Long: `Render a JSON search request into the paged query, the count query and
the bound parameters. The request is read from the given file or stdin.`,
	Example: `  # Render the se_menus example request
  echo '{"tenantCode":"0","name":"系统"}' | criteria render --table se_menus --page 2 --size 15 --sort name`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return cli.RequestError("opening request", err)
			}
			defer func() { _ = f.Close() }()
			in = f
		}
		opts := renderOpts
		opts.caseFold = opts.caseFold || cfg.Server.CaseFold
		return runRender(in, cmd.OutOrStdout(), opts)
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderOpts.table, "table", "se_menus", "source table")
	f.StringVar(&renderOpts.prefix, "prefix", "", "table alias qualifying columns")
	f.IntVar(&renderOpts.page, "page", 0, "zero based page number")
	f.IntVar(&renderOpts.size, "size", 0, "page size, 0 renders no LIMIT")
	f.StringArrayVar(&renderOpts.sort, "sort", nil, "sort order, e.g. name,desc (repeatable)")
	f.StringSliceVar(&renderOpts.skip, "skip", nil, "request properties to ignore")
	f.BoolVar(&renderOpts.caseFold, "casefold", false, "render LIKE filters case-insensitively")
	f.BoolVar(&renderOpts.tagged, "tagged", false, `decode tagged string values such as "time:2024-01-01T00:00:00Z" or "int:42"`)
}

type renderResult struct {
	SQL      string         `json:"sql"`
	CountSQL string         `json:"countSql"`
	Params   map[string]any `json:"params"`
}

func runRender(in io.Reader, out io.Writer, opts renderOptions) error {
	request, err := readRequest(in)
	if err != nil {
		return err
	}
	if opts.tagged {
		if err := decodeTagged(convert.NewDefaultRegistry(), request); err != nil {
			return cli.RequestError("decoding tagged value", err)
		}
	}

	page, err := criteria.ParsePageable(opts.page, opts.size, opts.sort...)
	if err != nil {
		return cli.RequestError("parsing pagination", err)
	}

	alias := opts.prefix
	source := opts.table
	if alias != "" {
		source += " " + alias
	}

	preds := criteria.NewSynthesizer(nil, nil).Predicates(request, alias, opts.skip...)
	q, err := criteria.NewFragment().
		From(source).
		Where(preds...).
		PageableWithPrefix(page, alias).
		CaseFold(opts.caseFold).
		Build()
	if err != nil {
		return cli.RequestError("rendering query", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(renderResult{SQL: q.SQL(), CountSQL: q.CountSQL(), Params: q.Params()})
}

func readRequest(in io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, cli.RequestError("reading request", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var request map[string]any
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, cli.RequestError("decoding request", fmt.Errorf("request must be a JSON object: %w", err))
	}
	return request, nil
}

// decodeTagged replaces tagged string literals in request, including the
// elements of arrays, with their typed values.
func decodeTagged(codecs *convert.Registry, request map[string]any) error {
	for k, v := range request {
		decoded, err := decodeValue(codecs, v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		request[k] = decoded
	}
	return nil
}

func decodeValue(codecs *convert.Registry, v any) (any, error) {
	switch t := v.(type) {
	case string:
		return codecs.ParseTagged(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			d, err := decodeValue(codecs, e)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case map[string]any:
		return t, decodeTagged(codecs, t)
	}
	return v, nil
}
