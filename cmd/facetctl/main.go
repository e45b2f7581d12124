// facetctl queries a running facetdex server the way a browser client does: it downloads the
// flattened documents of a data source into a local search worker and runs queries against it.
//
// Usage:
//
//	facetctl -base http://localhost:8080 -ds films -q amour -filter genre=Drama -sort title_asc
//	facetctl -ds films -insights genre -group-by gender
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain/facet"
	"github.com/kailas-cloud/facetdex/internal/engine"
	"github.com/kailas-cloud/facetdex/internal/insights"
	logpkg "github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/version"
	"github.com/kailas-cloud/facetdex/internal/worker"
)

func main() {
	cfg := parseFlags(os.Args[1:])

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		cancel()
		log.Fatal(err)
	}
}

// filterFlag collects repeated -filter facet=value flags.
type filterFlag map[string][]string

func (f filterFlag) String() string {
	parts := make([]string, 0, len(f))
	for k, vs := range f {
		for _, v := range vs {
			parts = append(parts, k+"="+v)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (f filterFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("filter must be facet=value, got %q", s)
	}
	f[name] = append(f[name], value)
	return nil
}

type config struct {
	base     string
	ds       string
	query    string
	sort     string
	page     int
	perPage  int
	filters  filterFlag
	insights string
	groupBy  string
	asJSON   bool
	verbose  bool
	timeout  time.Duration
}

func parseFlags(args []string) config {
	cfg := config{filters: filterFlag{}}
	fs := flag.NewFlagSet("facetctl", flag.ExitOnError)
	fs.StringVar(&cfg.base, "base", "http://localhost:8080", "server base URL")
	fs.StringVar(&cfg.ds, "ds", "films", "data source")
	fs.StringVar(&cfg.query, "q", "", "full-text query")
	fs.StringVar(&cfg.sort, "sort", "", "sort key")
	fs.IntVar(&cfg.page, "page", 1, "page number")
	fs.IntVar(&cfg.perPage, "per-page", engine.DefaultPerPage, "items per page")
	fs.Var(cfg.filters, "filter", "facet=value filter (repeatable)")
	fs.StringVar(&cfg.insights, "insights", "", "facet to chart instead of listing items")
	fs.StringVar(&cfg.groupBy, "group-by", "", "facet to group insights by")
	fs.BoolVar(&cfg.asJSON, "json", false, "print raw JSON results")
	fs.BoolVar(&cfg.verbose, "v", false, "log worker activity")
	fs.DurationVar(&cfg.timeout, "timeout", time.Minute, "overall timeout")
	_ = fs.Parse(args)
	return cfg
}

func run(ctx context.Context, cfg config, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	logger := zap.NewNop()
	if cfg.verbose {
		var err error
		if logger, err = logpkg.NewLogger("local", "debug"); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
	}
	logger.Debug("facetctl", zap.String("version", version.Version))

	client := &http.Client{Timeout: cfg.timeout}
	fcfg, err := fetchConfig(ctx, client, cfg.base, cfg.ds)
	if err != nil {
		return err
	}

	host := worker.NewHost(worker.New(worker.NewHTTPFetcher(client), worker.WithLogger(logger)))
	defer host.Terminate()

	if err := host.Init(ctx, cfg.base, cfg.ds, fcfg); err != nil {
		return fmt.Errorf("init worker: %w", err)
	}
	if _, err := await(ctx, host); err != nil {
		return fmt.Errorf("load %s: %w", cfg.ds, err)
	}

	req := engine.Request{
		DataSource: cfg.ds,
		Query:      cfg.query,
		Page:       cfg.page,
		PerPage:    cfg.perPage,
		Sort:       cfg.sort,
		Filters:    cfg.filters,
	}
	if cfg.insights != "" {
		req.Page, req.PerPage = 1, 1<<30
		if err := host.Insights(req); err != nil {
			return fmt.Errorf("insights: %w", err)
		}
	} else if err := host.Search(req); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	msg, err := await(ctx, host)
	if err != nil {
		return err
	}
	p, _ := msg.Results()
	if p.Results == nil {
		return errors.New("empty results")
	}

	if cfg.insights != "" {
		return printInsights(out, p.Results, cfg.insights, cfg.groupBy, cfg.asJSON)
	}
	return printResults(out, p.Results, cfg.asJSON)
}

// await blocks until the host delivers ready, results, or an error.
func await(ctx context.Context, host *worker.Host) (worker.Message, error) {
	select {
	case msg, ok := <-host.Updates():
		if !ok {
			return worker.Message{}, errors.New("worker terminated")
		}
		if err := msg.Err(); err != nil {
			return worker.Message{}, err
		}
		return msg, nil
	case <-ctx.Done():
		return worker.Message{}, ctx.Err()
	}
}

func fetchConfig(ctx context.Context, client *http.Client, base, ds string) (facet.Config, error) {
	url := strings.TrimRight(base, "/") + "/config/" + ds
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return facet.Config{}, fmt.Errorf("config request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return facet.Config{}, fmt.Errorf("get config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return facet.Config{}, fmt.Errorf("get config: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var cfg facet.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return facet.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func printResults(out io.Writer, res *engine.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "page %d (%d per page), %d total\n\n", res.Pagination.Page, res.Pagination.PerPage, res.Pagination.Total)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE")
	for _, doc := range res.Items {
		fmt.Fprintf(tw, "%s\t%s\n", doc.ID(), strings.Join(doc.Get("title").Keys(), " / "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	names := make([]string, 0, len(res.Aggregations))
	for name := range res.Aggregations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		agg := res.Aggregations[name]
		if len(agg.Buckets) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s\n", agg.Title)
		for _, b := range agg.Buckets {
			mark := " "
			if b.Selected {
				mark = "*"
			}
			fmt.Fprintf(out, " %s %-40s %d\n", mark, b.Key, b.DocCount)
		}
	}
	return nil
}

func printInsights(out io.Writer, res *engine.Result, facetName, groupBy string, asJSON bool) error {
	primary, ok := res.Aggregations[facetName]
	if !ok {
		return fmt.Errorf("unknown facet %q", facetName)
	}
	var groups []engine.Bucket
	if groupBy != "" {
		agg, ok := res.Aggregations[groupBy]
		if !ok {
			return fmt.Errorf("unknown facet %q", groupBy)
		}
		groups = agg.Buckets
	}
	rows := insights.GroupedBuckets(facetName, primary.Buckets, groupBy, groups, res.Items)
	label := insights.SummaryLabel(insights.Buckets(rows), primary.Title)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"rows": rows, "label": label})
	}

	fmt.Fprintln(out, label)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", r.Key, r.DocCount)
		for _, g := range r.Groups {
			fmt.Fprintf(tw, "  %s\t%d\n", g.Key, g.DocCount)
		}
	}
	return tw.Flush()
}
