package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjlee133/academyradar/config"
	"sjlee133/academyradar/internal/adapter"
	"sjlee133/academyradar/internal/browser"
	"sjlee133/academyradar/internal/crawl"
	"sjlee133/academyradar/internal/normalize"
	"sjlee133/academyradar/internal/store"
	"sjlee133/academyradar/logger"
	"sjlee133/academyradar/services/cache"
	"sjlee133/academyradar/services/publisher"
)

type app struct {
	cfg          *config.Config
	store        store.Store
	orchestrator *crawl.Orchestrator
	closers      []func()
}

func main() {
	godotenv.Load()
	logger.Init()

	root := &cobra.Command{
		Use:          "academyradar",
		Short:        "Crawls Korean community sites for academy mentions",
		SilenceUsage: true,
	}

	root.AddCommand(
		newCrawlTargetCmd(),
		newCrawlAllCmd(),
		newSearchCmd(),
		newDetailCmd(),
		newJobsCmd(),
		newAddSourceCmd(),
		newAddTargetCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.LoadConfig()
	a := &app{cfg: cfg}

	if cfg.DatabaseURL != "" {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.store = pg
		a.closers = append(a.closers, pg.Close)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		a.store = store.NewMemoryStore()
	}

	var pub publisher.Publisher
	if cfg.RedisAddr != "" {
		redisPub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisMaxLen)
		pub = redisPub
		a.closers = append(a.closers, func() { redisPub.Close() })
	}

	base := adapter.Options{
		NaverClientID:     cfg.NaverClientID,
		NaverClientSecret: cfg.NaverClientSecret,
		NaverLoginID:      cfg.NaverLoginID,
		NaverLoginPass:    cfg.NaverLoginPassword,
		KakaoRESTKey:      cfg.KakaoRESTKey,
		Timeout:           cfg.RequestTimeout,
		Headless:          cfg.BrowserHeadless,
		CacheSvc:          cache.NewMemcacheService(cfg.MemcacheAddr),
		NewSession:        browser.NewChromeSession,
	}

	executor := crawl.NewExecutor(a.store, adapter.Create, base, pub)
	a.orchestrator = crawl.NewOrchestrator(a.store, executor, adapter.Create, base)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		c()
	}
}

func (a *app) jobOptions(persistSamples bool, startDate, endDate string) crawl.JobOptions {
	return crawl.JobOptions{
		MaxResults:     a.cfg.MaxResults,
		DateRange:      parseDateRange(startDate, endDate),
		PersistSamples: persistSamples || a.cfg.PersistSamples,
	}
}

func parseDateRange(startDate, endDate string) adapter.DateRange {
	now := time.Now()
	var dr adapter.DateRange
	if startDate != "" {
		dr.Start = normalize.Date(now, startDate)
	}
	if endDate != "" {
		if end := normalize.Date(now, endDate); end != nil {
			eod := end.Add(24*time.Hour - time.Nanosecond)
			dr.End = &eod
		}
	}
	return dr
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func resolveTarget(ctx context.Context, st store.Store, ref string) (*store.Target, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return st.GetTarget(ctx, id)
	}
	return st.GetTargetBySlug(ctx, ref)
}

func newCrawlTargetCmd() *cobra.Command {
	var persistSamples bool
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "crawl-target <slug-or-id>",
		Short: "Crawl every active source for one target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			target, err := resolveTarget(ctx, a.store, args[0])
			if err != nil {
				return fmt.Errorf("target %q: %w", args[0], err)
			}

			result, err := a.orchestrator.CrawlForTarget(ctx, target.ID, a.jobOptions(persistSamples, startDate, endDate))
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&persistSamples, "persist-samples", false, "persist synthetic sample posts")
	cmd.Flags().StringVar(&startDate, "start", "", "only keep posts from this date (YYYY.MM.DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "only keep posts up to this date (YYYY.MM.DD)")
	return cmd
}

func newCrawlAllCmd() *cobra.Command {
	var persistSamples bool
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "crawl-all",
		Short: "Crawl every active source for every active target",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			outcomes, err := a.orchestrator.CrawlAllTargets(ctx, a.jobOptions(persistSamples, startDate, endDate))
			if err != nil {
				return err
			}
			return printJSON(outcomes)
		},
	}
	cmd.Flags().BoolVar(&persistSamples, "persist-samples", false, "persist synthetic sample posts")
	cmd.Flags().StringVar(&startDate, "start", "", "only keep posts from this date (YYYY.MM.DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "only keep posts up to this date (YYYY.MM.DD)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var sourceType, sourceURL, targetRef string
	var maxResults int
	var persist bool
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Run an ad-hoc keyword search against one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			req := crawl.SearchRequest{
				SourceType: sourceType,
				SourceURL:  sourceURL,
				Keyword:    args[0],
				MaxResults: maxResults,
				DateRange:  parseDateRange(startDate, endDate),
				Persist:    persist,
			}
			if persist {
				target, err := resolveTarget(ctx, a.store, targetRef)
				if err != nil {
					return fmt.Errorf("target %q: %w", targetRef, err)
				}
				req.TargetID = target.ID
			}

			result, err := a.orchestrator.Search(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&sourceType, "source-type", "", "naver_cafe, daum_cafe or dcinside")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "community URL to search")
	cmd.Flags().IntVar(&maxResults, "max", 20, "maximum results")
	cmd.Flags().BoolVar(&persist, "persist", false, "save results for a target")
	cmd.Flags().StringVar(&targetRef, "target", "", "target slug or id, required with --persist")
	cmd.Flags().StringVar(&startDate, "start", "", "only keep posts from this date (YYYY.MM.DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "only keep posts up to this date (YYYY.MM.DD)")
	cmd.MarkFlagRequired("source-type")
	cmd.MarkFlagRequired("source-url")
	return cmd
}

func newDetailCmd() *cobra.Command {
	var sourceType, sourceURL string

	cmd := &cobra.Command{
		Use:   "detail <post-url>",
		Short: "Fetch one post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			detail, err := a.orchestrator.Detail(ctx, crawl.DetailRequest{
				SourceType: sourceType,
				SourceURL:  sourceURL,
				PostURL:    args[0],
			})
			if err != nil {
				return err
			}
			return printJSON(detail)
		},
	}
	cmd.Flags().StringVar(&sourceType, "source-type", "", "naver_cafe, daum_cafe or dcinside")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "community URL the post belongs to")
	cmd.MarkFlagRequired("source-type")
	cmd.MarkFlagRequired("source-url")
	return cmd
}

func newJobsCmd() *cobra.Command {
	var targetRef, status string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List crawl jobs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			filter := store.JobFilter{Status: store.JobStatus(status)}
			if targetRef != "" {
				target, err := resolveTarget(ctx, a.store, targetRef)
				if err != nil {
					return fmt.Errorf("target %q: %w", targetRef, err)
				}
				filter.TargetID = target.ID
			}

			listing, err := a.orchestrator.ListJobs(ctx, filter, store.Pagination{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			return printJSON(listing)
		},
	}
	cmd.Flags().StringVar(&targetRef, "target", "", "filter by target slug or id")
	cmd.Flags().StringVar(&status, "status", "", "filter by job status")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func newAddSourceCmd() *cobra.Command {
	var name, url, sourceType, externalID string
	var requiresLogin bool
	var minDelayMs, maxDelayMs int

	cmd := &cobra.Command{
		Use:   "add-source",
		Short: "Register a community to crawl",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			source := &store.Source{
				Name:       name,
				URL:        url,
				SourceType: store.SourceType(sourceType),
				ExternalID: externalID,
				IsActive:   true,
				CrawlConfig: store.CrawlConfig{
					RequiresLogin: requiresLogin,
					MinDelayMs:    minDelayMs,
					MaxDelayMs:    maxDelayMs,
				},
			}
			if err := a.store.CreateSource(ctx, source); err != nil {
				return err
			}
			return printJSON(source)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&url, "url", "", "community URL")
	cmd.Flags().StringVar(&sourceType, "type", "", "naver_cafe, daum_cafe or dcinside")
	cmd.Flags().StringVar(&externalID, "external-id", "", "platform-side id (cafe id, gallery id)")
	cmd.Flags().BoolVar(&requiresLogin, "requires-login", false, "source needs a logged-in session")
	cmd.Flags().IntVar(&minDelayMs, "min-delay-ms", 1000, "politeness delay lower bound")
	cmd.Flags().IntVar(&maxDelayMs, "max-delay-ms", 3000, "politeness delay upper bound")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("url")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("external-id")
	return cmd
}

func newAddTargetCmd() *cobra.Command {
	var name, slug string
	var keywords []string

	cmd := &cobra.Command{
		Use:   "add-target",
		Short: "Register an academy to monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			target := &store.Target{
				Name:     name,
				Slug:     slug,
				Keywords: keywords,
				IsActive: true,
			}
			if err := a.store.CreateTarget(ctx, target); err != nil {
				return err
			}
			return printJSON(target)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "academy name")
	cmd.Flags().StringVar(&slug, "slug", "", "unique slug")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "search keywords")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("slug")
	cmd.MarkFlagRequired("keywords")
	return cmd
}
