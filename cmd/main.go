package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/finsight/creditrag/internal/models"
	"github.com/finsight/creditrag/internal/types"
	cfgPkg "github.com/finsight/creditrag/pkg/config"
	"github.com/finsight/creditrag/pkg/edgar"
	"github.com/finsight/creditrag/pkg/llm"
	"github.com/finsight/creditrag/pkg/rag"
	"github.com/finsight/creditrag/pkg/store"
	wsserver "github.com/finsight/creditrag/server"
)

func main() {
	var (
		configPath string
		ingest     string
		serveAddr  string
		workers    int
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&ingest, "ingest", "", "Comma-separated tickers to ingest (e.g. AAPL,MSFT,TSLA)")
	flag.StringVar(&serveAddr, "serve", "", "Serve the websocket API on this address instead of the interactive loop")
	flag.IntVar(&workers, "workers", 0, "Parallel embedding workers (overrides config)")
	flag.Parse()

	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if workers > 0 {
		config.Embedding.Workers = workers
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(config, ingest, serveAddr); err != nil {
		log.Fatal(err)
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func newIndex(config *cfgPkg.Config) (types.VectorIndex, error) {
	switch config.Index.Backend {
	case "pgvector":
		return store.NewWithConfig(store.VectorStoreConfig{
			ConnString: config.Database.URL,
			TableName:  config.Database.TableName,
			VectorDim:  config.Embedding.VectorDim,
			BatchSize:  config.Database.BatchSize,
			Metric:     store.Metric(config.Index.Metric),
		})
	default:
		return store.NewMemoryIndex(store.MemoryIndexConfig{
			Path:      config.Index.Path,
			VectorDim: config.Embedding.VectorDim,
			Metric:    store.Metric(config.Index.Metric),
		})
	}
}

func newEmbedderFactory(config *cfgPkg.Config) types.EmbedderFactory {
	if config.Embedding.Local {
		return llm.LocalFactory(config.Embedding.VectorDim)
	}
	return llm.Factory(llm.EmbedderConfig{
		Model:     config.Embedding.Model,
		BaseURL:   config.Embedding.BaseURL,
		VectorDim: config.Embedding.VectorDim,
	})
}

func run(config *cfgPkg.Config, ingest, serveAddr string) error {
	index, err := newIndex(config)
	if err != nil {
		return fmt.Errorf("failed to initialize vector index: %w", err)
	}
	defer index.Close()

	engine, err := rag.NewWithConfig(rag.RAGConfig{
		ChunkSize:    config.Chunker.ChunkSize,
		ChunkOverlap: config.Chunker.ChunkOverlap,
		Workers:      config.Embedding.Workers,
	}, newEmbedderFactory(config), index)
	if err != nil {
		return fmt.Errorf("failed to initialize retrieval engine: %w", err)
	}

	ctx := context.Background()

	if ingest != "" {
		tickers := strings.Split(strings.ToUpper(ingest), ",")
		if err := buildDatabase(ctx, config, engine, tickers); err != nil {
			return err
		}
	}

	analyst, err := llm.NewAnalystWithConfig(llm.AnalystConfig{
		Model:       config.LLM.Model,
		MaxTokens:   config.LLM.MaxTokens,
		Temperature: config.LLM.Temperature,
		BaseURL:     config.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize analyst: %w", err)
	}

	if serveAddr != "" {
		color.Cyan("Serving websocket API on %s", serveAddr)
		return wsserver.New(engine, analyst).ListenAndServe(serveAddr)
	}

	return interactive(ctx, engine, analyst)
}

func buildDatabase(ctx context.Context, config *cfgPkg.Config, engine *rag.RAG, tickers []string) error {
	client, err := edgar.NewWithConfig(edgar.ClientConfig{
		UserAgent: config.Edgar.UserAgent,
		RateLimit: config.Edgar.RateLimit,
		DataDir:   config.Edgar.DataDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize EDGAR client: %w", err)
	}

	color.Blue("\nBuilding 10-K database for %s (%d workers)\n",
		strings.Join(tickers, ", "), config.Embedding.Workers)

	bar := getProgressBar(len(tickers), " Ingesting filings")
	total := 0
	for ticker, count := range engine.IngestBatch(ctx, tickers, func(ctx context.Context, t string) (string, error) {
		defer bar.Add(1)
		return client.Load(ctx, t)
	}) {
		color.Green("✓ %s: %d chunks", ticker, count)
		total += count
	}
	bar.Finish()
	color.Green("\n✓ Database build complete (%d chunks)\n", total)
	return nil
}

func interactive(ctx context.Context, engine *rag.RAG, analyst *llm.Analyst) error {
	summary, err := engine.Summary(ctx)
	if err != nil {
		return err
	}
	color.Cyan("\nCredit RAG: %d chunks across %s", summary.Records, strings.Join(summary.Tickers, ", "))
	color.Cyan("Query as '<TICKER> <question>', or 'report <TICKER>' for a full analysis (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") {
			break
		}
		if line == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "report "); ok {
			ticker := strings.ToUpper(strings.TrimSpace(rest))
			report, err := analyzeTicker(ctx, engine, analyst, ticker)
			if err != nil {
				color.Red("Error: %v", err)
				continue
			}
			fmt.Printf("\n%s\n", report)
			continue
		}

		ticker, query := splitTickerQuery(line)
		result, err := engine.Retrieve(ctx, query, ticker, 5)
		if err != nil {
			if errors.Is(err, rag.ErrEmptyQuery) {
				color.Red("Please enter a question after the ticker.")
				continue
			}
			color.Red("Error: %v", err)
			continue
		}

		for i, chunk := range result.Chunks {
			color.Yellow("\n[%d] %s %s chunk %d/%d (distance %.4f)",
				i+1, chunk.Metadata.Ticker, chunk.Metadata.DocType,
				chunk.Metadata.ChunkID, chunk.Metadata.TotalChunks, chunk.Distance)
			fmt.Println(truncate(chunk.Text, 400))
		}
		if len(result.Chunks) == 0 {
			color.Yellow("No matching chunks.")
		}
	}
	return nil
}

func analyzeTicker(ctx context.Context, engine *rag.RAG, analyst *llm.Analyst, ticker string) (string, error) {
	risk, err := engine.GetRiskFactors(ctx, ticker, 0)
	if err != nil {
		return "", err
	}
	financial, err := engine.GetFinancialPerformance(ctx, ticker, 0)
	if err != nil {
		return "", err
	}
	debt, err := engine.GetDebtDiscussion(ctx, ticker, 0)
	if err != nil {
		return "", err
	}

	return analyst.Analyze(ctx, ticker, map[string]models.RetrievalResult{
		"RISK FACTORS":          risk,
		"FINANCIAL PERFORMANCE": financial,
		"DEBT AND LIQUIDITY":    debt,
	})
}

// splitTickerQuery interprets a leading all-caps token as a ticker filter.
func splitTickerQuery(line string) (ticker, query string) {
	first, rest, found := strings.Cut(line, " ")
	if found && first == strings.ToUpper(first) && len(first) <= 6 {
		return first, rest
	}
	return "", line
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
