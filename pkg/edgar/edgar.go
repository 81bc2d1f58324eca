package edgar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// ErrFilingNotFound means no filing could be located for the ticker, either
// on disk or on EDGAR. Batch ingestion logs it and moves on.
var ErrFilingNotFound = errors.New("no 10-K filing found")

var (
	browseURL   = "https://www.sec.gov/cgi-bin/browse-edgar"
	archivesURL = "https://www.sec.gov"
)

// ClientConfig configures the EDGAR client. SEC fair-access rules require a
// descriptive User-Agent with a contact address and cap automated traffic at
// 10 requests per second.
type ClientConfig struct {
	UserAgent  string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	DataDir    string // root of the sec-edgar-filings layout
	OnProgress func(ticker string)
}

// Client downloads 10-K full-submission filings and loads them from the
// local data directory.
type Client struct {
	config  ClientConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewWithConfig creates a Client. The User-Agent is mandatory: EDGAR
// rejects anonymous automated clients.
func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.UserAgent == "" {
		return nil, fmt.Errorf("EDGAR requires a User-Agent identifying your company and contact email")
	}
	if config.RateLimit == 0 {
		config.RateLimit = 8 // stay under the SEC's 10 req/s ceiling
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.DataDir == "" {
		config.DataDir = filepath.Join("data", "raw")
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// filingDir returns the directory holding a ticker's 10-K submissions.
func (c *Client) filingDir(ticker string) string {
	return filepath.Join(c.config.DataDir, "sec-edgar-filings", ticker, "10-K")
}

// LoadFiling reads a previously downloaded full-submission.txt for the
// ticker. Returns ErrFilingNotFound when none exists.
func (c *Client) LoadFiling(ctx context.Context, ticker string) (string, error) {
	var path string
	root := c.filingDir(ticker)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "full-submission.txt" {
			path = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if path == "" {
		return "", fmt.Errorf("%w for %s in %s", ErrFilingNotFound, ticker, root)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Download fetches the most recent 10-K full submission for the ticker from
// EDGAR and writes it into the local layout LoadFiling reads. Returns the
// path of the stored file.
func (c *Client) Download(ctx context.Context, ticker string) (string, error) {
	submissionURL, accession, err := c.latestFilingURL(ctx, ticker)
	if err != nil {
		return "", err
	}

	body, err := c.get(ctx, submissionURL)
	if err != nil {
		return "", fmt.Errorf("failed to download filing for %s: %w", ticker, err)
	}
	defer body.Close()

	dir := filepath.Join(c.filingDir(ticker), accession)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "full-submission.txt")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if c.config.OnProgress != nil {
		c.config.OnProgress(ticker)
	}
	return path, nil
}

// Load returns the local filing for the ticker, downloading it first when
// the data directory has none. This is the FilingLoader the batch builder
// uses.
func (c *Client) Load(ctx context.Context, ticker string) (string, error) {
	text, err := c.LoadFiling(ctx, ticker)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, ErrFilingNotFound) {
		return "", err
	}
	if _, err := c.Download(ctx, ticker); err != nil {
		return "", err
	}
	return c.LoadFiling(ctx, ticker)
}

// latestFilingURL scrapes the EDGAR browse page for the ticker's newest
// 10-K and derives the full-submission URL from the filing index link.
func (c *Client) latestFilingURL(ctx context.Context, ticker string) (submission, accession string, err error) {
	q := url.Values{
		"action": {"getcompany"},
		"ticker": {ticker},
		"type":   {"10-K"},
		"owner":  {"include"},
		"count":  {"10"},
	}

	body, err := c.get(ctx, browseURL+"?"+q.Encode())
	if err != nil {
		return "", "", fmt.Errorf("failed to browse EDGAR for %s: %w", ticker, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse EDGAR response: %w", err)
	}

	var indexHref string
	doc.Find("table.tableFile2 tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		// first column is the filing type; take the first exact 10-K row
		if strings.TrimSpace(row.Find("td").First().Text()) != "10-K" {
			return true
		}
		href, ok := row.Find("a#documentsbutton").Attr("href")
		if !ok {
			href, ok = row.Find("td a").First().Attr("href")
		}
		if ok {
			indexHref = href
			return false
		}
		return true
	})
	if indexHref == "" {
		return "", "", fmt.Errorf("%w for %s on EDGAR", ErrFilingNotFound, ticker)
	}

	// /Archives/.../0000320193-23-000106-index.htm -> .../0000320193-23-000106.txt
	base := strings.TrimSuffix(indexHref, "-index.htm")
	base = strings.TrimSuffix(base, "-index.html")
	accession = filepath.Base(base)
	return archivesURL + base + ".txt", accession, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, rawURL)
	}
	return resp.Body, nil
}
