// Command loadtest drives concurrent queries against a running searcher
// and reports latency percentiles, status codes, outcomes and cache hits.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	rps         float64
	topN        int
	alpha       float64
	queries     []string
}

var defaultQueries = []string{
	"neural network training",
	"information retrieval",
	"cosine similarity",
	"term frequency weighting",
	"document clustering",
	"support vector machine",
	"deep learning",
	"natural language processing",
	"image classification",
	"graph algorithms",
	"reinforcement learning",
	"feature selection",
	"query expansion",
	"stemming and stop words",
	"vector space model",
}

func main() {
	opts := options{queries: defaultQueries}
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the search service")
	flag.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "test duration")
	flag.Float64Var(&opts.rps, "rps", 0, "overall request rate cap (0 = unlimited)")
	flag.IntVar(&opts.topN, "top-n", 5, "top_n sent with every query")
	flag.Float64Var(&opts.alpha, "alpha", 0.05, "alpha sent with every query")
	queryFile := flag.String("queries", "", "file with one query per line (default: built-in set)")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	if *queryFile != "" {
		loaded, err := loadQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
			os.Exit(1)
		}
		opts.queries = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*asJSON {
		fmt.Printf("searching %s with %d workers for %s (%d queries, top_n=%d, alpha=%g)\n",
			opts.baseURL, opts.concurrency, opts.duration, len(opts.queries), opts.topN, opts.alpha)
	}
	rec := run(ctx, opts)
	rep := rec.summarize()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(rep)
	} else {
		rep.print(os.Stdout)
	}
	if rep.Requests == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is the searcher running?")
		os.Exit(1)
	}
}

func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}

// searchURL builds the request for the i-th query of the rotation.
func (o options) searchURL(i int) string {
	v := url.Values{}
	v.Set("q", o.queries[i%len(o.queries)])
	v.Set("top_n", fmt.Sprint(o.topN))
	v.Set("alpha", fmt.Sprint(o.alpha))
	return strings.TrimRight(o.baseURL, "/") + "/api/v1/search?" + v.Encode()
}

func run(ctx context.Context, opts options) *recorder {
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rps), max(1, int(opts.rps)/10))
	}

	rec := newRecorder()
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := range opts.concurrency {
		g.Go(func() error {
			for i := w; ; i += opts.concurrency {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				sample, err := query(ctx, client, opts.searchURL(i))
				if ctx.Err() != nil {
					return nil
				}
				rec.add(sample, err)
			}
		})
	}
	g.Wait()
	rec.elapsed = time.Since(start)
	return rec
}

type sample struct {
	latency  time.Duration
	status   int
	outcome  string
	cacheHit bool
}

func query(ctx context.Context, client *http.Client, rawURL string) (sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return sample{}, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return sample{}, err
	}
	defer resp.Body.Close()

	s := sample{status: resp.StatusCode}
	var body struct {
		Outcome  string `json:"outcome"`
		CacheHit bool   `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return sample{}, fmt.Errorf("decoding response: %w", err)
		}
		s.outcome = body.Outcome
		s.cacheHit = body.CacheHit
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	s.latency = time.Since(start)
	return s, nil
}

type recorder struct {
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int
	outcomes  map[string]int
	cacheHits int
	failures  int
	elapsed   time.Duration
}

func newRecorder() *recorder {
	return &recorder{
		latencies: make([]time.Duration, 0, 1<<14),
		statuses:  make(map[int]int),
		outcomes:  make(map[string]int),
	}
}

func (r *recorder) add(s sample, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failures++
		return
	}
	r.latencies = append(r.latencies, s.latency)
	r.statuses[s.status]++
	if s.outcome != "" {
		r.outcomes[s.outcome]++
	}
	if s.cacheHit {
		r.cacheHits++
	}
}

type report struct {
	Requests   int            `json:"requests"`
	Failures   int            `json:"transport_failures"`
	Throughput float64        `json:"requests_per_sec"`
	CacheHits  int            `json:"cache_hits"`
	Statuses   map[int]int    `json:"status_codes"`
	Outcomes   map[string]int `json:"outcomes"`
	Min        time.Duration  `json:"min_ns"`
	P50        time.Duration  `json:"p50_ns"`
	P90        time.Duration  `json:"p90_ns"`
	P95        time.Duration  `json:"p95_ns"`
	P99        time.Duration  `json:"p99_ns"`
	Max        time.Duration  `json:"max_ns"`
}

func (r *recorder) summarize() report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := report{
		Requests:  len(r.latencies) + r.failures,
		Failures:  r.failures,
		CacheHits: r.cacheHits,
		Statuses:  r.statuses,
		Outcomes:  r.outcomes,
	}
	if r.elapsed > 0 {
		rep.Throughput = float64(rep.Requests) / r.elapsed.Seconds()
	}
	sorted := slices.Clone(r.latencies)
	slices.Sort(sorted)
	if len(sorted) > 0 {
		rep.Min = sorted[0]
		rep.Max = sorted[len(sorted)-1]
		rep.P50 = percentile(sorted, 50)
		rep.P90 = percentile(sorted, 90)
		rep.P95 = percentile(sorted, 95)
		rep.P99 = percentile(sorted, 99)
	}
	return rep
}

func (rep report) print(w io.Writer) {
	fmt.Fprintf(w, "\nrequests   %d (%.1f/s), transport failures %d\n", rep.Requests, rep.Throughput, rep.Failures)
	fmt.Fprintf(w, "cache hits %d\n", rep.CacheHits)
	fmt.Fprintf(w, "latency    min %s  p50 %s  p90 %s  p95 %s  p99 %s  max %s\n",
		rep.Min, rep.P50, rep.P90, rep.P95, rep.P99, rep.Max)

	codes := make([]int, 0, len(rep.Statuses))
	for code := range rep.Statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "status %d  %d\n", code, rep.Statuses[code])
	}
	outcomes := make([]string, 0, len(rep.Outcomes))
	for o := range rep.Outcomes {
		outcomes = append(outcomes, o)
	}
	slices.Sort(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "outcome %-12s %d\n", o, rep.Outcomes[o])
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(len(sorted))*p/100)) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
