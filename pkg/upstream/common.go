package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"climate-harvester/pkg/metrics"
)

// Options configures an upstream client.
type Options struct {
	// URLTemplate is a fmt template; see the client constructors for the verb order.
	URLTemplate string
	Timeout     time.Duration
	// BreakerFailures consecutive failures open the circuit; zero disables tripping.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

var (
	// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
	ErrCircuitOpen = errors.New("upstream circuit breaker open")
	// ErrEmptyResponse is returned when the upstream answered with a header but no data rows.
	ErrEmptyResponse = errors.New("upstream returned no rows")
)

// StatusError reports a non-200 upstream response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// IsTransient reports whether retrying later might succeed
func (e *StatusError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// csvFetcher performs single-attempt CSV downloads behind a circuit breaker.
type csvFetcher struct {
	service    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Collector
}

func newCSVFetcher(service string, opts Options, m *metrics.Collector) *csvFetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
	})

	return &csvFetcher{
		service:    service,
		httpClient: client,
		breaker:    breaker,
		metrics:    m,
	}
}

// fetch downloads url and returns its CSV header (column name -> index) and data rows.
func (f *csvFetcher) fetch(ctx context.Context, url string) (map[string]int, [][]string, error) {
	start := time.Now()

	result, err := f.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request to %s failed: %w", f.service, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
		}

		return readCSV(resp.Body)
	})

	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "rejected"
			err = fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
	}
	if f.metrics != nil {
		f.metrics.RecordUpstream(f.service, status, time.Since(start))
	}
	if err != nil {
		return nil, nil, err
	}

	table := result.(*csvTable)
	return table.header, table.rows, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvTable struct {
	header map[string]int
	rows   [][]string
}

func readCSV(r io.Reader) (*csvTable, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to parse csv: missing header")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}

	return &csvTable{header: header, rows: records[1:]}, nil
}

// column returns the trimmed cell for name, or "" if the column or cell is absent.
func column(header map[string]int, row []string, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func requireColumns(header map[string]int, names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := header[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("csv is missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
