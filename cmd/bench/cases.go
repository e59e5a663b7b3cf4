// README: Smoke and load cases: environment, migration, pricing, compliance and RSE counter atomicity.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

// quoteBody is a 50km / 60min client-direct transfer.
func quoteBody() map[string]any {
	return map[string]any{
		"request": map[string]any{
			"contactId":                "bench-contact",
			"vehicleCategoryId":        "sedan",
			"tripType":                 "transfer",
			"pickup":                   map[string]any{"lat": 48.8566, "lng": 2.3522},
			"dropoff":                  map[string]any{"lat": 49.0097, "lng": 2.5479},
			"estimatedDistanceKm":      50,
			"estimatedDurationMinutes": 60,
		},
		"context": map[string]any{
			"organizationId":  "bench-org",
			"contact":         map[string]any{"id": "bench-contact"},
			"vehicleCategory": map[string]any{"id": "sedan", "code": "SEDAN", "regulatoryCategory": "LIGHT"},
		},
	}
}

func heavyMission() map[string]any {
	return map[string]any{
		"regulatoryCategory": "HEAVY",
		"segments":           []map[string]any{{"name": "service", "distanceKm": 600, "durationMinutes": 600}},
	}
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: StatusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("%d tables", len(tables))}
			},
		},
		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, http.StatusOK),

		httpCase("Pricing: client-direct transfer", base+"/api/pricing/calculate", quoteBody(), http.StatusOK),
		httpCase("Pricing: missing contact -> 400", base+"/api/pricing/calculate", map[string]any{
			"request": map[string]any{"tripType": "transfer"},
		}, http.StatusBadRequest),
		{
			Name: "Pricing: override below minimum margin -> 422",
			Run: func(ctx context.Context, r *Runner) Result {
				var quoted map[string]any
				if res := r.postJSON(ctx, base+"/api/pricing/calculate", quoteBody(), &quoted); res.Status != StatusPass {
					return res
				}
				return r.expect(ctx, http.MethodPost, base+"/api/pricing/override", map[string]any{
					"result":               quoted,
					"newPrice":             1,
					"minimumMarginPercent": 10,
				}, http.StatusUnprocessableEntity)
			},
		},

		httpCase("Compliance: 10h heavy mission", base+"/api/compliance/validate", map[string]any{"input": heavyMission()}, http.StatusOK),
		httpCase("Compliance: staffing alternatives", base+"/api/compliance/alternatives", map[string]any{"input": heavyMission()}, http.StatusOK),

		{
			Name: "RSE: concurrent activity is counted exactly once",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentActivity(ctx, r, base)
			},
		},
		{
			Name: "Perf: pricing load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/pricing/calculate", quoteBody())
			},
		},
	}
}

func httpCase(name, url string, body any, okStatuses ...int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, okStatuses...)
}

func httpCaseMethod(name, method, url string, body any, okStatuses ...int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, method, url, body, okStatuses...)
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any) (*http.Response, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.httpc.Do(req)
	return resp, time.Since(start), err
}

func (r *Runner) expect(ctx context.Context, method, url string, body any, okStatuses ...int) Result {
	resp, latency, err := r.do(ctx, method, url, body)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	status := StatusFail
	if contains(okStatuses, resp.StatusCode) {
		status = StatusPass
	}
	return Result{Status: status, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
}

func (r *Runner) postJSON(ctx context.Context, url string, body, out any) Result {
	resp, latency, err := r.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	return Result{Status: StatusPass, Latency: latency}
}

// concurrentActivity records 10 driving minutes from every worker on a fresh driver and
// expects the counter to hold exactly workers * 10.
func concurrentActivity(ctx context.Context, r *Runner, base string) Result {
	key := map[string]any{
		"organizationId":     "bench-org",
		"driverId":           "bench-" + uuid.NewString(),
		"date":               time.Now().UTC().Format("2006-01-02"),
		"regulatoryCategory": "HEAVY",
	}
	body := map[string]any{"key": key, "activity": map[string]any{"drivingMinutes": 10, "amplitudeMinutes": 10}}

	var failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _, err := r.do(ctx, http.MethodPost, base+"/api/rse/activity", body)
			if err != nil {
				failed.Add(1)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := failed.Load(); n > 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("%d requests failed", n)}
	}

	url := fmt.Sprintf("%s/api/rse/counters/%s?organizationId=%s&date=%s&category=HEAVY", base, key["driverId"], key["organizationId"], key["date"])
	resp, _, err := r.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	defer resp.Body.Close()
	var counter struct {
		DrivingMinutes float64 `json:"drivingMinutes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&counter); err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	want := float64(r.cfg.Concurrency * 10)
	if counter.DrivingMinutes != want {
		return Result{Status: StatusFail, Note: fmt.Sprintf("drivingMinutes=%v want %v", counter.DrivingMinutes, want)}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("drivingMinutes=%v", counter.DrivingMinutes)}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					errCount.Add(1)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
