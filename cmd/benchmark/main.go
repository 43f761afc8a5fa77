package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/punchamoorthee/ledgerops/internal/store"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	operation   string
	accounts    int
)

// Metrics
var (
	totalRequests uint64
	success200    uint64
	reject4xx     uint64 // insufficient funds, validation
	fail409       uint64 // lock conflicts surfaced by the database
	failOther     uint64
)

var categories = []domain.Category{
	domain.CategoryFood, domain.CategoryCafe, domain.CategoryShopping,
	domain.CategoryTransportation, domain.CategoryCulture, domain.CategoryEtc,
}

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.StringVar(&operation, "op", "transfer", "Operation: transfer | payment | mixed")
	flag.IntVar(&accounts, "accounts", 1000, "Number of seeded accounts")
}

func main() {
	flag.Parse()
	slog.Info("starting benchmark", "workload", workload, "op", operation, "workers", concurrency, "duration", duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		path, payload := nextRequest()
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest(http.MethodPost, targetURL+path, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch {
		case resp.StatusCode == http.StatusOK:
			atomic.AddUint64(&success200, 1)
		case resp.StatusCode == http.StatusConflict:
			atomic.AddUint64(&fail409, 1)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			atomic.AddUint64(&reject4xx, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func nextRequest() (string, map[string]interface{}) {
	op := operation
	if op == "mixed" {
		op = "transfer"
		if rand.Intn(2) == 0 {
			op = "payment"
		}
	}

	from, to := generateAccounts()
	if op == "payment" {
		return "/api/transactions/payment", map[string]interface{}{
			"accountNumber": store.DemoAccountNumber(from),
			"password":      store.DemoPassword,
			"amount":        10,
			"category":      categories[rand.Intn(len(categories))],
			"merchantName":  "bench-merchant",
		}
	}
	return "/api/transactions/transfer", map[string]interface{}{
		"fromAccountNumber": store.DemoAccountNumber(from),
		"password":          store.DemoPassword,
		"toAccountNumber":   store.DemoAccountNumber(to),
		"amount":            100,
	}
}

func generateAccounts() (int, int) {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic goes to accounts 1 & 2
		if rand.Float32() < 0.90 {
			if rand.Float32() < 0.5 {
				return 1, 2
			}
			return 2, 1
		}
	}

	a := rand.Intn(accounts) + 1
	b := rand.Intn(accounts) + 1
	for a == b {
		b = rand.Intn(accounts) + 1
	}
	return a, b
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&success200)
	rejected := atomic.LoadUint64(&reject4xx)
	f409 := atomic.LoadUint64(&fail409)
	fErr := atomic.LoadUint64(&failOther)

	var abortRate float64
	if total > 0 {
		abortRate = float64(f409) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":        workload,
		"operation":       operation,
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_tps":  float64(total) / d.Seconds(),
		"success":         ok,
		"rejected":        rejected,
		"aborts_conflict": f409,
		"abort_rate_pct":  abortRate,
		"errors":          fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s_%s.json", workload, operation)
	file, err := os.Create(filename)
	if err != nil {
		slog.Error("unable to write results file", "file", filename, "error", err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
