package main

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// Start `datasync serve` with DATASYNC_API_URL=http://127.0.0.1:18000 and
// webServer.port 18090 before running this.
const (
	baseURL      = "http://127.0.0.1:18090"
	upstreamAddr = "127.0.0.1:18000"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numTracks    = 5000
	numUsers     = 1000
)

var categories = []string{"tracks", "users", "listen_history"}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

// upstream serves generated records the way the source API pages them.
// Every generation bumps updated_at on a slice of the records so each run
// has something to merge.
type upstream struct {
	generation atomic.Int64
	started    time.Time
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 || size < 1 {
		http.Error(w, "bad paging", http.StatusBadRequest)
		return
	}

	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	total := numTracks
	if endpoint != "tracks" {
		total = numUsers
	}

	gen := u.generation.Load()
	items := make([]map[string]any, 0, size)
	for id := (page-1)*size + 1; id <= page*size && id <= total; id++ {
		items = append(items, u.record(endpoint, id, gen))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func (u *upstream) record(endpoint string, id int, gen int64) map[string]any {
	created := u.started.Add(-time.Duration(id) * time.Minute)
	updated := created
	if int64(id)%10 == gen%10 {
		updated = time.Now().Add(time.Minute)
	}
	rec := map[string]any{
		"created_at": created.UTC().Format(time.RFC3339),
		"updated_at": updated.UTC().Format(time.RFC3339),
	}
	switch endpoint {
	case "tracks":
		rec["id"] = id
		rec["name"] = fmt.Sprintf("track %d", id)
		rec["artist"] = fmt.Sprintf("artist %d", id%97)
		rec["duration"] = fmt.Sprintf("%d:%02d", id%7+1, id%60)
	case "users":
		rec["id"] = id
		rec["first_name"] = fmt.Sprintf("first%d", id)
		rec["last_name"] = fmt.Sprintf("last%d", id)
	default:
		rec["user_id"] = id
		rec["items"] = []int{id % numTracks, (id * 7) % numTracks}
	}
	return rec
}

func main() {
	fmt.Println("=== DataSync Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Upstream: %s | Tracks: %d | Users: %d\n\n", upstreamAddr, numTracks, numUsers)

	up := &upstream{started: time.Now()}
	go func() {
		if err := http.ListenAndServe(upstreamAddr, up); err != nil {
			fmt.Printf("upstream stopped: %s\n", err)
		}
	}()

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: initial sync
	fmt.Println("\n--- Phase 1: Initial sync (POST /run) ---")
	start := time.Now()
	if !triggerAndWait() {
		fmt.Println("FAILED: run did not finish")
		return
	}
	fmt.Printf("Initial sync took %s\n", time.Since(start).Round(time.Millisecond))

	// Phase 2: reads while runs keep merging updates
	fmt.Println("\n--- Phase 2: Mixed load (90% GET /snapshot, 5% GET /health, 5% POST /run) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.90:
			return doGetSnapshot(rng)
		case r < 0.95:
			return doGet("/health")
		default:
			up.generation.Add(1)
			return doPostRun()
		}
	})

	// Phase 3: read-only
	fmt.Println("\n--- Phase 3: Read-only load (GET /snapshot, GET /runs/last) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		if rng.Float64() < 0.8 {
			return doGetSnapshot(rng)
		}
		return doGet("/runs/last")
	})
}

func triggerAndWait() bool {
	if r := doPostRun(); r.err {
		return false
	}
	for i := 0; i < 600; i++ {
		time.Sleep(100 * time.Millisecond)
		resp, err := httpClient.Get(baseURL + "/health")
		if err != nil {
			continue
		}
		var health struct {
			Running bool `json:"running"`
		}
		err = json.NewDecoder(resp.Body).Decode(&health)
		resp.Body.Close()
		if err == nil && !health.Running {
			return true
		}
	}
	return false
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					results <- workFn(rng)
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-30s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 96))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-30s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 96))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(max(totalOps, 1))*100, rps)
}

func doGetSnapshot(rng *rand.Rand) result {
	return doGet("/snapshot?category=" + categories[rng.Intn(len(categories))])
}

func doGet(path string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{"GET " + path, 0, lat, true}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET " + path, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

// doPostRun treats 409 as success: the server is already running a sync.
func doPostRun() result {
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/run", "application/json", nil)
	lat := time.Since(start)
	if err != nil {
		return result{"POST /run", 0, lat, true}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	ok := resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusConflict
	return result{"POST /run", resp.StatusCode, lat, !ok}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
