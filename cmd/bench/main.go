// Command bench runs a synthetic Zipf workload against the cache and
// exposes optional pprof/Prometheus endpoints. With -baseline it replays
// the same workload through a plain LRU and reports both hit ratios.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/sievecache/cache"
	pmet "github.com/IvanBrykalov/sievecache/metrics/prom"
	"github.com/IvanBrykalov/sievecache/sieve"
)

func main() {
	// ---- Flags ----
	var (
		configPath = flag.String("config", "", "optional YAML config file (flags set explicitly still win)")

		capacity = flag.Int("cap", 100_000, "cache capacity (entries)")
		shards   = flag.Int("shards", 0, "number of key-map shards (0=auto)")
		variant  = flag.String("variant", "sieve", "sweep variant: sieve | clock")
		buffer   = flag.String("buffer", "slots", "staging buffer shape: slots | queue")
		bufCap   = flag.Int("bufcap", 64, "staging buffer capacity")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		report   = flag.Duration("report", 0, "periodic progress report interval (0 = off)")
		baseline = flag.Bool("baseline", false, "also replay the workload through a plain LRU and compare hit ratios")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- Optional config file (explicit flags override) ----
	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		applyConfig(cfg, map[string]applyFn{
			"cap":      func() { *capacity = cfg.Cap },
			"shards":   func() { *shards = cfg.Shards },
			"variant":  func() { *variant = cfg.Variant },
			"buffer":   func() { *buffer = cfg.Buffer },
			"bufcap":   func() { *bufCap = cfg.BufCap },
			"workers":  func() { *workers = cfg.Workload.Workers },
			"duration": func() { *duration = cfg.Workload.Duration },
			"reads":    func() { *readPct = cfg.Workload.Reads },
			"keys":     func() { *keys = cfg.Workload.Keys },
			"zipf_s":   func() { *zipfS = cfg.Workload.ZipfS },
			"zipf_v":   func() { *zipfV = cfg.Workload.ZipfV },
		})
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Build cache ----
	engineOpt := sieve.Options{BufferCapacity: *bufCap}
	switch *variant {
	case "sieve":
	case "clock":
		engineOpt.Variant = sieve.VariantClock
	default:
		log.Fatalf("unknown variant: %q (use sieve or clock)", *variant)
	}
	switch *buffer {
	case "slots":
	case "queue":
		engineOpt.Buffer = sieve.BufferQueue
	default:
		log.Fatalf("unknown buffer shape: %q (use slots or queue)", *buffer)
	}

	metrics := pmet.New(nil, "sievecache", "bench", nil)
	c := cache.New[string, string](cache.Options[string, string]{
		Capacity: *capacity,
		Shards:   *shards,
		Engine:   engineOpt,
		Metrics:  metrics,
	})
	defer func() { _ = c.Close() }()

	// ---- Prometheus metrics (on DefaultServeMux) ----
	prometheus.DefaultRegisterer.MustRegister(
		pmet.NewEngineCollector(c.EngineStats, "sievecache", "bench", nil))
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *capacity / 2
	}
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		c.Set(k, "v"+strconv.Itoa(i))
	}

	// ---- Load generation ----
	res := runWorkload(workload{
		workers:  *workers,
		duration: *duration,
		readPct:  *readPct,
		keys:     *keys,
		zipfS:    *zipfS,
		zipfV:    *zipfV,
		seed:     *seed,
		report:   *report,
	}, func(k string) bool {
		_, ok := c.Get(k)
		return ok
	}, func(k, v string) {
		c.Set(k, v)
	}, c.EngineStats)

	// ---- Report ----
	fmt.Printf("variant=%s buffer=%s cap=%d shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		*variant, *buffer, *capacity, *shards, *workers, *keys, res.elapsed, *seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		res.ops, float64(res.ops)/res.elapsed.Seconds(), res.reads, res.writes)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", res.hits, res.misses, res.hitRate())
	st := c.EngineStats()
	fmt.Printf("sweeps=%d candidates=%d second-chances=%d turn-aborts=%d\n",
		st.Sweeps, st.Candidates, st.SecondChances, st.TurnAborts)
	fmt.Printf("Len()=%d\n", c.Len())

	// ---- Optional baseline: same trace through a plain LRU ----
	if *baseline {
		l, err := lru.New(*capacity)
		if err != nil {
			log.Fatalf("baseline: %v", err)
		}
		for i := 0; i < pl; i++ {
			k := "k:" + strconv.Itoa(i)
			l.Add(k, "v"+strconv.Itoa(i))
		}
		base := runWorkload(workload{
			workers:  *workers,
			duration: *duration,
			readPct:  *readPct,
			keys:     *keys,
			zipfS:    *zipfS,
			zipfV:    *zipfV,
			seed:     *seed, // same seeds => same key stream per worker
		}, func(k string) bool {
			_, ok := l.Get(k)
			return ok
		}, func(k, v string) {
			l.Add(k, v)
		}, nil)
		fmt.Printf("baseline lru: ops=%d hit-rate=%.2f%%  (sieve %.2f%%)\n",
			base.ops, base.hitRate(), res.hitRate())
	}
}

// workload describes one synthetic run.
type workload struct {
	workers  int
	duration time.Duration
	readPct  int
	keys     int
	zipfS    float64
	zipfV    float64
	seed     int64
	report   time.Duration
}

// result aggregates worker counters.
type result struct {
	ops, reads, writes, hits, misses uint64
	elapsed                          time.Duration
}

func (r result) hitRate() float64 {
	if r.reads == 0 {
		return 0
	}
	return float64(r.hits) / float64(r.reads) * 100
}

// runWorkload drives get/set closures from workers feeding on per-worker
// Zipf streams. Identical workload parameters and seed produce the same
// key stream, which is what makes the baseline comparison fair.
func runWorkload(w workload, get func(string) bool, set func(k, v string),
	stats func() sieve.StatsSnapshot) result {

	if w.workers <= 0 {
		w.workers = 1
	}

	var reads, writes, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), w.duration)
	defer cancel()

	if w.report > 0 {
		go func() {
			t := time.NewTicker(w.report)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					line := fmt.Sprintf("progress: ops=%d hits=%d misses=%d",
						atomic.LoadUint64(&total), atomic.LoadUint64(&hits), atomic.LoadUint64(&misses))
					if stats != nil {
						st := stats()
						line += fmt.Sprintf(" sweeps=%d candidates=%d", st.Sweeps, st.Candidates)
					}
					log.Print(line)
				}
			}
		}()
	}

	start := time.Now()
	var g errgroup.Group
	for i := 0; i < w.workers; i++ {
		id := i
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(w.seed + int64(id)*9973))
			localZipf := rand.NewZipf(localR, w.zipfS, w.zipfV, uint64(w.keys-1))

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < w.readPct {
					atomic.AddUint64(&reads, 1)
					if get(keyByZipf()) {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					set(keyByZipf(), "v"+strconv.Itoa(localR.Int()))
				}
			}
		})
	}
	_ = g.Wait()

	return result{
		ops:     atomic.LoadUint64(&total),
		reads:   atomic.LoadUint64(&reads),
		writes:  atomic.LoadUint64(&writes),
		hits:    atomic.LoadUint64(&hits),
		misses:  atomic.LoadUint64(&misses),
		elapsed: time.Since(start),
	}
}
