// Command gorelay-loadtest measures token minting and dispatch throttle throughput.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goRelay/internal/rate"
	"github.com/MrEthical07/goRelay/jwt"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (mint + throttle)")
		issues      = flag.Int("issues", 1000, "distinct issues spread across throttle calls")
		signer      = flag.String("signer", jwt.SignerRS256, "signer candidate to benchmark")
		keyBits     = flag.Int("key-bits", 2048, "rsa key size")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gr-load", "throttle key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *issues <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and issues must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	key, err := rsa.GenerateKey(rand.Reader, *keyBits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate key: %v\n", err)
		os.Exit(1)
	}
	candidate, err := jwt.NamedSigner(*signer, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	assembler, err := jwt.NewAssembler(jwt.Config{AppID: "1"}, candidate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build assembler: %v\n", err)
		os.Exit(1)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	limiter := rate.New(client, rate.Config{
		Enabled:       true,
		MaxDispatches: 5,
		Window:        time.Minute,
		Prefix:        *prefix,
	})

	mintStats := runPhase(*ops, *concurrency, func(_ *mrand.Rand) error {
		_, err := assembler.Mint(ctx)
		return err
	})
	throttleStats := runPhase(*ops, *concurrency, func(r *mrand.Rand) error {
		err := limiter.Allow(ctx, fmt.Sprintf("issue-%d", r.Intn(*issues)), "andre")
		if errors.Is(err, rate.ErrRateLimited) {
			return nil
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("mint/"+*signer, mintStats)
	printStats("throttle", throttleStats)
}

// runPhase calls op ops times across concurrency workers. A non-nil error from op
// counts as a failure.
func runPhase(ops, concurrency int, op func(r *mrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
