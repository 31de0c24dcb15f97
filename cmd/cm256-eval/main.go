// cm256-eval sweeps cm256 over (k,m) configurations and i.i.d. loss
// probabilities, measuring recovery rate and encode/decode time, with a
// RaptorQ baseline for comparison. It writes a JSON record file and a
// Markdown report, and can expose live counters on a Prometheus
// /metrics endpoint while a long sweep runs.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	mrand "math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rqq "github.com/xssnick/raptorq"
	"golang.org/x/sync/errgroup"

	"github.com/lalawue/cm256"
	"github.com/lalawue/cm256/internal/dropper"
)

type scheme string

const (
	schemeCM256   scheme = "cm256"
	schemeRaptorQ scheme = "raptorq"
)

type config struct {
	K int
	M int
}

type resultKey struct {
	Scheme scheme
	K      int
	M      int
	Loss   float64
}

type agg struct {
	Runs      int
	Successes int
	EncTotal  time.Duration
	DecTotal  time.Duration
}

type jsonRecord struct {
	Scheme    string  `json:"scheme"`
	K         int     `json:"k"`
	M         int     `json:"m"`
	Loss      float64 `json:"loss"`
	Runs      int     `json:"runs"`
	Successes int     `json:"successes"`
	EncMS     int64   `json:"enc_ms_total"`
	DecMS     int64   `json:"dec_ms_total"`
}

var (
	encodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cm256_eval_encodes_total",
		Help: "Encode operations performed by the sweep.",
	}, []string{"scheme"})
	decodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cm256_eval_decodes_total",
		Help: "Decode attempts performed by the sweep.",
	}, []string{"scheme"})
	decodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cm256_eval_decode_failures_total",
		Help: "Decode attempts that did not reproduce the originals.",
	}, []string{"scheme"})
	bytesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cm256_eval_bytes_processed_total",
		Help: "Original data bytes pushed through encode.",
	}, []string{"scheme"})
)

func parseConfigs(s string) ([]config, error) {
	parts := strings.Split(s, ";")
	out := make([]config, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var k, m int
		if _, err := fmt.Sscanf(p, "%d,%d", &k, &m); err != nil {
			return nil, fmt.Errorf("bad config %q: %w", p, err)
		}
		if k < 1 || m < 1 || k+m > 256 {
			return nil, fmt.Errorf("config %q outside GF(256) bounds", p)
		}
		out = append(out, config{K: k, M: m})
	}
	return out, nil
}

func parseLosses(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var f float64
		if _, err := fmt.Sscanf(p, "%f", &f); err != nil {
			return nil, fmt.Errorf("bad loss %q: %w", p, err)
		}
		if f < 0 || f >= 1 {
			return nil, fmt.Errorf("loss %q outside [0,1)", p)
		}
		out = append(out, f)
	}
	return out, nil
}

func main() {
	var (
		runs        = flag.Int("runs", 10000, "runs per (scheme,config,loss)")
		blockBytes  = flag.Int("block-bytes", 1024, "bytes per block")
		cfgStr      = flag.String("configs", "10,3;32,8;100,30;200,56", "semicolon-separated list of k,m pairs")
		lossStr     = flag.String("loss", "0.01,0.05,0.10,0.20", "comma-separated list of loss probabilities")
		outPath     = flag.String("out", "reports/cm256_eval_report.md", "output markdown report path")
		seed        = flag.Int64("seed", 42, "random seed")
		which       = flag.String("scheme", "all", "which scheme to run: cm256|raptorq|all")
		parallel    = flag.Int("parallel", 2, "configs evaluated concurrently")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus /metrics on this address while running (optional)")
	)
	flag.Parse()

	cfgs, err := parseConfigs(*cfgStr)
	if err != nil {
		fatalf("%v", err)
	}
	losses, err := parseLosses(*lossStr)
	if err != nil {
		fatalf("%v", err)
	}
	schemes := make([]scheme, 0, 2)
	if *which == "all" || *which == string(schemeCM256) {
		schemes = append(schemes, schemeCM256)
	}
	if *which == "all" || *which == string(schemeRaptorQ) {
		schemes = append(schemes, schemeRaptorQ)
	}
	if len(schemes) == 0 {
		fatalf("unknown scheme %q", *which)
	}

	if err := cm256.Init(cm256.Version); err != nil {
		fatalf("cm256 init: %v", err)
	}

	prometheus.MustRegister(encodesTotal, decodesTotal, decodeFailures, bytesProcessed)
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				fmt.Fprintln(os.Stderr, "metrics server:", err)
			}
		}()
	}

	results := make(map[resultKey]*agg)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(*parallel)
	for idx, cfg := range cfgs {
		g.Go(func() error {
			rng := mrand.New(mrand.NewSource(*seed + int64(idx)))
			part, err := runConfig(cfg, schemes, losses, *runs, *blockBytes, rng)
			if err != nil {
				return err
			}
			mu.Lock()
			for k, v := range part {
				results[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("%v", err)
	}

	ts := time.Now().Format("20060102_150405")
	jsonPath := strings.TrimSuffix(*outPath, ".md") + "_" + ts + ".json"
	mdPath := strings.TrimSuffix(*outPath, ".md") + "_" + ts + ".md"
	if err := writeJSON(jsonPath, results); err != nil {
		fatalf("write json: %v", err)
	}
	if err := writeMarkdown(mdPath, results, losses); err != nil {
		fatalf("write md: %v", err)
	}
	fmt.Printf("Report written: %s\nJSON: %s\n", mdPath, jsonPath)
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func runConfig(cfg config, schemes []scheme, losses []float64, runs, blockBytes int, rng *mrand.Rand) (map[resultKey]*agg, error) {
	out := make(map[resultKey]*agg)
	k, m := cfg.K, cfg.M
	p := cm256.Params{OriginalCount: k, RecoveryCount: m, BlockBytes: blockBytes}

	originals := make([][]byte, k)
	for i := range originals {
		originals[i] = make([]byte, blockBytes)
	}
	recovery := make([]byte, m*blockBytes)

	for _, loss := range losses {
		drop := dropper.New(loss, rng)
		for _, sch := range schemes {
			key := resultKey{Scheme: sch, K: k, M: m, Loss: loss}
			a := &agg{Runs: runs}
			out[key] = a

			for run := 0; run < runs; run++ {
				for i := range originals {
					rng.Read(originals[i])
				}
				erased := drop.Pattern(k, m)

				var ok bool
				switch sch {
				case schemeCM256:
					ok = runCM256(p, originals, recovery, erased, a)
				case schemeRaptorQ:
					ok = runRaptorQ(k, m, blockBytes, originals, erased, a)
				}
				encodesTotal.WithLabelValues(string(sch)).Inc()
				decodesTotal.WithLabelValues(string(sch)).Inc()
				bytesProcessed.WithLabelValues(string(sch)).Add(float64(k * blockBytes))
				if ok {
					a.Successes++
				} else {
					decodeFailures.WithLabelValues(string(sch)).Inc()
				}
			}
		}
	}
	return out, nil
}

// runCM256 encodes one block set, erases the given rows and decodes
// from the survivors plus as many recovery rows.
func runCM256(p cm256.Params, originals [][]byte, recovery []byte, erased []int, a *agg) bool {
	k, bb := p.OriginalCount, p.BlockBytes

	start := time.Now()
	if err := cm256.Encode(p, originals, recovery); err != nil {
		return false
	}
	a.EncTotal += time.Since(start)

	isErased := make(map[int]bool, len(erased))
	for _, e := range erased {
		isErased[e] = true
	}
	blocks := make([]cm256.Block, 0, k)
	for j := 0; j < k; j++ {
		if isErased[j] {
			continue
		}
		blocks = append(blocks, cm256.Block{Index: j, Data: originals[j]})
	}
	for r := 0; r < len(erased); r++ {
		blocks = append(blocks, cm256.Block{Index: k + r, Data: recovery[r*bb : (r+1)*bb]})
	}

	start = time.Now()
	err := cm256.Decode(p, blocks)
	a.DecTotal += time.Since(start)
	if err != nil {
		return false
	}
	// Reconstructed rows live in the recovery region; originals still
	// holds the source data for every row.
	for _, b := range blocks {
		if !bytes.Equal(b.Data, originals[b.Index]) {
			return false
		}
	}
	return true
}

// runRaptorQ pushes the same block set through the RaptorQ baseline:
// k+m symbols of blockBytes each, decode from the surviving source
// symbols plus as many repair symbols as rows were erased.
func runRaptorQ(k, m, blockBytes int, originals [][]byte, erased []int, a *agg) bool {
	data := make([]byte, 0, k*blockBytes)
	for _, o := range originals {
		data = append(data, o...)
	}

	start := time.Now()
	rq := rqq.NewRaptorQ(uint32(blockBytes))
	enc, err := rq.CreateEncoder(data)
	if err != nil {
		return false
	}
	symbols := make([][]byte, k+m)
	for i := range symbols {
		symbols[i] = enc.GenSymbol(uint32(i))
	}
	a.EncTotal += time.Since(start)

	isErased := make(map[int]bool, len(erased))
	for _, e := range erased {
		isErased[e] = true
	}

	start = time.Now()
	dec, err := rq.CreateDecoder(uint32(len(data)))
	if err != nil {
		return false
	}
	for i := 0; i < k; i++ {
		if isErased[i] {
			continue
		}
		if _, err := dec.AddSymbol(uint32(i), symbols[i]); err != nil {
			return false
		}
	}
	for r := 0; r < len(erased); r++ {
		if _, err := dec.AddSymbol(uint32(k+r), symbols[k+r]); err != nil {
			return false
		}
	}
	ok, got, err := dec.Decode()
	a.DecTotal += time.Since(start)
	if err != nil || !ok {
		return false
	}
	return bytes.Equal(got, data)
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func writeJSON(path string, res map[resultKey]*agg) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	recs := make([]jsonRecord, 0, len(res))
	for k, v := range res {
		recs = append(recs, jsonRecord{
			Scheme:    string(k.Scheme),
			K:         k.K,
			M:         k.M,
			Loss:      k.Loss,
			Runs:      v.Runs,
			Successes: v.Successes,
			EncMS:     v.EncTotal.Milliseconds(),
			DecMS:     v.DecTotal.Milliseconds(),
		})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Scheme != recs[j].Scheme {
			return recs[i].Scheme < recs[j].Scheme
		}
		if recs[i].K != recs[j].K {
			return recs[i].K < recs[j].K
		}
		if recs[i].M != recs[j].M {
			return recs[i].M < recs[j].M
		}
		return recs[i].Loss < recs[j].Loss
	})
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Records []jsonRecord `json:"records"`
	}{Records: recs})
}

func writeMarkdown(path string, res map[resultKey]*agg, losses []float64) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	type cfg struct{ K, M int }
	cfgSet := map[cfg]struct{}{}
	schemesSet := map[scheme]struct{}{}
	for k := range res {
		cfgSet[cfg{K: k.K, M: k.M}] = struct{}{}
		schemesSet[k.Scheme] = struct{}{}
	}
	cfgs := make([]cfg, 0, len(cfgSet))
	for c := range cfgSet {
		cfgs = append(cfgs, c)
	}
	sort.Slice(cfgs, func(i, j int) bool {
		if cfgs[i].K != cfgs[j].K {
			return cfgs[i].K < cfgs[j].K
		}
		return cfgs[i].M < cfgs[j].M
	})
	schemes := make([]scheme, 0, len(schemesSet))
	for s := range schemesSet {
		schemes = append(schemes, s)
	}
	sort.Slice(schemes, func(i, j int) bool { return schemes[i] < schemes[j] })

	fmt.Fprintf(f, "# cm256 Evaluation Report\n\n")
	fmt.Fprintf(f, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	for _, c := range cfgs {
		fmt.Fprintf(f, "## (k=%d, m=%d)\n\n", c.K, c.M)

		fmt.Fprintf(f, "### Success Rate (%%)\n\n")
		fmt.Fprintf(f, "| Scheme |%s\n", lossHeaders(losses))
		fmt.Fprintf(f, "|---|%s\n", strings.Repeat("---|", len(losses)))
		for _, s := range schemes {
			fmt.Fprintf(f, "| %s ", strings.ToUpper(string(s)))
			for _, l := range losses {
				a := res[resultKey{Scheme: s, K: c.K, M: c.M, Loss: l}]
				if a == nil || a.Runs == 0 {
					fmt.Fprintf(f, "|  ")
					continue
				}
				fmt.Fprintf(f, "| %.2f ", 100.0*float64(a.Successes)/float64(a.Runs))
			}
			fmt.Fprintf(f, "|\n")
		}
		fmt.Fprintf(f, "\n### Time (ms)\n\n")
		fmt.Fprintf(f, "| Scheme | Encode Total | Decode Total |\n")
		fmt.Fprintf(f, "|---|---:|---:|\n")
		for _, s := range schemes {
			var enc, dec time.Duration
			for _, l := range losses {
				if a := res[resultKey{Scheme: s, K: c.K, M: c.M, Loss: l}]; a != nil {
					enc += a.EncTotal
					dec += a.DecTotal
				}
			}
			fmt.Fprintf(f, "| %s | %d | %d |\n", strings.ToUpper(string(s)), enc.Milliseconds(), dec.Milliseconds())
		}
		fmt.Fprintf(f, "\n")
	}

	fmt.Fprintf(f, "---\n\nNotes:\n\n- Loss model: i.i.d. per original row with probability p, capped at m erasures.\n- cm256 decodes from the surviving originals plus one recovery row per erasure.\n- RaptorQ is systematic with the same k+m symbol budget; it may need more than k symbols to decode, which shows up as a lower success rate rather than an error.\n")
	return nil
}

func lossHeaders(losses []float64) string {
	var b strings.Builder
	for _, l := range losses {
		fmt.Fprintf(&b, " p=%.3f |", l)
	}
	return b.String()
}
