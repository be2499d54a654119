// Package results streams the raw benchmark results log once and buckets
// rows by (operation, size group), keeping only the per-sample vectors
// needed to compute each bucket's order statistics. It never allocates
// proportional to the whole input: it holds one growing vector per bucket,
// dropped as soon as that bucket is finalised.
package results

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ja7ad/flashbench/pkg/model"
	"github.com/ja7ad/flashbench/pkg/stats"
)

// Bucket is the finalised per-(operation, size group) aggregate. For
// program/erase, ElapsedMs is the authoritative stats object. For read,
// ElapsedMs holds the per-sample latency-in-milliseconds stats (the report
// writer's read columns draw from this), ReadMBps holds the per-sample
// throughput stats, and MeanElapsedUs is the arithmetic mean of raw
// elapsed microseconds, kept as a latency-derived MB/s alternative even
// though nothing in this engine's output consumes it directly.
type Bucket struct {
	N             int
	ElapsedMs     stats.Summary
	ReadMBps      stats.Summary
	MeanElapsedUs float64
}

// Aggregator accumulates results-log samples bucket by bucket. Construct
// one per invocation with New, feed it lines with AddLine (or run it over
// an io.Reader with Aggregate), then call Finalize once.
type Aggregator struct {
	capacityBytes uint64
	raw           map[model.BucketKey]*rawBucket
}

type rawBucket struct {
	elapsedMs      []float64
	mbps           []float64
	elapsedUsSum   float64
	elapsedUsCount int
}

// New creates an Aggregator for one run. capacityBytes enables WHOLE-group
// classification; 0 disables it.
func New(capacityBytes uint64) *Aggregator {
	return &Aggregator{
		capacityBytes: capacityBytes,
		raw:           make(map[model.BucketKey]*rawBucket),
	}
}

// Aggregate streams every line of r through AddLine and returns the
// finalised per-bucket summaries. Malformed lines are skipped silently;
// the aggregator cannot fail the run.
func Aggregate(r io.Reader, capacityBytes uint64) (map[model.BucketKey]Bucket, error) {
	a := New(capacityBytes)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		a.AddLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return a.Finalize(), nil
	}

	return a.Finalize(), nil
}

// AddLine parses one results-log line and, if it is well-formed, pushes it
// into the appropriate bucket. Fields are 0-indexed: 0 jedec-or-chip-id
// (ignored), 1 op, 2 size_bytes, 3 address (ignored), 4 elapsed_us, 5+
// ignored.
func (a *Aggregator) AddLine(line string) {
	line = strings.TrimRight(line, "\r")
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return
	}

	op, ok := model.ParseOperation(fields[1])
	if !ok {
		return
	}

	sizeBytes, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return
	}
	group, ok := model.ClassifySize(sizeBytes, a.capacityBytes)
	if !ok {
		return
	}

	elapsedUs, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil || elapsedUs <= 0 {
		return
	}

	key := model.BucketKey{Op: op, Group: group}
	b := a.raw[key]
	if b == nil {
		b = &rawBucket{}
		a.raw[key] = b
	}

	elapsedMs := float64(elapsedUs) / 1000
	b.elapsedMs = append(b.elapsedMs, elapsedMs)
	b.elapsedUsSum += float64(elapsedUs)
	b.elapsedUsCount++

	if op == model.OpRead {
		mbps := (float64(sizeBytes) / (1 << 20)) / (float64(elapsedUs) / 1e6)
		if !math.IsInf(mbps, 0) && !math.IsNaN(mbps) && mbps > 0 {
			b.mbps = append(b.mbps, mbps)
		}
	}
}

// Finalize summarises every bucket seen so far via pkg/stats and returns
// the result. The Aggregator should not be reused after Finalize.
func (a *Aggregator) Finalize() map[model.BucketKey]Bucket {
	out := make(map[model.BucketKey]Bucket, len(a.raw))
	for key, rb := range a.raw {
		bucket := Bucket{
			N:         len(rb.elapsedMs),
			ElapsedMs: stats.Summarise(rb.elapsedMs),
		}
		if key.Op == model.OpRead {
			bucket.ReadMBps = stats.Summarise(rb.mbps)
			if rb.elapsedUsCount > 0 {
				bucket.MeanElapsedUs = rb.elapsedUsSum / float64(rb.elapsedUsCount)
			}
		}
		out[key] = bucket
	}
	return out
}
