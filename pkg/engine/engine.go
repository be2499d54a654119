// Package engine implements the chip-identification and performance-report
// pipeline: it cross-references aggregated benchmark samples against a
// vendor datasheet catalogue to defend a final chip guess and render the
// pivoted summary report.
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ja7ad/flashbench/pkg/catalogue"
	"github.com/ja7ad/flashbench/pkg/model"
	"github.com/ja7ad/flashbench/pkg/report"
	"github.com/ja7ad/flashbench/pkg/results"
)

// GenerateReport is the engine's single entry point: it takes ownership of
// the two input streams and the output stream, drives them to completion
// synchronously, and returns. A nil resultsStream or catalogueStream is
// treated as "input-absent" and degrades to an empty stream rather than
// failing the run. It returns ctx.Err() if ctx is cancelled between
// stages; otherwise the only error it can return wraps ErrOutputWrite.
func GenerateReport(ctx context.Context, resultsStream, catalogueStream io.Reader, device model.DeviceContext, out io.Writer) error {
	if resultsStream == nil {
		resultsStream = strings.NewReader("")
	}
	if catalogueStream == nil {
		catalogueStream = strings.NewReader("")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	table, err := catalogue.Load(catalogueStream)
	if err != nil {
		// catalogue.Load never returns a non-nil error today, but honour
		// its signature in case a future backing reader surfaces one.
		table = catalogue.Table{}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	buckets, err := results.Aggregate(resultsStream, device.CapacityBytes)
	if err != nil {
		buckets = map[model.BucketKey]results.Bucket{}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	matches := make(map[model.BucketKey]model.MatchResult)
	perOpGroupCandidates := make(map[model.Operation]map[model.SizeGroup][]string)
	for _, op := range model.Operations() {
		perOpGroupCandidates[op] = make(map[model.SizeGroup][]string)
	}

	for _, group := range model.SizeGroups() {
		for _, op := range model.Operations() {
			key := model.BucketKey{Op: op, Group: group}
			bucket := buckets[key]
			mean, ok := bucketMeanForMatch(op, bucket)
			if !ok {
				matches[key] = model.MatchResult{}
				continue
			}
			mr := MatchBucket(op, group, mean, table.Rows, device)
			matches[key] = mr
			perOpGroupCandidates[op][group] = mr.Candidates
		}
	}

	conclusion := make(map[model.Operation][]string)
	for _, op := range model.Operations() {
		conclusion[op] = IntersectCandidates(perOpGroupCandidates[op])
	}

	final := PickFinalGuess(table.Rows, buckets, device)

	if err := ctx.Err(); err != nil {
		return err
	}

	in := report.Input{
		Device:     device,
		Buckets:    buckets,
		Matches:    matches,
		Conclusion: conclusion,
		Final:      final,
	}
	if err := report.Generate(out, in); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputWrite, err)
	}
	return nil
}
