package engine

import (
	"math"

	"github.com/ja7ad/flashbench/pkg/model"
	"github.com/ja7ad/flashbench/pkg/results"
)

// scoreCap is the per-bucket normalised-error ceiling.
const scoreCap = 3.0

// jedecBias is applied to a row's accumulated score when its JEDEC matches
// the observed device JEDEC, before comparing candidates.
const jedecBias = 0.25

// bucketMeanForMatch returns the mean a bucket should be compared against
// for matching/scoring purposes: per-sample MB/s mean for read, elapsed-ms
// mean for program/erase.
func bucketMeanForMatch(op model.Operation, b results.Bucket) (float64, bool) {
	if b.N == 0 {
		return 0, false
	}
	if op == model.OpRead {
		if b.ReadMBps.N == 0 {
			return 0, false
		}
		return b.ReadMBps.Mean, true
	}
	return b.ElapsedMs.Mean, true
}

// ScoreRow computes one catalogue row's goodness-of-fit: the capped
// normalised-error sum over every bucket with n>0 for which a prediction
// exists, biased by jedecBias when the row's JEDEC matches the observed
// device JEDEC. ok is false when no bucket could contribute, i.e. the row
// is ineligible.
func ScoreRow(row model.CatalogueRow, buckets map[model.BucketKey]results.Bucket, ctx model.DeviceContext) (score float64, ok bool) {
	var sum float64
	contributed := false

	for _, op := range model.Operations() {
		for _, group := range model.SizeGroups() {
			b, present := buckets[model.BucketKey{Op: op, Group: group}]
			if !present {
				continue
			}
			mean, haveMean := bucketMeanForMatch(op, b)
			if !haveMean {
				continue
			}
			pred := predictFor(op, group, row, ctx)
			if !pred.Valid || pred.Value == 0 {
				continue
			}
			normErr := math.Abs(mean-pred.Value) / pred.Value
			sum += math.Min(normErr, scoreCap)
			contributed = true
		}
	}

	if !contributed {
		return 0, false
	}
	if ctx.HasJEDEC() && row.JEDEC == ctx.JEDEC {
		sum *= jedecBias
	}
	return sum, true
}

// PickFinalGuess picks the best-scoring catalogue row, falling back through
// four special cases when no row is scoreable: a zero-sample run with a
// known and catalogue-matched JEDEC (score 0), a zero-sample run with a
// known but unmatched JEDEC, a run with samples and a known,
// catalogue-matched JEDEC (absent score), and a fully undecided run.
func PickFinalGuess(catalogue []model.CatalogueRow, buckets map[model.BucketKey]results.Bucket, ctx model.DeviceContext) model.FinalGuess {
	bestIdx := -1
	var bestScore float64
	for i, row := range catalogue {
		s, ok := ScoreRow(row, buckets, ctx)
		if !ok {
			continue
		}
		if bestIdx == -1 || s < bestScore {
			bestIdx = i
			bestScore = s
		}
	}

	if bestIdx != -1 {
		row := catalogue[bestIdx]
		return model.FinalGuess{
			JEDEC:        row.JEDEC,
			ChipModel:    row.ChipModel,
			Company:      row.Company,
			Family:       row.Family,
			CapacityMbit: row.CapacityMbit,
			Score:        model.Some(bestScore),
		}
	}

	totalSamples := 0
	for _, b := range buckets {
		totalSamples += b.N
	}

	if !ctx.HasJEDEC() {
		return undecidedGuess()
	}

	matched, found := findJEDECMatch(catalogue, ctx.JEDEC)

	if totalSamples == 0 {
		if found {
			return model.FinalGuess{
				JEDEC:        matched.JEDEC,
				ChipModel:    matched.ChipModel,
				Company:      matched.Company,
				Family:       matched.Family,
				CapacityMbit: matched.CapacityMbit,
				Score:        model.Some(0),
			}
		}
		return model.FinalGuess{
			JEDEC:     ctx.JEDEC,
			ChipModel: model.Undecided,
			Company:   model.Undecided,
			Score:     model.None(),
		}
	}

	if found {
		return model.FinalGuess{
			JEDEC:        matched.JEDEC,
			ChipModel:    matched.ChipModel,
			Company:      matched.Company,
			Family:       matched.Family,
			CapacityMbit: matched.CapacityMbit,
			Score:        model.None(),
		}
	}
	return undecidedGuess()
}

func undecidedGuess() model.FinalGuess {
	return model.FinalGuess{
		JEDEC:     model.Undecided,
		ChipModel: model.Undecided,
		Company:   model.Undecided,
		Score:     model.None(),
	}
}

func findJEDECMatch(catalogue []model.CatalogueRow, jedec string) (model.CatalogueRow, bool) {
	for _, row := range catalogue {
		if row.JEDEC != "" && row.JEDEC == jedec {
			return row, true
		}
	}
	return model.CatalogueRow{}, false
}
