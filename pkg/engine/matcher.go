package engine

import (
	"math"

	"github.com/ja7ad/flashbench/pkg/model"
	"github.com/ja7ad/flashbench/pkg/stats"
)

// predictFor computes the catalogue-derived prediction for one (row, op,
// group). It is the single place both the matcher and the final scorer
// derive a prediction, so the two stay in lock step by construction.
func predictFor(op model.Operation, group model.SizeGroup, row model.CatalogueRow, ctx model.DeviceContext) model.OptFloat {
	switch op {
	case model.OpRead:
		if !ctx.HasSCK() || !row.Read50MBps.Valid {
			return model.None()
		}
		return model.Some(row.Read50MBps.Value * (ctx.SCKMHz / 50))

	case model.OpProgram:
		if !row.TypPageMs.Valid {
			return model.None()
		}
		bytesForGroup, ok := model.BytesForGroup(group, ctx.CapacityBytes)
		if !ok {
			return model.None()
		}
		pages := math.Ceil(float64(bytesForGroup) / model.PageBytes)
		return model.Some(row.TypPageMs.Value * pages)

	case model.OpErase:
		switch group {
		case model.Size4K:
			return row.Typ4KMs
		case model.Size32K:
			return row.Typ32KMs
		case model.Size64K:
			return row.Typ64KMs
		default:
			// 1B, 256B, WHOLE have no erase datasheet reference.
			return model.None()
		}

	default:
		return model.None()
	}
}

// MatchBucket matches one bucket with n>0 against the catalogue: it finds
// the row whose prediction is closest to bucketMean (ties favour the
// earlier catalogue row) and enumerates every JEDEC-bearing row whose
// prediction equals that winner's within stats.AlmostEqual tolerance.
func MatchBucket(op model.Operation, group model.SizeGroup, bucketMean float64, catalogue []model.CatalogueRow, ctx model.DeviceContext) model.MatchResult {
	bestIdx := -1
	var bestDiff, bestPred float64

	for i, row := range catalogue {
		pred := predictFor(op, group, row, ctx)
		if !pred.Valid {
			continue
		}
		diff := math.Abs(pred.Value - bucketMean)
		if bestIdx == -1 || diff < bestDiff {
			bestIdx = i
			bestDiff = diff
			bestPred = pred.Value
		}
	}

	if bestIdx == -1 {
		return model.MatchResult{}
	}

	var candidates []string
	for _, row := range catalogue {
		if row.JEDEC == "" {
			continue
		}
		pred := predictFor(op, group, row, ctx)
		if !pred.Valid {
			continue
		}
		if stats.AlmostEqual(pred.Value, bestPred) {
			candidates = append(candidates, row.JEDEC)
		}
	}

	return model.MatchResult{
		DBMean:     model.Some(bestPred),
		Candidates: candidates,
	}
}
