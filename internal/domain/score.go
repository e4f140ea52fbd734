package domain

// effectiveWeight substitutes the default weight of 1 for missing or
// non-positive weights. The upstream generator never emits zero weights, so a
// zero here means "unset", not "exclude".
func effectiveWeight(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}

// AggregateScore computes the chaos index: a weighted mean of the eligible
// factors' normalized severity ratios, scaled to [0,100]. Factors without a
// live value or with a non-positive max are excluded entirely rather than
// counted as zero, so a missing feed never drags the index down. Returns 0
// when no factor is eligible, never NaN.
func AggregateScore(factors map[string]Factor) float64 {
	var weightedSum, weightTotal float64
	for _, f := range factors {
		if !f.Eligible() {
			continue
		}
		w := effectiveWeight(f.Weight)
		weightedSum += f.Normalized() * w
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0
	}
	return 100 * weightedSum / weightTotal
}

// Contribution returns the named factor's share of the total weighted sum as
// a percentage. Contributions across all eligible factors sum to 100 (within
// floating-point tolerance). Display-only; never persisted.
func Contribution(key string, factors map[string]Factor) float64 {
	f, ok := factors[key]
	if !ok || !f.Eligible() {
		return 0
	}

	var weightedSum float64
	for _, other := range factors {
		if !other.Eligible() {
			continue
		}
		weightedSum += other.Normalized() * effectiveWeight(other.Weight)
	}
	if weightedSum == 0 {
		return 0
	}
	return 100 * f.Normalized() * effectiveWeight(f.Weight) / weightedSum
}

// DisplayScore resolves the score precedence rule: a snapshot-supplied
// chaos index is authoritative and wins over local recomputation. Local
// aggregation is the fallback for offline and simulation contexts.
func DisplayScore(snap *Snapshot, factors map[string]Factor) float64 {
	if snap != nil && snap.ChaosIndex != nil {
		return *snap.ChaosIndex
	}
	return AggregateScore(factors)
}
