package detect

import "sort"

// Reconcile resolves overlapping findings from different detectors over the
// same unit. Rules, in order:
//
//  1. higher confidence wins;
//  2. on an exact confidence tie, the more specific detector class wins
//     (checksum over regex over schema over entropy);
//  3. remaining ties go to the earlier, then shorter, span, then the
//     lexically smaller detector id.
//
// The result is sorted by ascending span start. Reconcile is pure: the input
// slice is not modified.
func Reconcile(findings []Finding) []Finding {
	if len(findings) <= 1 {
		return append([]Finding(nil), findings...)
	}

	ranked := append([]Finding(nil), findings...)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Class != b.Class {
			return a.Class > b.Class
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		return a.Detector < b.Detector
	})

	var kept []Finding
	for _, f := range ranked {
		conflict := false
		for _, k := range kept {
			if f.Field == k.Field && f.Span.Overlaps(k.Span) {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, f)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.Span.Start < b.Span.Start
	})
	return kept
}
