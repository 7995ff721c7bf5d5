package agent

import (
	"fmt"
	"strings"
	"time"
)

// pushTimestamp appends ts and keeps the newest size entries.
func pushTimestamp(ring []int64, ts int64, size int) []int64 {
	if size <= 0 {
		size = DefaultTimestampRingSize
	}
	ring = append(ring, ts)
	if len(ring) > size {
		ring = append([]int64(nil), ring[len(ring)-size:]...)
	}
	return ring
}

// detectBurst reports whether at least burst arrivals fall within window
// ending at the newest arrival.
func detectBurst(ring []int64, window time.Duration, burst int) (bool, string) {
	if len(ring) == 0 || burst <= 0 {
		return false, ""
	}
	newest := ring[len(ring)-1]
	limit := window.Milliseconds()

	count := 0
	for _, ts := range ring {
		if ts <= newest && newest-ts <= limit {
			count++
		}
	}
	if count >= burst {
		return true, fmt.Sprintf("%d messages within %s", count, window)
	}
	return false, ""
}

// detectSpam flags a message dominated by one whitespace-separated token.
func detectSpam(text string, ratio float64, minTokens int) bool {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) < minTokens || len(tokens) == 0 {
		return false
	}
	counts := make(map[string]int, len(tokens))
	top := 0
	for _, tok := range tokens {
		counts[tok]++
		if counts[tok] > top {
			top = counts[tok]
		}
	}
	return float64(top)/float64(len(tokens)) > ratio
}

// detectRepetition reports whether the tail of text holds minCount or more
// back-to-back copies of a block of at least minPhrase runes; the last copy
// may stop short after minPhrase runes. For each period p it slides a window
// comparing rune i with rune i+p. A window with at most
// p/RepetitionSlackDivisor mismatches counts, so copies that differ in a
// counter or a word still match. Case and whitespace runs are normalized
// first.
func detectRepetition(text string, minPhrase, minCount int) bool {
	if minPhrase <= 0 || minCount <= 1 {
		return false
	}
	runes := []rune(strings.Join(strings.Fields(strings.ToLower(text)), " "))
	if len(runes) > RepetitionScanRunes {
		runes = runes[len(runes)-RepetitionScanRunes:]
	}
	n := len(runes)
	if n < minPhrase*minCount {
		return false
	}

	maxPeriod := min((n-minPhrase)/(minCount-1), RepetitionMaxPeriod)
	for p := minPhrase; p <= maxPeriod; p++ {
		span := (minCount-2)*p + minPhrase
		slack := p / RepetitionSlackDivisor
		misses := 0
		for i := 0; i+p < n; i++ {
			if runes[i] != runes[i+p] {
				misses++
			}
			if i >= span && runes[i-span] != runes[i-span+p] {
				misses--
			}
			if i >= span-1 && misses <= slack {
				return true
			}
		}
	}
	return false
}
