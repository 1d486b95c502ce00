// Package fitness provides benchmark landscapes over binary genomes. Every
// function is normalized to [0,1], with 1 at the global optimum.
package fitness

import (
	"genelab/internal/genome"
)

// OneMax is the fraction of loci set to one.
func OneMax(bits []uint8) float64 {
	if len(bits) == 0 {
		return 0
	}
	ones := 0
	for _, bit := range bits {
		ones += int(bit)
	}
	return float64(ones) / float64(len(bits))
}

// LeadingOnes is the length of the leading run of ones over the genome length.
func LeadingOnes(bits []uint8) float64 {
	if len(bits) == 0 {
		return 0
	}
	run := 0
	for _, bit := range bits {
		if bit == 0 {
			break
		}
		run++
	}
	return float64(run) / float64(len(bits))
}

// Trap returns concatenated deceptive traps of size k. Inside a block of u
// ones the score is k when u == k and k-1-u otherwise, so local search is
// drawn toward all zeros. A trailing partial block is scored the same way
// with its own size.
func Trap(k int) genome.FitnessFunc {
	if k < 1 {
		k = 1
	}
	return func(bits []uint8) float64 {
		if len(bits) == 0 {
			return 0
		}
		total := 0.0
		for start := 0; start < len(bits); start += k {
			end := min(start+k, len(bits))
			size := end - start
			ones := 0
			for _, bit := range bits[start:end] {
				ones += int(bit)
			}
			if ones == size {
				total += float64(size)
			} else {
				total += float64(size - 1 - ones)
			}
		}
		return total / float64(len(bits))
	}
}

// RoyalRoad is the fraction of loci covered by complete all-ones blocks of
// size k.
func RoyalRoad(k int) genome.FitnessFunc {
	if k < 1 {
		k = 1
	}
	return func(bits []uint8) float64 {
		if len(bits) == 0 {
			return 0
		}
		covered := 0
		for start := 0; start < len(bits); start += k {
			end := min(start+k, len(bits))
			complete := true
			for _, bit := range bits[start:end] {
				if bit == 0 {
					complete = false
					break
				}
			}
			if complete {
				covered += end - start
			}
		}
		return float64(covered) / float64(len(bits))
	}
}

// HIFF is hierarchical if-and-only-if. Every aligned block of size 2, 4, 8,
// ... whose loci are all equal contributes its size. Loci beyond the largest
// power of two are ignored. Both all-zeros and all-ones reach 1.
func HIFF(bits []uint8) float64 {
	n := 1
	for n*2 <= len(bits) {
		n *= 2
	}
	if n < 2 {
		return 0
	}

	score, best := 0.0, 0.0
	for size := 2; size <= n; size *= 2 {
		for start := 0; start < n; start += size {
			best += float64(size)
			same := true
			for i := start + 1; i < start+size; i++ {
				if bits[i] != bits[start] {
					same = false
					break
				}
			}
			if same {
				score += float64(size)
			}
		}
	}
	return score / best
}
