package plagiarism

import (
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/RishiKendai/labscan/internal/tokenizer"
)

type tokenKey struct {
	kind models.TokenKind
	text string
}

// internKeys maps both streams onto small integers so the tiling loop compares ints
func internKeys(a, b []models.Token, norm models.Normalization) ([]int32, []int32) {
	ids := make(map[tokenKey]int32)
	intern := func(tokens []models.Token) []int32 {
		out := make([]int32, len(tokens))
		for i, t := range tokens {
			k := tokenKey{kind: t.Kind, text: tokenizer.NormalizedText(t, norm)}
			id, ok := ids[k]
			if !ok {
				id = int32(len(ids))
				ids[k] = id
			}
			out[i] = id
		}
		return out
	}
	return intern(a), intern(b)
}

// Match runs Greedy String Tiling over the merged token streams of a and b.
//
// Each round takes the longest common run of unmarked tokens of at least minMatch tokens, preferring the
// earliest start in a and then in b, marks it in both streams and records it as a tile. Runs never cross a file
// boundary. Tiles are returned in the order they were found.
func Match(a, b *models.Submission, minMatch int, norm models.Normalization) []models.Match {
	if minMatch < 1 {
		minMatch = 1
	}
	n, m := a.TokenCount(), b.TokenCount()
	if n < minMatch || m < minMatch {
		return nil
	}

	ka, kb := internKeys(a.Tokens, b.Tokens, norm)
	markedA := make([]bool, n)
	markedB := make([]bool, m)
	// next holds run lengths of row i+1, cur of row i
	next := make([]int, m+1)
	cur := make([]int, m+1)

	var matches []models.Match
	for {
		best, bestA, bestB := 0, -1, -1
		clear(next)

		for i := n - 1; i >= 0; i-- {
			joinA := i+1 < n && a.FileOf[i+1] == a.FileOf[i]
			for j := m - 1; j >= 0; j-- {
				if markedA[i] || markedB[j] || ka[i] != kb[j] {
					cur[j] = 0
					continue
				}
				run := 1
				if joinA && j+1 < m && b.FileOf[j+1] == b.FileOf[j] {
					run += next[j+1]
				}
				cur[j] = run
				// rows and columns are visited backwards, so >= keeps the earliest start on ties
				if run >= minMatch && run >= best {
					best, bestA, bestB = run, i, j
				}
			}
			cur, next = next, cur
		}

		if best == 0 {
			break
		}
		for k := 0; k < best; k++ {
			markedA[bestA+k] = true
			markedB[bestB+k] = true
		}
		matches = append(matches, models.Match{
			A:      region(a, bestA, best),
			B:      region(b, bestB, best),
			Length: best,
		})
	}

	return matches
}

func region(sub *models.Submission, start, length int) models.MatchRegion {
	return models.MatchRegion{
		SubmissionID: sub.ID,
		File:         sub.Files[sub.FileOf[start]].Path,
		StartToken:   start,
		EndToken:     start + length,
	}
}
