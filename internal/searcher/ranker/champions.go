package ranker

import "container/heap"

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Champions drops documents scoring below alpha and returns the best topN
// of the rest by descending score, ties broken by ascending document ID.
// survivors is the number of documents that cleared alpha, which may
// exceed len(champions).
func Champions(scores map[string]float64, alpha float64, topN int) (champions []ScoredDoc, survivors int) {
	h := &scoredDocHeap{}
	for docID, score := range scores {
		if score < alpha {
			continue
		}
		survivors++
		if topN <= 0 {
			continue
		}
		heap.Push(h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > topN {
			heap.Pop(h)
		}
	}
	champions = make([]ScoredDoc, h.Len())
	for i := len(champions) - 1; i >= 0; i-- {
		champions[i] = heap.Pop(h).(ScoredDoc)
	}
	return champions, survivors
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// scoredDocHeap is a min-heap on rank: the root is the worst document kept.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
