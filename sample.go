package penpost

import "math/rand/v2"

// samplePosts returns k posts drawn uniformly without replacement, in random
// order. posts itself is never reordered. With k >= len(posts) every post is
// returned, shuffled.
func samplePosts(posts []Post, k int, rng *rand.Rand) []Post {
	n := len(posts)
	if k > n {
		k = n
	}
	if k <= 0 {
		return []Post{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	out := make([]Post, k)
	// Partial Fisher-Yates: after step i, idx[:i+1] is a uniform sample.
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = posts[idx[i]]
	}
	return out
}
