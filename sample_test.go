package penpost

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func numberedPosts(n int) []Post {
	posts := make([]Post, n)
	for i := range posts {
		posts[i] = Post{Slug: fmt.Sprintf("p%d", i)}
	}
	return posts
}

func TestSamplePostsSizeAndDistinct(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	posts := numberedPosts(12)

	got := samplePosts(posts, 5, rng)
	assert.Len(t, got, 5)
	seen := map[string]bool{}
	for _, p := range got {
		assert.False(t, seen[p.Slug], "duplicate %s", p.Slug)
		seen[p.Slug] = true
	}
}

func TestSamplePostsDoesNotMutateInput(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	posts := numberedPosts(8)
	before := slugs(posts)

	samplePosts(posts, 5, rng)
	assert.Equal(t, before, slugs(posts))
}

func TestSamplePostsSmallInputs(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	assert.Empty(t, samplePosts(nil, 5, rng))
	assert.Empty(t, samplePosts(numberedPosts(3), 0, rng))
	assert.ElementsMatch(t, []string{"p0", "p1", "p2"}, slugs(samplePosts(numberedPosts(3), 5, rng)))
}

// Every post should be picked about k/n of the time.
func TestSamplePostsUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	const n, k, rounds = 10, 5, 20000
	posts := numberedPosts(n)
	counts := map[string]int{}
	for i := 0; i < rounds; i++ {
		for _, p := range samplePosts(posts, k, rng) {
			counts[p.Slug]++
		}
	}
	want := float64(rounds*k) / n
	for _, p := range posts {
		got := float64(counts[p.Slug])
		assert.InDelta(t, want, got, want*0.05, "post %s picked %v times", p.Slug, got)
	}
}
