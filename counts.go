package qalarm

import (
	"fmt"
	"sort"
	"strings"
)

// Counts maps an observed outcome bit string to the number of shots that
// produced it.
type Counts map[string]int

// Total is the number of shots the table accounts for.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Merge adds other into c.
func (c Counts) Merge(other Counts) {
	for k, n := range other {
		c[k] += n
	}
}

// Keys returns the outcomes in lexical order.
func (c Counts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dominant returns the most frequent outcome. Ties go to the lexically
// smaller outcome. The second result is false for an empty table.
func (c Counts) Dominant() (string, bool) {
	best, bestN, found := "", -1, false
	for _, k := range c.Keys() {
		if c[k] > bestN {
			best, bestN, found = k, c[k], true
		}
	}
	return best, found
}

// Distribution collapses the table into outcome states ordered by outcome.
func (c Counts) Distribution() []State {
	total := c.Total()
	states := make([]State, 0, len(c))

	for _, k := range c.Keys() {
		s := State{Value: k, Count: c[k]}
		if total > 0 {
			s.Probability = float64(c[k]) / float64(total)
		}
		states = append(states, s)
	}

	return states
}

// String renders the table as {'0': 512, '1': 512}.
func (c Counts) String() string {
	parts := make([]string, 0, len(c))
	for _, k := range c.Keys() {
		parts = append(parts, fmt.Sprintf("'%s': %d", k, c[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
