package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenList_Order(t *testing.T) {
	var o openList
	o.push(&node{f: 3, h: 1, seq: 1})
	o.push(&node{f: 2, h: 2, seq: 2})
	o.push(&node{f: 2, h: 1, seq: 3})
	o.push(&node{f: 2, h: 1, seq: 4})

	var got []int
	for o.Len() > 0 {
		got = append(got, o.pop().seq)
	}
	assert.Equal(t, []int{3, 4, 2, 1}, got)
}
