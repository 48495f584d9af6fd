package pow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type chain struct {
	next int
}

func (c *chain) on(parent *Block, producer int) *Block {
	c.next++
	return &Block{ID: c.next, Height: parent.Height + 1, Parent: parent, Producer: producer}
}

func ids(blocks []*Block) []int {
	out := []int{}
	for _, b := range blocks {
		out = append(out, b.ID)
	}
	return out
}

func TestSelfish_WithholdsOwnBlocks(t *testing.T) {
	g := NewGenesis()
	c := &chain{}
	s := newSelfishState(g)

	p1 := c.on(g, 0)
	assert.Empty(t, s.onOwnBlock(p1))
	p2 := c.on(p1, 0)
	assert.Empty(t, s.onOwnBlock(p2))

	assert.Equal(t, 2, s.lead())
	assert.Len(t, s.unpublished, 2)
}

func TestSelfish_TieStartsRaceAndOwnBlockWinsIt(t *testing.T) {
	// GIVEN a one block private lead
	g := NewGenesis()
	c := &chain{}
	s := newSelfishState(g)
	p1 := c.on(g, 0)
	s.onOwnBlock(p1)

	// WHEN the honest network finds a block at the same height
	h1 := c.on(g, 1)
	out := s.onOtherBlock(h1)

	// THEN the private block is published and a race starts
	assert.Equal(t, ids([]*Block{p1}), ids(out))
	assert.True(t, s.racing)

	// WHEN the selfish miner finds the next block
	p2 := c.on(p1, 0)
	out = s.onOwnBlock(p2)

	// THEN it is published at once and the race is over
	assert.Equal(t, ids([]*Block{p2}), ids(out))
	assert.False(t, s.racing)
	assert.Same(t, p2, s.publicHead)
}

func TestSelfish_LosesRace(t *testing.T) {
	g := NewGenesis()
	c := &chain{}
	s := newSelfishState(g)
	p1 := c.on(g, 0)
	s.onOwnBlock(p1)
	h1 := c.on(g, 1)
	s.onOtherBlock(h1)

	h2 := c.on(h1, 2)
	assert.Empty(t, s.onOtherBlock(h2))
	assert.Same(t, h2, s.privateHead)
	assert.False(t, s.racing)
	assert.Empty(t, s.unpublished)
}

func TestSelfish_LeadOfTwoPublishesAll(t *testing.T) {
	g := NewGenesis()
	c := &chain{}
	s := newSelfishState(g)
	p1 := c.on(g, 0)
	s.onOwnBlock(p1)
	p2 := c.on(p1, 0)
	s.onOwnBlock(p2)

	out := s.onOtherBlock(c.on(g, 1))
	assert.Equal(t, ids([]*Block{p1, p2}), ids(out))
	assert.Same(t, p2, s.publicHead)
	assert.Empty(t, s.unpublished)
}

func TestSelfish_LongLeadPublishesMatchingPrefix(t *testing.T) {
	g := NewGenesis()
	c := &chain{}
	s := newSelfishState(g)
	var private []*Block
	tip := g
	for i := 0; i < 4; i++ {
		tip = c.on(tip, 0)
		s.onOwnBlock(tip)
		private = append(private, tip)
	}

	h1 := c.on(g, 1)
	assert.Equal(t, ids(private[:1]), ids(s.onOtherBlock(h1)))
	h2 := c.on(h1, 1)
	assert.Equal(t, ids(private[1:2]), ids(s.onOtherBlock(h2)))
	h3 := c.on(h2, 1)
	assert.Equal(t, ids(private[2:]), ids(s.onOtherBlock(h3)), "lead fell to one")
	assert.False(t, s.racing)
}

func TestSelfish_AdoptsWhenBehindAndIgnoresStaleBlocks(t *testing.T) {
	g := NewGenesis()
	c := &chain{}
	s := newSelfishState(g)

	h1 := c.on(g, 1)
	assert.Empty(t, s.onOtherBlock(h1))
	assert.Same(t, h1, s.privateHead)

	stale := c.on(g, 2)
	assert.Empty(t, s.onOtherBlock(stale))
	assert.Same(t, h1, s.publicHead)
}
