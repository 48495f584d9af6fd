package pow

import "github.com/sirupsen/logrus"

// Block is one block of the simulated chain. Difficulty is constant, so the
// total difficulty of a block is its height.
type Block struct {
	ID         int
	Height     int
	Parent     *Block
	Producer   int // node id; -1 for genesis
	ProducedAt int64
}

// NewGenesis returns the shared root block.
func NewGenesis() *Block {
	return &Block{Producer: -1}
}

// TotalDifficulty orders competing heads.
func (b *Block) TotalDifficulty() int { return b.Height }

// Better reports whether b strictly beats other. Equal difficulty is not
// better: the first head seen is kept.
func (b *Block) Better(other *Block) bool {
	return b.TotalDifficulty() > other.TotalDifficulty()
}

// Ancestor returns the block of b's chain at the given height, or nil.
func (b *Block) Ancestor(height int) *Block {
	cur := b
	for cur != nil && cur.Height > height {
		cur = cur.Parent
	}
	if cur == nil || cur.Height != height {
		return nil
	}
	return cur
}

func (b *Block) Label() string { return "block" }
func (b *Block) Fields() logrus.Fields {
	return logrus.Fields{"id": b.ID, "height": b.Height, "producer": b.Producer}
}
