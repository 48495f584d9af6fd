package pow

import "github.com/netsim/netsim/sim"

// selfishState is the Eyal-Sirer selfish mining strategy. The miner keeps a
// private chain and decides, on each event, which withheld blocks to publish.
// Methods return the blocks to broadcast, in height order.
type selfishState struct {
	privateHead *Block
	publicHead  *Block // best block known to the honest network
	unpublished []*Block
	racing      bool // a private block was published to tie the public head
}

func newSelfishState(genesis *Block) *selfishState {
	return &selfishState{privateHead: genesis, publicHead: genesis}
}

// lead is the private chain's advance over the public one.
func (s *selfishState) lead() int {
	return s.privateHead.Height - s.publicHead.Height
}

// onOwnBlock extends the private chain. Winning a race publishes everything.
func (s *selfishState) onOwnBlock(b *Block) []*Block {
	sim.Assert(b.Parent == s.privateHead, "selfish block %d does not extend the private head", b.ID)
	s.privateHead = b
	s.unpublished = append(s.unpublished, b)
	if s.racing {
		s.racing = false
		return s.publish(b.Height)
	}
	return nil
}

// onOtherBlock reacts to a block mined by someone else.
func (s *selfishState) onOtherBlock(b *Block) []*Block {
	if !b.Better(s.publicHead) {
		return nil
	}
	s.publicHead = b
	switch lead := s.privateHead.Height - b.Height; {
	case lead < 0:
		// Behind: abandon the private chain.
		sim.Assert(b.Better(s.privateHead), "adopting block %d no better than the private head", b.ID)
		s.privateHead = b
		s.unpublished = nil
		s.racing = false
		return nil
	case lead == 0:
		s.racing = true
		return s.publish(b.Height)
	case lead == 1:
		return s.publish(s.privateHead.Height)
	default:
		return s.publish(b.Height)
	}
}

// publish releases the withheld blocks up to height.
func (s *selfishState) publish(height int) []*Block {
	n := 0
	for n < len(s.unpublished) && s.unpublished[n].Height <= height {
		n++
	}
	out := s.unpublished[:n:n]
	s.unpublished = s.unpublished[n:]
	if n > 0 && out[n-1].Better(s.publicHead) {
		s.publicHead = out[n-1]
	}
	return out
}
