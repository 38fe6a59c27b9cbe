package chaincfg

// CalcBlockSubsidy calculates the block reward for a block at the given
// height.  The reward halves every SubsidyHalvingInterval blocks.  Returns
// the reward in satoshis.
func (p *Params) CalcBlockSubsidy(height int32) int64 {
	if p.SubsidyHalvingInterval == 0 {
		return p.BaseSubsidy
	}

	halvings := uint(height / p.SubsidyHalvingInterval)

	// The right shift wraps around 64 bits, guard against it.
	if halvings >= 64 {
		return 0
	}

	return p.BaseSubsidy >> halvings
}

// TotalSupplyAtHeight calculates the total coin supply, in satoshis, after
// all blocks up to and including the given height have been connected.
// Height 0 counts only the genesis reward.
func (p *Params) TotalSupplyAtHeight(height int32) int64 {
	total := p.GenesisReward

	for h := int32(1); h <= height; h++ {
		total += p.CalcBlockSubsidy(h)
	}

	return total
}
