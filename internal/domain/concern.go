package domain

// Concern is a named objection blocking a proposal from entering its
// final comment period. The (Proposal, Name) pair is a natural key:
// once a name has been used on a proposal it is never reused, even
// after the concern is resolved.
type Concern struct {
	ID                int64
	Proposal          int64
	Initiator         int64
	Name              string
	InitiatingComment int64
	ResolvedComment   *int64
}

// Open reports whether the concern still blocks the proposal.
func (c *Concern) Open() bool {
	return c.ResolvedComment == nil
}
