package master

import "replog/internal/rerrors"

// Admit is C10's write-admission gate: reject writes when too few healthy
// nodes remain. It wraps Coordinator.VerifyQuorum with the taxonomy's
// QuorumUnmet error so HTTP handlers can translate it directly into a 503.
func (c *Coordinator) Admit(writeQuorum int) error {
	if c.VerifyQuorum(writeQuorum) {
		return nil
	}
	return rerrors.QuorumUnmet("admit", nil)
}
