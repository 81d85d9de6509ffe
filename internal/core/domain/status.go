package domain

// statusRank orders statuses on the monotonic lattice
// pending -> {paid | refused} -> chargedback.
var statusRank = map[TransactionStatus]int{
	StatusPending:     1,
	StatusProcessing:  1,
	StatusPaid:        2,
	StatusRefused:     2,
	StatusChargedback: 3,
}

// Known reports whether s is a status the lattice understands.
func (s TransactionStatus) Known() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvance reports whether moving from current to next is a forward
// transition. An empty current means the transaction has not been seen.
// Equal-rank moves (duplicates, paid<->refused) are rejected, and a
// chargeback is only reachable from paid.
func CanAdvance(current, next TransactionStatus) bool {
	nextRank, ok := statusRank[next]
	if !ok {
		return false
	}
	if current == "" {
		return true
	}
	if next == StatusChargedback && current != StatusPaid {
		return false
	}
	return nextRank > statusRank[current]
}

// StatusForEvent maps a webhook event type to the status it asserts.
func StatusForEvent(event string) (TransactionStatus, bool) {
	switch event {
	case EventTransactionPaid:
		return StatusPaid, true
	case EventTransactionRefused:
		return StatusRefused, true
	case EventTransactionPending:
		return StatusPending, true
	case EventTransactionChargedback:
		return StatusChargedback, true
	}
	return "", false
}
