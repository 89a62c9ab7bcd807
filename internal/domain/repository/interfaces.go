package repository

// Metrics records operational signals of the analytics service.
type Metrics interface {
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
	RecordLedgerRows(ledger string, rows int)
	RecordCacheResult(op string, hit bool)
	RecordInvalidation(ledger string)
}
