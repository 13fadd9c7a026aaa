package metrics

// Collector receives extraction records and reports aggregates.
// Implementations must be safe for concurrent use.
type Collector interface {
	// Record adds one finished extraction.
	Record(rec ExtractionRecord)

	// Summary returns aggregates over every record seen, not only retained ones.
	Summary() Summary

	// Recent returns up to limit of the newest retained records, oldest first.
	Recent(limit int) []ExtractionRecord
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(ExtractionRecord) {}

func (Nop) Summary() Summary {
	return Summary{
		ByFormat: map[string]*FormatMetrics{},
		ByReason: map[string]int64{},
		ByTier:   map[string]int64{},
	}
}

func (Nop) Recent(int) []ExtractionRecord { return []ExtractionRecord{} }

var (
	_ Collector = (*Store)(nil)
	_ Collector = Nop{}
)
