package models

// Asset represents a single record from the assets metadata endpoint. Only
// the product id and ticker are consumed; additional fields are ignored.
type Asset struct {
	ProductID int64  `json:"product_id"`
	TickerID  string `json:"ticker_id"`
}

// ProductMapping maps product ids to ticker symbols while preserving the
// order in which the assets endpoint returned them. The zero value (or a nil
// pointer) behaves as an empty mapping.
type ProductMapping struct {
	ids     []int64
	tickers map[int64]string
}

// NewProductMapping builds a mapping from asset records. Duplicate product
// ids keep their first position but the last ticker value wins.
func NewProductMapping(assets []Asset) *ProductMapping {
	m := &ProductMapping{
		ids:     make([]int64, 0, len(assets)),
		tickers: make(map[int64]string, len(assets)),
	}
	for _, a := range assets {
		if _, ok := m.tickers[a.ProductID]; !ok {
			m.ids = append(m.ids, a.ProductID)
		}
		m.tickers[a.ProductID] = a.TickerID
	}
	return m
}

// Len returns the number of distinct product ids in the mapping.
func (m *ProductMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// IDs returns product ids in the order the assets endpoint listed them.
func (m *ProductMapping) IDs() []int64 {
	if m == nil {
		return nil
	}
	return m.ids
}

// Ticker resolves a product id to its ticker symbol.
func (m *ProductMapping) Ticker(id int64) (string, bool) {
	if m == nil {
		return "", false
	}
	t, ok := m.tickers[id]
	return t, ok
}

// SameIDSet reports whether both mappings cover exactly the same set of
// product ids. Order and ticker values are not compared.
func (m *ProductMapping) SameIDSet(other *ProductMapping) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, id := range m.IDs() {
		if _, ok := other.Ticker(id); !ok {
			return false
		}
	}
	return true
}

// Snapshot is one timestamped set of raw funding-rate observations keyed by
// product-id string. Raw values are 24h rates scaled by 1e18. Snapshots are
// immutable once fetched.
type Snapshot struct {
	Timestamp    int64             `json:"timestamp"`
	FundingRates map[string]string `json:"funding_rates"`
}

// ArchiveRequest is the POST body of the historical-archive endpoint.
type ArchiveRequest struct {
	MarketSnapshots MarketSnapshotsQuery `json:"market_snapshots"`
}

type MarketSnapshotsQuery struct {
	Interval   SnapshotInterval `json:"interval"`
	ProductIDs []int64          `json:"product_ids"`
}

type SnapshotInterval struct {
	Count       int   `json:"count"`
	Granularity int64 `json:"granularity"`
	MaxTime     int64 `json:"max_time"`
}

// ArchiveResponse wraps the snapshots array of the archive endpoint. The
// array may be absent or empty.
type ArchiveResponse struct {
	Snapshots []Snapshot `json:"snapshots"`
}

// FundingEntry is one computed hourly percentage rate. Fallback marks an
// entry whose raw value failed to parse and was coerced to zero, so callers
// can tell a genuine zero rate from a degraded one.
type FundingEntry struct {
	Timestamp     int64   `json:"timestamp"`
	HourlyRatePct float64 `json:"hourly_rate_pct"`
	Fallback      bool    `json:"fallback,omitempty"`
}

// FundingBook collects funding entries per ticker in encounter order and
// remembers the order in which tickers first appeared, which keeps the final
// ranking stable for equal averages.
type FundingBook struct {
	entries map[string][]FundingEntry
	order   []string
}

func NewFundingBook() *FundingBook {
	return &FundingBook{entries: make(map[string][]FundingEntry)}
}

// Append adds an entry to the ticker's sequence, registering the ticker on
// first appearance.
func (b *FundingBook) Append(ticker string, e FundingEntry) {
	if _, ok := b.entries[ticker]; !ok {
		b.order = append(b.order, ticker)
	}
	b.entries[ticker] = append(b.entries[ticker], e)
}

// Entries returns the ticker's entry sequence in insertion order.
func (b *FundingBook) Entries(ticker string) []FundingEntry {
	return b.entries[ticker]
}

// Tickers returns all tickers in first-appearance order.
func (b *FundingBook) Tickers() []string {
	return b.order
}

// Len returns the number of distinct tickers in the book.
func (b *FundingBook) Len() int {
	return len(b.order)
}

// AverageRate is a ticker together with its averaged daily funding rate in
// percent. Computed once, used only for ranking and display.
type AverageRate struct {
	Ticker string
	Rate   float64
}
