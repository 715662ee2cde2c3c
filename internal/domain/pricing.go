package domain

// Pricer computes authoritative order totals from the catalog. It is the only
// component allowed to turn a cart into money: the same computation runs at
// intent creation, at payment confirmation, and at deferred submission, and
// any divergence between those call sites is the bug class this package exists
// to prevent.
type Pricer struct {
	catalog Catalog
}

// NewPricer constructs a Pricer over the supplied catalog.
func NewPricer(catalog Catalog) Pricer {
	return Pricer{catalog: catalog}
}

// Total returns the authoritative total for the cart in whole currency units.
// Client-carried line prices are ignored; only quantities and the catalog unit
// price participate.
func (p Pricer) Total(cart Cart) int64 {
	var total int64
	for _, line := range cart {
		total += int64(line.Quantity) * p.catalog.UnitPrice
	}
	return total
}

// TotalCents returns the authoritative total in minor currency units, as
// expected by the payment processor.
func (p Pricer) TotalCents(cart Cart) int64 {
	return p.Total(cart) * 100
}
