package property

// Listing is a property in the agent's active catalog.
type Listing struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Bedrooms string `json:"bedrooms"`
	District string `json:"district"`
}

// Catalog holds the listings a conversation can reference.
type Catalog struct {
	listings []Listing
}

// NewCatalog builds a catalog from the given listings, falling back to the
// default set when none are provided.
func NewCatalog(listings []Listing) *Catalog {
	if len(listings) == 0 {
		listings = DefaultListings()
	}
	return &Catalog{listings: listings}
}

// DefaultListings returns the reference deployment's seed catalog.
func DefaultListings() []Listing {
	return []Listing{
		{Name: "Bedok Resale Condo", Price: "$1.48M", Bedrooms: "3BR", District: "East"},
		{Name: "Tampines New Launch", Price: "$1.52M", Bedrooms: "3BR", District: "East"},
		{Name: "Pasir Ris Rise", Price: "$1.45M", Bedrooms: "3BR", District: "East"},
	}
}

// Listings returns the catalog contents in insertion order.
func (c *Catalog) Listings() []Listing {
	return c.listings
}

// Names returns the listing names in insertion order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.listings))
	for _, l := range c.listings {
		names = append(names, l.Name)
	}
	return names
}
