package models

// Product is a catalog record used to enrich events at consumption time.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Company  string  `json:"company"`
}

// User is a catalog record keyed by the userId carried on every event.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}
