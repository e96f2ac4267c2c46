package client

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Property struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Price        float64  `json:"price"`
	PricePerArea *float64 `json:"price_per_area,omitempty"`
	Category     string   `json:"category"`
	Status       string   `json:"status"`
	Area         *float64 `json:"area,omitempty"`
	Rooms        *int     `json:"rooms,omitempty"`
	LocationPath []string `json:"location_path,omitempty"`
	Coordinates  *Point   `json:"coordinates,omitempty"`
	DistanceKm   *float64 `json:"distance_km,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Suggestion struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

type SearchPage struct {
	Items          []Property   `json:"items"`
	Pagination     Pagination   `json:"pagination"`
	AppliedFilters []string     `json:"applied_filters"`
	Warnings       []Warning    `json:"warnings,omitempty"`
	Suggestions    []Suggestion `json:"suggestions,omitempty"`
}

type Cluster struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Count    int     `json:"count"`
	AvgPrice float64 `json:"avg_price"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Cell     string  `json:"cell,omitempty"`
}

type Distance struct {
	From       Point   `json:"from"`
	To         Point   `json:"to"`
	DistanceKm float64 `json:"distance_km"`
}

type RouteResult struct {
	Items []Property `json:"items"`
	Count int        `json:"count"`
}

type SavedSearch struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Criteria  map[string]any `json:"criteria"`
	IsActive  bool           `json:"is_active"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type MatchCount struct {
	SavedSearchID string `json:"saved_search_id"`
	Count         int    `json:"count"`
	Exact         bool   `json:"exact"`
}
