package catalog

// SearchResult is the uniform wire shape every discovery endpoint returns,
// regardless of item kind. Kind-specific fields are omitted when empty.
type SearchResult struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
	ImageURL    string   `json:"imageUrl"`
	Images      []string `json:"images"`
	Location    string   `json:"location"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Category    string   `json:"category"`
	ItemType    Kind     `json:"itemType"`
	IsFeatured  bool     `json:"isFeatured"`
	Distance    *float64 `json:"distance"`

	Bedrooms  int    `json:"bedrooms,omitempty"`
	Bathrooms int    `json:"bathrooms,omitempty"`
	AreaSqft  int    `json:"areaSqft,omitempty"`
	Make      string `json:"make,omitempty"`
	Model     string `json:"model,omitempty"`
	Year      int    `json:"year,omitempty"`
	Seats     int    `json:"seats,omitempty"`
}

// ToSearchResult maps an item to the uniform shape. distanceKm stays nil
// when no caller location was available.
func ToSearchResult(item *CandidateItem, distanceKm *float64) SearchResult {
	price, _ := ResolvePrice(item)
	avg, count := ResolveRating(item)

	imageURL := ""
	if len(item.Images) > 0 {
		imageURL = item.Images[0]
	}
	images := item.Images
	if images == nil {
		images = []string{}
	}

	location := item.City
	if item.State != "" {
		if location != "" {
			location += ", "
		}
		location += item.State
	}

	return SearchResult{
		ID:          item.ID,
		Title:       item.Title,
		Price:       price,
		Rating:      avg,
		ReviewCount: count,
		ImageURL:    imageURL,
		Images:      images,
		Location:    location,
		City:        item.City,
		State:       item.State,
		Category:    item.Category,
		ItemType:    item.Kind,
		IsFeatured:  item.Featured,
		Distance:    distanceKm,
		Bedrooms:    item.Bedrooms,
		Bathrooms:   item.Bathrooms,
		AreaSqft:    item.AreaSqft,
		Make:        item.Make,
		Model:       item.Model,
		Year:        item.Year,
		Seats:       item.Seats,
	}
}

// ToSearchResults maps a slice without distance annotation.
func ToSearchResults(items []CandidateItem) []SearchResult {
	out := make([]SearchResult, 0, len(items))
	for i := range items {
		out = append(out, ToSearchResult(&items[i], nil))
	}
	return out
}
