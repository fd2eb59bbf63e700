package dto

type ImportRequest struct {
	Date  string `json:"date"`
	Force bool   `json:"force"`
}

type ImportResponse struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	PerDate  map[string]int `json:"per_date"`
}
