package model

// Devotional is the verse of the day shown on the app home screen.
type Devotional struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	Source    string `json:"source"`
}
