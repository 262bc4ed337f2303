package models

// Category is a display grouping. Count is derived from the catalog on
// every change and is never authoritative.
type Category struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}
