package models

import "fmt"

// Category is one of the data kinds exposed by the source API. Each category
// has its own endpoint, its own snapshot file and its own unique key field.
type Category int

const (
	CategoryTracks Category = iota
	CategoryUsers
	CategoryListenHistory
)

var categoryNames = [...]string{
	CategoryTracks:        "tracks",
	CategoryUsers:         "users",
	CategoryListenHistory: "listen_history",
}

var categoryKeys = [...]string{
	CategoryTracks:        "id",
	CategoryUsers:         "id",
	CategoryListenHistory: "user_id",
}

// Categories returns every category in pipeline order.
func Categories() []Category {
	return []Category{CategoryTracks, CategoryUsers, CategoryListenHistory}
}

func (c Category) String() string {
	if !c.valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Endpoint is the API path segment the category is fetched from.
func (c Category) Endpoint() string {
	return c.String()
}

// KeyField is the name of the field that uniquely identifies a record.
func (c Category) KeyField() string {
	if !c.valid() {
		return ""
	}
	return categoryKeys[c]
}

func (c Category) valid() bool {
	return c >= CategoryTracks && c <= CategoryListenHistory
}

func ParseCategory(name string) (Category, error) {
	for _, c := range Categories() {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", name)
}
