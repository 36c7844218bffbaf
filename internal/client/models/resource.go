package models

import "time"

type UserRef struct {
	ID int64 `json:"id"`
}

// Ownership holds the aliases under which the backend reports a resource's
// owner. Owner resolution looks at them in field order.
type Ownership struct {
	CreatedBy *UserRef `json:"createdBy,omitempty"`
	UserID    *int64   `json:"userId,omitempty"`
	AuthorID  *int64   `json:"authorId,omitempty"`
}

// Owner lets every resource embedding Ownership be handed to the policy.
func (o Ownership) Owner() Ownership { return o }

// Page is the paged list envelope used by the resource collections.
type Page[T any] struct {
	Page    int `json:"page"`
	Size    int `json:"size"`
	Content []T `json:"content"`
}

type Origin struct {
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
	Farm    string `json:"farm,omitempty"`
}

type Flavor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Bean struct {
	ID          int64    `json:"beanId"`
	Name        string   `json:"name"`
	Origin      Origin   `json:"origin"`
	Roaster     string   `json:"roaster"`
	RoastDate   string   `json:"roastDate,omitempty"`
	Grams       int      `json:"grams"`
	RoastLevel  string   `json:"roastLevel,omitempty"`
	ProcessType string   `json:"processType,omitempty"`
	BlendType   string   `json:"blendType,omitempty"`
	IsDecaf     bool     `json:"isDecaf"`
	Flavors     []Flavor `json:"flavors,omitempty"`
	FlavorIDs   []int64  `json:"flavorIds,omitempty"`
	Memo        string   `json:"memo,omitempty"`
	Status      string   `json:"status,omitempty"`
	Ownership
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
	BuyURL string  `json:"buyUrl,omitempty"`
}

type RecipeStep struct {
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description"`
}

type Recipe struct {
	ID          int64        `json:"id"`
	Category    string       `json:"category"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Serving     int          `json:"serving"`
	Tags        []string     `json:"tags,omitempty"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
	Steps       []RecipeStep `json:"steps,omitempty"`
	Tips        string       `json:"tips,omitempty"`
	Status      string       `json:"status,omitempty"`
	Ownership
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

type Equipment struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Description string `json:"description,omitempty"`
	BuyDate     string `json:"buyDate,omitempty"`
	BuyURL      string `json:"buyUrl,omitempty"`
	Status      string `json:"status,omitempty"`
	Ownership
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
