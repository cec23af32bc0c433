package toggle

import (
	"encoding/json"
	"time"
)

// Toggle is a feature toggle stored under a package (namespace). The package
// itself is not a field: it is the collection the toggle lives in.
type Toggle struct {
	ID             string    `json:"_id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Description    string    `json:"description" bson:"description"`
	BeginningDate  time.Time `json:"beginning_date" bson:"beginning_date"`
	ExpirationDate time.Time `json:"expiration_date" bson:"expiration_date"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// MarshalJSON renders timestamps in the same layout the API accepts.
func (t Toggle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string `json:"_id"`
		Name           string `json:"name"`
		Description    string `json:"description"`
		BeginningDate  string `json:"beginning_date"`
		ExpirationDate string `json:"expiration_date"`
		CreatedAt      string `json:"created_at"`
		UpdatedAt      string `json:"updated_at"`
	}{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		BeginningDate:  FormatDateTime(t.BeginningDate),
		ExpirationDate: FormatDateTime(t.ExpirationDate),
		CreatedAt:      FormatDateTime(t.CreatedAt),
		UpdatedAt:      FormatDateTime(t.UpdatedAt),
	})
}

// Stats summarises a package.
type Stats struct {
	Total  int64 `json:"total_features"`
	Active int64 `json:"active_features"`
}
