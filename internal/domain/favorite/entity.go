package favorite

import (
	"time"

	"jobmarket/internal/docstore"
	"jobmarket/internal/domain/listing"
)

const Collection = "favorites"

var Indexes = []docstore.Index{
	{Collection: Collection, Fields: []string{"userId"}},
}

type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	JobID     string    `json:"jobId"`
	CreatedAt time.Time `json:"createdAt"`
}

// WithListing pairs a favorite with the listing it points at.
type WithListing struct {
	Favorite
	Listing *listing.Listing `json:"listing"`
}

// ID returns the document id of the user's favorite for a listing. One
// user can favorite a listing at most once.
func ID(userID, jobID string) string {
	return userID + "_" + jobID
}

func fromDocument(doc *docstore.Document) (*Favorite, error) {
	var f Favorite
	if err := doc.DataTo(&f); err != nil {
		return nil, err
	}
	f.CreatedAt = doc.CreateTime
	return &f, nil
}
