package databases

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Page bounds. Larger requests are clamped so that the skip stays in range.
const (
	MaxPageSize = 100
	MaxPage     = 100000
)

// ClampPage bounds limit to [1, MaxPageSize] and page to [1, MaxPage]
func ClampPage(limit, page int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	return limit, page
}

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	limit, page = ClampPage(limit, page)
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := (mp.page - 1) * mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// newestFirst sorts by creation date descending
var newestFirst = bson.D{{Key: "date", Value: -1}}

// notFound turns mongo.ErrNoDocuments into models.ErrNotFound and wraps
// anything else
func notFound(what string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}
