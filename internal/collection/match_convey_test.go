package collection

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mongtap/mongtap/internal/bsonx"
)

func TestMatchesOperators(t *testing.T) {
	Convey("Given a document with a nested field and an array", t, func() {
		doc := bsonx.D{
			{Key: "sector", Value: "Tech"},
			{Key: "price", Value: int32(100)},
			{Key: "tags", Value: bsonx.A{"growth", "large-cap"}},
			{Key: "meta", Value: bsonx.D{{Key: "exchange", Value: "NASDAQ"}}},
		}

		Convey("When the query is a plain scalar equality", func() {
			query := bsonx.D{{Key: "sector", Value: "Tech"}}

			Convey("It matches", func() {
				So(Matches(doc, query), ShouldBeTrue)
			})
		})

		Convey("When the query uses $gte/$lte on a numeric field", func() {
			query := bsonx.D{{Key: "price", Value: bsonx.D{
				{Key: "$gte", Value: int32(50)},
				{Key: "$lte", Value: int32(100)},
			}}}

			Convey("It matches", func() {
				So(Matches(doc, query), ShouldBeTrue)
			})
		})

		Convey("When the query uses $in against the array field", func() {
			query := bsonx.D{{Key: "tags", Value: bsonx.D{
				{Key: "$in", Value: bsonx.A{"large-cap"}},
			}}}

			Convey("It still reports no match, since $in compares the array as a whole value", func() {
				So(Matches(doc, query), ShouldBeFalse)
			})
		})

		Convey("When the query dots into a nested field", func() {
			query := bsonx.D{{Key: "meta.exchange", Value: "NASDAQ"}}

			Convey("It matches", func() {
				So(Matches(doc, query), ShouldBeTrue)
			})
		})

		Convey("When the query uses $and combining a true and false clause", func() {
			query := bsonx.D{{Key: "$and", Value: bsonx.A{
				bsonx.D{{Key: "sector", Value: "Tech"}},
				bsonx.D{{Key: "sector", Value: "Energy"}},
			}}}

			Convey("It reports no match", func() {
				So(Matches(doc, query), ShouldBeFalse)
			})
		})

		Convey("When the query uses $or combining a true and false clause", func() {
			query := bsonx.D{{Key: "$or", Value: bsonx.A{
				bsonx.D{{Key: "sector", Value: "Tech"}},
				bsonx.D{{Key: "sector", Value: "Energy"}},
			}}}

			Convey("It matches", func() {
				So(Matches(doc, query), ShouldBeTrue)
			})
		})

		Convey("When the query checks $exists on an absent field", func() {
			query := bsonx.D{{Key: "missing", Value: bsonx.D{{Key: "$exists", Value: false}}}}

			Convey("It matches", func() {
				So(Matches(doc, query), ShouldBeTrue)
			})
		})

		Convey("When the query includes a generation parameter like $seed", func() {
			query := bsonx.D{{Key: "sector", Value: "Tech"}, {Key: "$seed", Value: int32(7)}}

			Convey("The generation parameter is ignored rather than treated as a filter", func() {
				So(Matches(doc, query), ShouldBeTrue)
			})
		})
	})
}
