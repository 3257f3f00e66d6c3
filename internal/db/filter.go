package db

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
)

// FilterBuilder helps build MongoDB filters fluently
type FilterBuilder struct {
	filter bson.M
}

// NewFilter creates a new FilterBuilder
func NewFilter() *FilterBuilder {
	return &FilterBuilder{filter: bson.M{}}
}

// Eq adds an equality condition
func (f *FilterBuilder) Eq(field string, value interface{}) *FilterBuilder {
	f.filter[field] = value
	return f
}

// In adds an $in condition (value in array)
func (f *FilterBuilder) In(field string, values interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$in": values}
	return f
}

// Contains adds a case-insensitive substring search. The value is matched
// literally, regex metacharacters are escaped.
func (f *FilterBuilder) Contains(field string, value string) *FilterBuilder {
	f.filter[field] = ContainsExpr(value)
	return f
}

// Or combines multiple filters with OR
func (f *FilterBuilder) Or(filters ...bson.M) *FilterBuilder {
	if len(filters) > 0 {
		f.filter["$or"] = filters
	}
	return f
}

// Build returns the final bson.M filter
func (f *FilterBuilder) Build() bson.M {
	return f.filter
}

// ContainsExpr is the case-insensitive literal substring expression used by
// Contains, usable inside Or branches.
func ContainsExpr(value string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(value), "$options": "i"}
}

// Pair matches documents exchanged between a and b in either direction.
func Pair(a, b string) bson.M {
	return bson.M{"$or": []bson.M{
		{"sender_id": a, "receiver_id": b},
		{"sender_id": b, "receiver_id": a},
	}}
}

// Participant matches documents sent or received by userID.
func Participant(userID string) bson.M {
	return bson.M{"$or": []bson.M{
		{"sender_id": userID},
		{"receiver_id": userID},
	}}
}
