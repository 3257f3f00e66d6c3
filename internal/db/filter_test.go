package db

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterBuilder(t *testing.T) {
	got := NewFilter().
		Eq("receiver_id", "u").
		In("_id", []string{"1", "2"}).
		Build()

	want := bson.M{
		"receiver_id": "u",
		"_id":         bson.M{"$in": []string{"1", "2"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestContainsEscapesRegex(t *testing.T) {
	got := NewFilter().Contains("username", "a.b*").Build()
	want := bson.M{"username": bson.M{"$regex": `a\.b\*`, "$options": "i"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestPairAndParticipant(t *testing.T) {
	want := bson.M{"$or": []bson.M{
		{"sender_id": "a", "receiver_id": "b"},
		{"sender_id": "b", "receiver_id": "a"},
	}}
	if diff := cmp.Diff(want, Pair("a", "b")); diff != "" {
		t.Errorf("pair mismatch (-want +got):\n%s", diff)
	}

	want = bson.M{"$or": []bson.M{{"sender_id": "u"}, {"receiver_id": "u"}}}
	if diff := cmp.Diff(want, Participant("u")); diff != "" {
		t.Errorf("participant mismatch (-want +got):\n%s", diff)
	}
}

func TestOrIgnoresEmpty(t *testing.T) {
	got := NewFilter().Or().Build()
	if len(got) != 0 {
		t.Errorf("expected empty filter, got %v", got)
	}
}
