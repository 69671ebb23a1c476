package helper

import (
	"context"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStoreDump(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns documents in cursor order", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "2"}, {Key: "updateTime", Value: int64(2000)}},
			bson.D{{Key: "_id", Value: "1"}, {Key: "updateTime", Value: int64(1000)}},
		))

		store := NewMongoStore(mt.DB)
		cur, err := store.Dump(context.Background(), mt.Coll.Name())
		if err != nil {
			mt.Fatalf("Dump() = %v, want nil", err)
		}
		defer cur.Close(context.Background())

		var ids []string
		for cur.Next(context.Background()) {
			var doc struct {
				ID string `bson:"_id"`
			}
			if err := cur.Decode(&doc); err != nil {
				mt.Fatalf("Decode() = %v, want nil", err)
			}
			ids = append(ids, doc.ID)
		}
		if err := cur.Err(); err != nil {
			mt.Fatalf("Err() = %v, want nil", err)
		}
		if len(ids) != 2 || ids[0] != "2" || ids[1] != "1" {
			mt.Fatalf("Dump() ids = %v, want [2 1]", ids)
		}
	})

	mt.Run("sends the export sort with disk use allowed", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		cur, err := NewMongoStore(mt.DB).Dump(context.Background(), mt.Coll.Name())
		if err != nil {
			mt.Fatalf("Dump() = %v, want nil", err)
		}
		defer cur.Close(context.Background())

		var cmd bson.Raw
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName == "aggregate" {
				cmd = evt.Command
			}
		}
		if cmd == nil {
			mt.Fatalf("no aggregate command sent")
		}
		var got struct {
			Aggregate    string   `bson:"aggregate"`
			Pipeline     []bson.D `bson:"pipeline"`
			AllowDiskUse bool     `bson:"allowDiskUse"`
		}
		if err := bson.Unmarshal(cmd, &got); err != nil {
			mt.Fatalf("Unmarshal(command) = %v", err)
		}
		want := []bson.D{{{Key: "$sort", Value: bson.D{
			{Key: "updateTime", Value: int32(-1)},
			{Key: "crawlTime", Value: int32(-1)},
		}}}}
		if got.Aggregate != mt.Coll.Name() {
			mt.Errorf("aggregate = %q, want %q", got.Aggregate, mt.Coll.Name())
		}
		if !reflect.DeepEqual(got.Pipeline, want) {
			mt.Errorf("pipeline = %v, want %v", got.Pipeline, want)
		}
		if !got.AllowDiskUse {
			mt.Errorf("allowDiskUse = false, want true")
		}
	})

	mt.Run("surfaces command errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad sort",
			Name:    "BadValue",
		}))
		store := NewMongoStore(mt.DB)
		if _, err := store.Dump(context.Background(), mt.Coll.Name()); err == nil {
			mt.Fatalf("Dump() = nil, want error")
		}
	})
}
