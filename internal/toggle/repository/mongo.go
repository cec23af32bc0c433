package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/featuretoggle/featuretoggle/internal/toggle"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DatabaseProvider hands out the database on demand, connecting if needed.
// *database.Holder implements it.
type DatabaseProvider interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// MongoRepo stores each namespace as its own collection, keyed by the
// string "_id" the service assigns.
type MongoRepo struct {
	dbs DatabaseProvider
}

// NewMongoRepo resolves the database on every call, so a connection that
// failed at startup is retried on first use.
func NewMongoRepo(p DatabaseProvider) *MongoRepo {
	return &MongoRepo{dbs: p}
}

func (m *MongoRepo) collection(ctx context.Context, ns string) (*mongo.Collection, error) {
	db, err := m.dbs.Database(ctx)
	if err != nil {
		return nil, storeErr("connect", err)
	}
	return db.Collection(ns), nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", toggle.ErrStoreUnavailable, op, err)
}

func (m *MongoRepo) NamespaceExists(ctx context.Context, ns string) (bool, error) {
	db, err := m.dbs.Database(ctx)
	if err != nil {
		return false, storeErr("connect", err)
	}
	names, err := db.ListCollectionNames(ctx, bson.M{"name": ns})
	if err != nil {
		return false, storeErr("list collections", err)
	}
	return len(names) > 0, nil
}

func (m *MongoRepo) Insert(ctx context.Context, ns string, t *toggle.Toggle) error {
	col, err := m.collection(ctx, ns)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, t); err != nil {
		return storeErr("insert", err)
	}
	return nil
}

func (m *MongoRepo) FindAll(ctx context.Context, ns string) ([]*toggle.Toggle, error) {
	return m.Find(ctx, ns, Filter{})
}

func (m *MongoRepo) Find(ctx context.Context, ns string, f Filter) ([]*toggle.Toggle, error) {
	col, err := m.collection(ctx, ns)
	if err != nil {
		return nil, err
	}
	cur, err := col.Find(ctx, filterDoc(f))
	if err != nil {
		return nil, storeErr("find", err)
	}
	defer cur.Close(ctx)
	out := []*toggle.Toggle{}
	for cur.Next(ctx) {
		var t toggle.Toggle
		if err := cur.Decode(&t); err != nil {
			return nil, storeErr("decode", err)
		}
		out = append(out, &t)
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("cursor", err)
	}
	return out, nil
}

func (m *MongoRepo) FindByID(ctx context.Context, ns, id string) (*toggle.Toggle, error) {
	col, err := m.collection(ctx, ns)
	if err != nil {
		return nil, err
	}
	var t toggle.Toggle
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, toggle.ErrToggleNotFound
		}
		return nil, storeErr("find one", err)
	}
	return &t, nil
}

func (m *MongoRepo) UpdateFields(ctx context.Context, ns, id string, f Fields) (int64, error) {
	if f.Empty() {
		return 0, nil
	}
	col, err := m.collection(ctx, ns)
	if err != nil {
		return 0, err
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": setDoc(f)})
	if err != nil {
		return 0, storeErr("update", err)
	}
	return res.MatchedCount, nil
}

func (m *MongoRepo) DeleteByID(ctx context.Context, ns, id string) (int64, error) {
	col, err := m.collection(ctx, ns)
	if err != nil {
		return 0, err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, storeErr("delete", err)
	}
	return res.DeletedCount, nil
}

func (m *MongoRepo) DeleteAll(ctx context.Context, ns string) (int64, error) {
	col, err := m.collection(ctx, ns)
	if err != nil {
		return 0, err
	}
	res, err := col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, storeErr("delete many", err)
	}
	return res.DeletedCount, nil
}

func (m *MongoRepo) Count(ctx context.Context, ns string, f *Filter) (int64, error) {
	q := bson.D{}
	if f != nil {
		q = filterDoc(*f)
	}
	col, err := m.collection(ctx, ns)
	if err != nil {
		return 0, err
	}
	n, err := col.CountDocuments(ctx, q)
	if err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

// filterDoc translates a Filter into a Mongo query with the same semantics
// as Filter.Match.
func filterDoc(f Filter) bson.D {
	conds := bson.A{}
	if f.ActiveAt != nil {
		conds = append(conds,
			bson.D{{Key: "beginning_date", Value: bson.D{{Key: "$lte", Value: *f.ActiveAt}}}},
			bson.D{{Key: "expiration_date", Value: bson.D{{Key: "$gte", Value: *f.ActiveAt}}}},
		)
	}
	if f.OverlapStart != nil && f.OverlapEnd != nil {
		conds = append(conds,
			bson.D{{Key: "beginning_date", Value: bson.D{{Key: "$lte", Value: *f.OverlapEnd}}}},
			bson.D{{Key: "expiration_date", Value: bson.D{{Key: "$gte", Value: *f.OverlapStart}}}},
		)
	}
	if f.CreatedSince != nil {
		conds = append(conds, bson.D{{Key: "created_at", Value: bson.D{{Key: "$gte", Value: *f.CreatedSince}}}})
	}
	switch len(conds) {
	case 0:
		return bson.D{}
	case 1:
		return conds[0].(bson.D)
	}
	return bson.D{{Key: "$and", Value: conds}}
}

func setDoc(f Fields) bson.M {
	set := bson.M{}
	if f.Name != nil {
		set["name"] = *f.Name
	}
	if f.Description != nil {
		set["description"] = *f.Description
	}
	if f.BeginningDate != nil {
		set["beginning_date"] = *f.BeginningDate
	}
	if f.ExpirationDate != nil {
		set["expiration_date"] = *f.ExpirationDate
	}
	if f.UpdatedAt != nil {
		set["updated_at"] = *f.UpdatedAt
	}
	return set
}
