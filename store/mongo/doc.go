// Package mongo implements the store using the official MongoDB driver.
// The due queue is claimed with FindOneAndUpdate for atomic dequeue, and
// Migrate creates the supporting indexes.
//
// The caller owns the *mongo.Client lifecycle -- the store never closes
// it. Pass a database handle through the constructor:
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	s := mongostore.New(client.Database("relay"))
//	if err := s.Migrate(ctx); err != nil { ... }
package mongo
