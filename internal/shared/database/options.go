package database

import "go.mongodb.org/mongo-driver/mongo/options"

func optionsUpsert() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}
