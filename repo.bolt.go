package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var sessionKey = []byte("current")

type boltTokenStore struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltTokenStore provides a session store backed by a local bolt file.
func NewBoltTokenStore(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) TokenStore {
	return &boltTokenStore{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based store.
func (bs *boltTokenStore) Close() error {
	return bs.client.Close()
}

// Save replaces the stored session.
func (bs *boltTokenStore) Save(_ context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Put(sessionKey, data)
	})
}

// Load returns the stored session or ErrNoSession.
func (bs *boltTokenStore) Load(_ context.Context) (Session, error) {
	var s Session
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return s, err
	}
	defer tx.Rollback() //nolint:errcheck

	result := tx.Bucket([]byte(bs.config.BucketName)).Get(sessionKey)
	if result == nil {
		return s, ErrNoSession
	}
	err = json.Unmarshal(result, &s)
	return s, err
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (bs *boltTokenStore) Clear(_ context.Context) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Delete(sessionKey)
	})
}
