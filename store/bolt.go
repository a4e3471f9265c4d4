package store

import (
	"context"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/flowcard/flowcard/util"
)

var stateBucket = []byte("cardstate")

// Bolt is a Store backed by a bbolt file.  All state documents live
// in one bucket, keyed by the Key scheme.
type Bolt struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewBolt(filename string) *Bolt {
	return &Bolt{filename: filename}
}

func (s *Bolt) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
}

func (s *Bolt) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Bolt) logf(format string, args ...interface{}) {
	if s.Debug {
		util.Logf("BoltStore "+format, args...)
	}
}

func (s *Bolt) Load(key string) (map[string]interface{}, error) {
	var state map[string]interface{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		bs := b.Get([]byte(key))
		if bs == nil {
			return nil
		}
		return json.Unmarshal(bs, &state)
	})
	if err != nil {
		return nil, err
	}
	s.logf("Load %s found=%v", key, state != nil)
	return state, nil
}

func (s *Bolt) Save(key string, state map[string]interface{}) error {
	js, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.logf("Save %s (%d bytes)", key, len(js))
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(stateBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), js)
	})
}

func (s *Bolt) Delete(key string) error {
	s.logf("Delete %s", key)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}
