package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgallion1/docsplit/internal/document"
	"go.etcd.io/bbolt"
)

var (
	bucketDocs  = []byte("docs")
	bucketNodes = []byte("nodes")
)

// ErrNotFound is returned when a document or node does not exist.
var ErrNotFound = errors.New("not found")

// Document describes one split run persisted alongside its nodes.
type Document struct {
	ID          string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	Mode        string    `json:"mode"`
	ContentHash string    `json:"content_hash,omitempty"`
	NodeCount   int       `json:"node_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredNode is a node with its position in the document's node list.
// Node IDs may collide, so Seq is the stable key.
type StoredNode struct {
	Seq int `json:"seq"`
	document.Node
}

// BoltStore persists split results in a single bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketNodes} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func nodePrefix(docID string) []byte {
	return []byte(docID + "/")
}

func nodeKey(docID string, seq int) []byte {
	return []byte(fmt.Sprintf("%s/%08d", docID, seq))
}

// SaveDocument writes doc and replaces any nodes previously stored for it.
func (s *BoltStore) SaveDocument(doc Document, nodes []document.Node) error {
	doc.NodeCount = len(nodes)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := deletePrefix(tx.Bucket(bucketNodes), nodePrefix(doc.ID)); err != nil {
			return err
		}
		b := tx.Bucket(bucketNodes)
		for i, n := range nodes {
			data, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("marshal node %d: %w", i, err)
			}
			if err := b.Put(nodeKey(doc.ID, i), data); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), meta)
	})
}

func (s *BoltStore) GetDocument(id string) (Document, error) {
	var doc Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &doc)
	})
	return doc, err
}

// ListDocuments returns all documents, newest first.
func (s *BoltStore) ListDocuments() ([]Document, error) {
	docs := []Document{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode document %s: %w", k, err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, err
}

// GetNodes returns a document's nodes in split order.
func (s *BoltStore) GetNodes(docID string) ([]StoredNode, error) {
	nodes := []StoredNode{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketDocs).Get([]byte(docID)) == nil {
			return fmt.Errorf("document %s: %w", docID, ErrNotFound)
		}
		prefix := nodePrefix(docID)
		c := tx.Bucket(bucketNodes).Cursor()
		seq := 0
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var n document.Node
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("decode node %s: %w", k, err)
			}
			nodes = append(nodes, StoredNode{Seq: seq, Node: n})
			seq++
		}
		return nil
	})
	return nodes, err
}

// GetNode returns the node stored at position seq of docID. Node IDs may
// repeat within a document, so seq is the only addressable key.
func (s *BoltStore) GetNode(docID string, seq int) (StoredNode, error) {
	var n StoredNode
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketDocs).Get([]byte(docID)) == nil {
			return fmt.Errorf("document %s: %w", docID, ErrNotFound)
		}
		data := tx.Bucket(bucketNodes).Get(nodeKey(docID, seq))
		if data == nil {
			return fmt.Errorf("node %d in %s: %w", seq, docID, ErrNotFound)
		}
		n.Seq = seq
		return json.Unmarshal(data, &n.Node)
	})
	return n, err
}

// DeleteDocument removes a document and its nodes. It reports how many nodes
// were removed.
func (s *BoltStore) DeleteDocument(id string) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		if docs.Get([]byte(id)) == nil {
			return fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		n, err := countPrefix(tx.Bucket(bucketNodes), nodePrefix(id))
		if err != nil {
			return err
		}
		removed = n
		if err := deletePrefix(tx.Bucket(bucketNodes), nodePrefix(id)); err != nil {
			return err
		}
		return docs.Delete([]byte(id))
	})
	return removed, err
}

func countPrefix(b *bbolt.Bucket, prefix []byte) (int, error) {
	n := 0
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		n++
	}
	return n, nil
}

func deletePrefix(b *bbolt.Bucket, prefix []byte) error {
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
