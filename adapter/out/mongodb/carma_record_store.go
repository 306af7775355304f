package mongodb

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carma_server/core/port/out"
)

// =============================================================================
// MongoDB Record Store
// =============================================================================

const (
	collectionDocuments = "carma_documents"
	collectionLogs      = "carma_logs"

	compressionThreshold = 512
)

// RecordStore keeps each named JSON document as one MongoDB document. Content is the
// JSON encoding, gzip-compressed above a size threshold.
type RecordStore struct {
	documents *mongo.Collection
	logs      *mongo.Collection
}

var _ out.RecordStore = (*RecordStore)(nil)

func NewRecordStore(db *mongo.Database) *RecordStore {
	return &RecordStore{
		documents: db.Collection(collectionDocuments),
		logs:      db.Collection(collectionLogs),
	}
}

// EnsureIndexes creates the unique name index and the log lookup index.
func (s *RecordStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.documents.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.logs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

// =============================================================================
// Document Model
// =============================================================================

type recordDocument struct {
	Name         string    `bson:"name"`
	Content      []byte    `bson:"content"`
	IsCompressed bool      `bson:"is_compressed"`
	OriginalSize int64     `bson:"original_size"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type logDocument struct {
	Name      string    `bson:"name"`
	Entry     string    `bson:"entry"`
	CreatedAt time.Time `bson:"created_at"`
}

// =============================================================================
// Operations
// =============================================================================

func (s *RecordStore) Load(ctx context.Context, name string, dest any) (bool, error) {
	var doc recordDocument
	err := s.documents.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", name, err)
	}

	if err := decodeContent(doc, dest); err != nil {
		return true, fmt.Errorf("%w: %s: %v", out.ErrCorrupt, name, err)
	}
	return true, nil
}

func (s *RecordStore) Save(ctx context.Context, name string, v any) error {
	doc, err := encodeContent(name, v)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	if _, err := s.documents.ReplaceOne(ctx, bson.M{"name": name}, doc, opts); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func (s *RecordStore) Append(ctx context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.logs.InsertOne(ctx, logDocument{Name: name, Entry: string(b), CreatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to append %s: %w", name, err)
	}
	return nil
}

// =============================================================================
// Encoding
// =============================================================================

func encodeContent(name string, v any) (recordDocument, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return recordDocument{}, fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	doc := recordDocument{Name: name, Content: b, OriginalSize: int64(len(b))}
	if len(b) > compressionThreshold {
		compressed, err := compress(b)
		if err != nil {
			return recordDocument{}, fmt.Errorf("failed to compress %s: %w", name, err)
		}
		doc.Content = compressed
		doc.IsCompressed = true
	}
	return doc, nil
}

func decodeContent(doc recordDocument, dest any) error {
	b := doc.Content
	if doc.IsCompressed {
		var err error
		if b, err = decompress(b); err != nil {
			return err
		}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return errors.New("empty content")
	}
	return json.Unmarshal(b, dest)
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
