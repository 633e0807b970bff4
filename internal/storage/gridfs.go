package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Store = (*GridFSStore)(nil)

const gridFSBucketName = "message_attachments"

type gridFSMetadata struct {
	ContentType string `bson:"content_type"`
}

// GridFSStore keeps blobs in a MongoDB GridFS bucket with the object key as
// filename. Signed URLs are server-issued tokens.
type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
	files  *mongo.Collection
	signer *URLSigner
}

func NewGridFSStore(ctx context.Context, uri, database string, signer *URLSigner) (*GridFSStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(gridFSBucketName))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create gridfs bucket: %w", err)
	}

	return &GridFSStore{
		client: client,
		bucket: bucket,
		files:  db.Collection(gridFSBucketName + ".files"),
		signer: signer,
	}, nil
}

func (g *GridFSStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	opts := options.GridFSUpload().SetMetadata(gridFSMetadata{ContentType: contentType})
	if _, err := g.bucket.UploadFromStream(key, r, opts); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (g *GridFSStore) Open(_ context.Context, key string) (io.ReadCloser, *Object, error) {
	stream, err := g.bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	file := stream.GetFile()
	var meta gridFSMetadata
	if file.Metadata != nil {
		_ = bson.Unmarshal(file.Metadata, &meta)
	}

	return stream, &Object{
		Key:         key,
		Size:        file.Length,
		ContentType: meta.ContentType,
		ModTime:     file.UploadDate,
	}, nil
}

func (g *GridFSStore) Delete(ctx context.Context, key string) error {
	cursor, err := g.bucket.FindContext(ctx, bson.M{"filename": key})
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", key, err)
	}

	var found []struct {
		ID any `bson:"_id"`
	}
	if err := cursor.All(ctx, &found); err != nil {
		return fmt.Errorf("failed to look up %s: %w", key, err)
	}

	for _, f := range found {
		if err := g.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

func (g *GridFSStore) SignedURL(ctx context.Context, key string, opts URLOptions) (string, error) {
	n, err := g.files.CountDocuments(ctx, bson.M{"filename": key}, options.Count().SetLimit(1))
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", key, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return g.signer.URL(key, opts)
}

func (g *GridFSStore) Close(ctx context.Context) error {
	return g.client.Disconnect(ctx)
}
