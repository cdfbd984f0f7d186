package catalog

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrescris/shopfront/pkg/logger"
	"github.com/andrescris/shopfront/pkg/models"
)

type FirestoreStore struct {
	client     *firestore.Client
	collection string
	log        *zap.Logger
}

func NewFirestoreStore(client *firestore.Client, collection string, log *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection, log: logger.OrNop(log)}
}

func (s *FirestoreStore) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (models.Product, error) {
	doc, err := s.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, errors.Wrapf(err, "get product %s", id)
	}
	return decode(doc)
}

func (s *FirestoreStore) Create(ctx context.Context, w Write) (string, error) {
	data := documentData(w.Product)
	data["createdAt"] = firestore.ServerTimestamp
	data["updatedAt"] = firestore.ServerTimestamp
	data["createdBy"] = w.Actor
	data["updatedBy"] = w.Actor

	ref, _, err := s.col().Add(ctx, data)
	if err != nil {
		return "", &PersistenceError{Op: "create", Err: err}
	}
	s.log.Info("product created", zap.String("id", ref.ID), zap.String("actor", w.Actor))
	return ref.ID, nil
}

// Update merges the payload into an existing document. Firestore rejects an
// update of a missing document, which is reported as ErrNotFound.
func (s *FirestoreStore) Update(ctx context.Context, id string, w Write) error {
	data := documentData(w.Product)
	updates := make([]firestore.Update, 0, len(data)+2)
	for path, value := range data {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	updates = append(updates,
		firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp},
		firestore.Update{Path: "updatedBy", Value: w.Actor},
	)

	if _, err := s.col().Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			err = ErrNotFound
		}
		return &PersistenceError{Op: "update", ID: id, Err: err}
	}
	s.log.Info("product updated", zap.String("id", id), zap.String("actor", w.Actor))
	return nil
}

// Watch opens a snapshot listener. The listener lives until Stop is called or
// ctx is cancelled; the ctx given to Next only guards the call itself.
func (s *FirestoreStore) Watch(ctx context.Context, q Query) (Stream, error) {
	query := s.col().Query
	if q.PublishedOnly {
		query = query.Where("status", "==", string(models.StatusPublished))
	}
	query = query.OrderBy("updatedAt", firestore.Desc)
	return &firestoreStream{it: query.Snapshots(ctx), log: s.log}, nil
}

type firestoreStream struct {
	it  *firestore.QuerySnapshotIterator
	log *zap.Logger
}

func (s *firestoreStream) Next(ctx context.Context) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.it.Next()
	if err == iterator.Done || status.Code(err) == codes.Canceled {
		return nil, ErrStreamStopped
	}
	if err != nil {
		return nil, errors.Wrap(err, "catalog snapshot")
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, errors.Wrap(err, "catalog snapshot documents")
	}
	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := decode(doc)
		if err != nil {
			// Other clients write this collection too; one bad document
			// must not blank the whole listing.
			s.log.Warn("skipping undecodable product", zap.String("id", doc.Ref.ID), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *firestoreStream) Stop() {
	s.it.Stop()
}

func decode(doc *firestore.DocumentSnapshot) (models.Product, error) {
	var p models.Product
	if err := doc.DataTo(&p); err != nil {
		return models.Product{}, errors.Wrapf(err, "decode product %s", doc.Ref.ID)
	}
	p.ID = doc.Ref.ID
	if v, err := doc.DataAt("stock"); err == nil {
		p.Stock = models.StockFromValue(v)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Labels == nil {
		p.Labels = []string{}
	}
	return p, nil
}

// documentData is the written field set, without timestamps or actors.
func documentData(p models.Product) map[string]interface{} {
	images := make([]map[string]interface{}, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, map[string]interface{}{
			"url":         img.URL,
			"storagePath": img.StoragePath,
			"alt":         img.Alt,
		})
	}
	return map[string]interface{}{
		"title":             p.Title,
		"subtitle":          p.Subtitle,
		"description":       p.Description,
		"category":          p.Category,
		"tags":              nonNil(p.Tags),
		"labels":            nonNil(p.Labels),
		"priceZAR":          nullable(p.PriceZAR),
		"priceEUR":          nullable(p.PriceEUR),
		"compareAtPriceZAR": nullable(p.CompareAtPriceZAR),
		"compareAtPriceEUR": nullable(p.CompareAtPriceEUR),
		"sku":               p.SKU,
		"barcode":           p.Barcode,
		"stock":             p.Stock,
		"weight":            nullable(p.Weight),
		"dimensions": map[string]interface{}{
			"length": nullable(p.Dimensions.Length),
			"width":  nullable(p.Dimensions.Width),
			"height": nullable(p.Dimensions.Height),
		},
		"materials":        p.Materials,
		"careInstructions": p.CareInstructions,
		"fitNotes":         p.FitNotes,
		"sizeGuideUrl":     p.SizeGuideURL,
		"webUrl":           p.WebURL,
		"status":           string(p.Status),
		"images":           images,
	}
}

func nullable(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
