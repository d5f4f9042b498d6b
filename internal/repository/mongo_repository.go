package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection name constants.
const (
	colOwners   = "owners"
	colCounters = "counters"
	colInvoices = "invoices"

	// ownerDocID is the fixed _id of the singleton owner document
	ownerDocID = "owner"
)

type ownerDoc struct {
	ID             string    `bson:"_id"`
	OwnerID        string    `bson:"ownerId"`
	AccessCodeHash string    `bson:"accessCodeHash"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type counterDoc struct {
	Key   string `bson:"key"`
	Value int64  `bson:"value"`
}

type invoiceDoc struct {
	ID             string    `bson:"_id"`
	InvoiceNumber  int64     `bson:"invoiceNumber"`
	CompanyName    string    `bson:"companyName"`
	CompanyPhone   string    `bson:"companyPhone,omitempty"`
	CompanyAddress string    `bson:"companyAddress"`
	CompanyGst     string    `bson:"companyGst"`
	RatePerTon     float64   `bson:"ratePerTon"`
	Trucks         int64     `bson:"trucks"`
	Total          float64   `bson:"total"`
	Notes          string    `bson:"notes,omitempty"`
	OwnerID        string    `bson:"ownerId"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type aggregateDoc struct {
	Invoices      int64   `bson:"invoices"`
	TotalRevenue  float64 `bson:"totalRevenue"`
	TotalTrucks   int64   `bson:"totalTrucks"`
	AvgRatePerTon float64 `bson:"avgRatePerTon"`
}

// MongoRepository implements the Repository interface using MongoDB
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoRepository creates a new MongoDB repository
func NewMongoRepository(client *mongo.Client, db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		client: client,
		db:     db,
	}
}

// Migrate creates the indexes the queries rely on
func (r *MongoRepository) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colCounters: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "invoiceNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for col, idx := range indexes {
		if _, err := r.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// ==================== Owner ====================

func (r *MongoRepository) GetOwner(ctx context.Context) (*models.Owner, error) {
	var doc ownerDoc
	err := r.db.Collection(colOwners).FindOne(ctx, bson.M{"_id": ownerDocID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: get owner: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) SaveOwner(ctx context.Context, accessCodeHash string) (*models.Owner, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{"accessCodeHash": accessCodeHash, "updatedAt": now},
		"$setOnInsert": bson.M{
			"ownerId":   uuid.New().String(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc ownerDoc
	err := r.db.Collection(colOwners).FindOneAndUpdate(ctx, bson.M{"_id": ownerDocID}, update, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("mongo: save owner: %w", err)
	}
	return doc.toModel(), nil
}

// ==================== Sequence ====================

func (r *MongoRepository) NextSequenceValue(ctx context.Context, key string) (int64, error) {
	// an update pipeline lets the upsert seed the base and increment in one atomic step
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "value", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$value", models.SequenceBase}}},
				1,
			}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDoc
	err := r.db.Collection(colCounters).FindOneAndUpdate(ctx, bson.M{"key": key}, update, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("mongo: next sequence value: %w", err)
	}
	return doc.Value, nil
}

func (r *MongoRepository) ResetSequence(ctx context.Context, key string) error {
	if _, err := r.db.Collection(colCounters).DeleteMany(ctx, bson.M{"key": key}); err != nil {
		return fmt.Errorf("mongo: reset sequence: %w", err)
	}
	return nil
}

// ==================== Invoices ====================

func (r *MongoRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.UpdatedAt = invoice.CreatedAt

	if _, err := r.db.Collection(colInvoices).InsertOne(ctx, toInvoiceDoc(invoice)); err != nil {
		return fmt.Errorf("mongo: create invoice: %w", err)
	}
	return nil
}

func (r *MongoRepository) InsertInvoices(ctx context.Context, invoices []models.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	docs := make([]any, 0, len(invoices))
	for i := range invoices {
		if invoices[i].ID == "" {
			invoices[i].ID = uuid.New().String()
		}
		if invoices[i].CreatedAt.IsZero() {
			invoices[i].CreatedAt = time.Now().UTC()
		}
		if invoices[i].UpdatedAt.IsZero() {
			invoices[i].UpdatedAt = invoices[i].CreatedAt
		}
		docs = append(docs, toInvoiceDoc(&invoices[i]))
	}

	if _, err := r.db.Collection(colInvoices).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongo: insert invoices: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetInvoice(ctx context.Context, id, ownerID string) (*models.Invoice, error) {
	var doc invoiceDoc
	err := r.db.Collection(colInvoices).FindOne(ctx, bson.M{"_id": id, "ownerId": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: get invoice: %w", err)
	}
	invoice := doc.toModel()
	return &invoice, nil
}

func (r *MongoRepository) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int64, error) {
	match := rangeFilter(filter.OwnerID, filter.Range)
	col := r.db.Collection(colInvoices)

	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: count invoices: %w", err)
	}

	opts := options.Find().
		SetSort(newestFirst()).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))

	invoices, err := r.find(ctx, match, opts)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *MongoRepository) FindInvoices(ctx context.Context, ownerID string, rng models.DateRange) ([]models.Invoice, error) {
	return r.find(ctx, rangeFilter(ownerID, rng), options.Find().SetSort(newestFirst()))
}

func (r *MongoRepository) AggregateInvoices(ctx context.Context, ownerID string, rng models.DateRange) (models.Aggregate, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: rangeFilter(ownerID, rng)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "invoices", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalRevenue", Value: bson.D{{Key: "$sum", Value: "$total"}}},
			{Key: "totalTrucks", Value: bson.D{{Key: "$sum", Value: "$trucks"}}},
			{Key: "avgRatePerTon", Value: bson.D{{Key: "$avg", Value: "$ratePerTon"}}},
		}}},
	}

	cur, err := r.db.Collection(colInvoices).Aggregate(ctx, pipeline)
	if err != nil {
		return models.Aggregate{}, fmt.Errorf("mongo: aggregate invoices: %w", err)
	}

	var docs []aggregateDoc
	if err := cur.All(ctx, &docs); err != nil {
		return models.Aggregate{}, fmt.Errorf("mongo: decode aggregate: %w", err)
	}
	if len(docs) == 0 {
		return models.Aggregate{}, nil
	}

	return models.Aggregate(docs[0]), nil
}

func (r *MongoRepository) DeleteInvoices(ctx context.Context, ownerID string) (int64, error) {
	filter := bson.M{}
	if ownerID != "" {
		filter["ownerId"] = ownerID
	}

	res, err := r.db.Collection(colInvoices).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongo: delete invoices: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]models.Invoice, error) {
	cur, err := r.db.Collection(colInvoices).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find invoices: %w", err)
	}

	var docs []invoiceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode invoices: %w", err)
	}

	return lo.Map(docs, func(d invoiceDoc, _ int) models.Invoice {
		return d.toModel()
	}), nil
}

// rangeFilter builds the owner and inclusive createdAt match shared by the invoice queries
func rangeFilter(ownerID string, rng models.DateRange) bson.M {
	filter := bson.M{"ownerId": ownerID}

	if rng.From != nil || rng.To != nil {
		createdAt := bson.M{}
		if rng.From != nil {
			createdAt["$gte"] = *rng.From
		}
		if rng.To != nil {
			createdAt["$lte"] = *rng.To
		}
		filter["createdAt"] = createdAt
	}

	return filter
}

func newestFirst() bson.D {
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "invoiceNumber", Value: -1}}
}

func toInvoiceDoc(inv *models.Invoice) invoiceDoc {
	return invoiceDoc{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		CompanyName:    inv.CompanyName,
		CompanyPhone:   inv.CompanyPhone,
		CompanyAddress: inv.CompanyAddress,
		CompanyGst:     inv.CompanyGst,
		RatePerTon:     inv.RatePerTon,
		Trucks:         inv.Trucks,
		Total:          inv.Total,
		Notes:          inv.Notes,
		OwnerID:        inv.OwnerID,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func (d invoiceDoc) toModel() models.Invoice {
	return models.Invoice{
		ID:             d.ID,
		InvoiceNumber:  d.InvoiceNumber,
		CompanyName:    d.CompanyName,
		CompanyPhone:   d.CompanyPhone,
		CompanyAddress: d.CompanyAddress,
		CompanyGst:     d.CompanyGst,
		RatePerTon:     d.RatePerTon,
		Trucks:         d.Trucks,
		Total:          d.Total,
		Notes:          d.Notes,
		OwnerID:        d.OwnerID,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

func (d ownerDoc) toModel() *models.Owner {
	return &models.Owner{
		ID:             d.OwnerID,
		AccessCodeHash: d.AccessCodeHash,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}
