package internal

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"datatrans/config"
	"datatrans/entity"
	"datatrans/services"
)

const (
	collectionLog       = "payment_log"
	collectionPayments  = "payments"
	collectionCallbacks = "callbacks"
)

type MongoDB struct {
	clientOptions    *options.ClientOptions
	database         string
	logRecordsNumber int64
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		clientOptions:    clientOptions,
		database:         conf.Mongo.Database,
		logRecordsNumber: conf.LogRecords,
	}
	return client, nil
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	err := connection.Disconnect(ctx)
	if err != nil {
		log.Println("mongodb disconnect error", err)
	}
}

// GetPayment loads a payment record by its reference number. A missing record
// is not an error; it returns (nil, nil).
func (m *MongoDB) GetPayment(ctx context.Context, refno string) (*entity.Payment, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "refno", Value: refno}}
	collection := connection.Database(m.database).Collection(collectionPayments)
	var payment entity.Payment
	err = collection.FindOne(ctx, filter).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (m *MongoDB) CreatePayment(ctx context.Context, payment *entity.Payment) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionPayments)
	_, err = collection.InsertOne(ctx, payment)
	return err
}

// SavePayment writes the whole record in one upsert keyed by the reference
// number, so a commit is visible atomically to the next load.
func (m *MongoDB) SavePayment(ctx context.Context, payment *entity.Payment) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	filter := bson.D{{Key: "refno", Value: payment.RefNo}}
	set := bson.M{"$set": payment}
	collection := connection.Database(m.database).Collection(collectionPayments)
	_, err = collection.UpdateOne(ctx, filter, set, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) SaveNotification(ctx context.Context, notification *entity.Notification) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionCallbacks)
	_, err = collection.InsertOne(ctx, notification)
	return err
}

func (m *MongoDB) WriteLogMessage(data services.Data) error {
	ctx := context.Background()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)
	collection := connection.Database(m.database).Collection(collectionLog)
	_, err = collection.InsertOne(ctx, data)
	return err
}
