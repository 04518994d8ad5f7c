package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBeatsTable        = "go-groove-beats"
	DefaultPerformancesTable = "go-groove-performances"

	keyAttr = "PK"
)

// DynamoConfig locates the tables
type DynamoConfig struct {
	Region            string
	Endpoint          string
	BeatsTable        string
	PerformancesTable string
}

// DynamoStore keeps beats and performances in DynamoDB, keyed by PK
type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	beats  string
	perfs  string
	log    *zap.Logger
}

// NewDynamoStore opens a session. Requests are retried once.
func NewDynamoStore(cfg DynamoConfig, log *zap.Logger) (*DynamoStore, error) {
	awsCfg := &aws.Config{
		Region:     aws.String(cfg.Region),
		MaxRetries: aws.Int(1),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("store: dynamodb session: %w", err)
	}
	return NewDynamoStoreWithClient(dynamodb.New(sess), cfg.BeatsTable, cfg.PerformancesTable, log), nil
}

// NewDynamoStoreWithClient uses an existing client. Empty table names get the defaults.
func NewDynamoStoreWithClient(client dynamodbiface.DynamoDBAPI, beatsTable, perfsTable string, log *zap.Logger) *DynamoStore {
	if beatsTable == "" {
		beatsTable = DefaultBeatsTable
	}
	if perfsTable == "" {
		perfsTable = DefaultPerformancesTable
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DynamoStore{client: client, beats: beatsTable, perfs: perfsTable, log: log.Named("dynamo")}
}

func key(id string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{keyAttr: {S: aws.String(id)}}
}

func (s *DynamoStore) LoadBeatByID(ctx context.Context, id string) (*Beat, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.beats),
		Key:       key(id),
	})
	if err != nil {
		return nil, fmt.Errorf("store: get beat %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: beat %s", ErrNotFound, id)
	}
	var b Beat
	if err := dynamodbattribute.UnmarshalMap(out.Item, &b); err != nil {
		return nil, fmt.Errorf("store: decode beat %s: %w", id, err)
	}
	return &b, nil
}

// scan reads every page of a table matching the equality filters
func (s *DynamoStore) scan(ctx context.Context, table string, equals map[string]string) ([]map[string]*dynamodb.AttributeValue, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(table)}
	if len(equals) > 0 {
		input.ExpressionAttributeNames = map[string]*string{}
		input.ExpressionAttributeValues = map[string]*dynamodb.AttributeValue{}

		attrs := make([]string, 0, len(equals))
		for attr := range equals {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)

		expr := ""
		for i, attr := range attrs {
			name, value := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
			input.ExpressionAttributeNames[name] = aws.String(attr)
			input.ExpressionAttributeValues[value] = &dynamodb.AttributeValue{S: aws.String(equals[attr])}
			if i > 0 {
				expr += " AND "
			}
			expr += name + " = " + value
		}
		input.FilterExpression = aws.String(expr)
	}

	var items []map[string]*dynamodb.AttributeValue
	for {
		out, err := s.client.ScanWithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", table, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) LoadBeatByName(ctx context.Context, name string) (*Beat, error) {
	items, err := s.scan(ctx, s.beats, map[string]string{"Name": name})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: beat %q", ErrNotFound, name)
	}
	if len(items) > 1 {
		s.log.Warn("several beats share a name", zap.String("name", name), zap.Int("count", len(items)))
	}
	var b Beat
	if err := dynamodbattribute.UnmarshalMap(items[0], &b); err != nil {
		return nil, fmt.Errorf("store: decode beat %q: %w", name, err)
	}
	return &b, nil
}

func (s *DynamoStore) ListBeats(ctx context.Context) ([]Beat, error) {
	items, err := s.scan(ctx, s.beats, nil)
	if err != nil {
		return nil, err
	}
	var beats []Beat
	if err := dynamodbattribute.UnmarshalListOfMaps(items, &beats); err != nil {
		return nil, fmt.Errorf("store: decode beats: %w", err)
	}
	sort.SliceStable(beats, func(i, j int) bool {
		if beats[i].Index != beats[j].Index {
			return beats[i].Index < beats[j].Index
		}
		return beats[i].Name < beats[j].Name
	})
	return beats, nil
}

func (s *DynamoStore) put(ctx context.Context, table string, v any) error {
	item, err := dynamodbattribute.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	_, err = s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store: put %s: %w", table, err)
	}
	return nil
}

func (s *DynamoStore) SaveBeat(ctx context.Context, b *Beat) error {
	if b.Name == "" {
		return ErrNoName
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return s.put(ctx, s.beats, b)
}

func (s *DynamoStore) DeleteBeat(ctx context.Context, id string) error {
	out, err := s.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.beats),
		Key:          key(id),
		ReturnValues: aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		return fmt.Errorf("store: delete beat %s: %w", id, err)
	}
	if len(out.Attributes) == 0 {
		return fmt.Errorf("%w: beat %s", ErrNotFound, id)
	}
	return nil
}

func (s *DynamoStore) SavePerformance(ctx context.Context, p *Performance) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return s.put(ctx, s.perfs, p)
}

func (s *DynamoStore) DeletePerformances(ctx context.Context, beatID, userID string) (int, error) {
	items, err := s.scan(ctx, s.perfs, map[string]string{"BeatID": beatID, "UserID": userID})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range items {
		pk := item[keyAttr]
		if pk == nil || pk.S == nil {
			continue
		}
		_, err := s.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.perfs),
			Key:       key(*pk.S),
		})
		if err != nil {
			return n, fmt.Errorf("store: delete performance %s: %w", *pk.S, err)
		}
		n++
	}
	s.log.Debug("deleted performances", zap.String("beat", beatID), zap.String("user", userID), zap.Int("count", n))
	return n, nil
}

func (s *DynamoStore) ListPerformances(ctx context.Context, beatID string) ([]Performance, error) {
	var equals map[string]string
	if beatID != "" {
		equals = map[string]string{"BeatID": beatID}
	}
	items, err := s.scan(ctx, s.perfs, equals)
	if err != nil {
		return nil, err
	}
	var perfs []Performance
	if err := dynamodbattribute.UnmarshalListOfMaps(items, &perfs); err != nil {
		return nil, fmt.Errorf("store: decode performances: %w", err)
	}
	sort.SliceStable(perfs, func(i, j int) bool { return perfs[i].CreatedAt.Before(perfs[j].CreatedAt) })
	return perfs, nil
}
