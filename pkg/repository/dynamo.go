package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/bistro/pkg/config"
	"go.uber.org/zap"
)

// DynamoAPI is the subset of the DynamoDB client the remote store uses.
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Dynamo keeps each collection in its own table keyed by "id".
type Dynamo struct {
	client DynamoAPI
	config *config.RemoteConfig
	logger *zap.Logger
}

// LoadAWSConfig resolves credentials the same way for every AWS client:
// static keys when configured, the default chain otherwise.
func LoadAWSConfig(ctx context.Context, region, accessKeyID, secretAccessKey string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

func NewDynamoClient(ctx context.Context, cfg *config.RemoteConfig) (*dynamodb.Client, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func NewDynamo(client DynamoAPI, cfg *config.RemoteConfig, logger *zap.Logger) *Dynamo {
	return &Dynamo{
		client: client,
		config: cfg,
		logger: logger.Named("dynamodb"),
	}
}

func (d *Dynamo) Name() string {
	return "dynamodb"
}

func (d *Dynamo) table(c Collection) *string {
	return aws.String(d.config.Table(c.Name))
}

func (d *Dynamo) Probe(ctx context.Context) error {
	_, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.config.Table(CollectionMenuItems)),
		Limit:     aws.Int32(1),
	})
	return err
}

func (d *Dynamo) List(ctx context.Context, c Collection, dest interface{}) (bool, error) {
	var items []map[string]types.AttributeValue

	p := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{TableName: d.table(c)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to scan %s: %w", c.Name, err)
		}
		items = append(items, page.Items...)
	}

	if err := attributevalue.UnmarshalListOfMaps(items, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", c.Name, err)
	}
	return true, nil
}

func (d *Dynamo) Put(ctx context.Context, c Collection, id string, record interface{}) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c.Name, id, err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: d.table(c),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", c.Name, id, err)
	}
	return nil
}

func (d *Dynamo) Update(ctx context.Context, c Collection, id string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	var update expression.UpdateBuilder
	for i, k := range names {
		if i == 0 {
			update = expression.Set(expression.Name(k), expression.Value(fields[k]))
			continue
		}
		update = update.Set(expression.Name(k), expression.Value(fields[k]))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build update for %s/%s: %w", c.Name, id, err)
	}

	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 d.table(c),
		Key:                       keyOf(id),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", c.Name, id, err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, c Collection, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: d.table(c),
		Key:       keyOf(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c.Name, id, err)
	}
	return nil
}

func keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}
