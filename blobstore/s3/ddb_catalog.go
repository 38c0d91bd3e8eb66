package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/tensorarena/blobstore"
)

// DDBClient is the subset of the DynamoDB API the catalog uses.
// *dynamodb.Client satisfies it.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

const (
	attrKey     = "key"
	attrVersion = "version"
	attrBlob    = "blob"
)

// DDBCatalog keeps snapshot pointers in a DynamoDB table so that several
// writers can publish versions of the same arena without losing updates.
// Snapshot blobs themselves live in S3; the table only holds the pointers.
//
// Table schema: partition key "key" (S), sort key "version" (N).
//
//	aws dynamodb create-table \
//	  --table-name tensorarena-snapshots \
//	  --attribute-definitions AttributeName=key,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=key,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCatalog struct {
	client DDBClient
	table  string
}

var _ blobstore.Catalog = (*DDBCatalog)(nil)

// NewDDBCatalog returns a catalog backed by table.
func NewDDBCatalog(client DDBClient, table string) *DDBCatalog {
	return &DDBCatalog{client: client, table: table}
}

// Latest reads the highest version for key.
func (c *DDBCatalog) Latest(ctx context.Context, key string) (blobstore.Pointer, error) {
	out, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("#k = :k"),
		ExpressionAttributeNames: map[string]string{
			"#k": attrKey,
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":k": &ddbtypes.AttributeValueMemberS{Value: key},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return blobstore.Pointer{}, fmt.Errorf("ddb catalog: query %q: %w", key, err)
	}
	if len(out.Items) == 0 {
		return blobstore.Pointer{}, blobstore.ErrNotFound
	}
	return decodePointer(out.Items[0])
}

// Commit writes p only if no item with the same version exists.
func (c *DDBCatalog) Commit(ctx context.Context, key string, p blobstore.Pointer) error {
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item: map[string]ddbtypes.AttributeValue{
			attrKey:     &ddbtypes.AttributeValueMemberS{Value: key},
			attrVersion: &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(p.Version, 10)},
			attrBlob:    &ddbtypes.AttributeValueMemberS{Value: p.Blob},
		},
		ConditionExpression: aws.String("attribute_not_exists(#v)"),
		ExpressionAttributeNames: map[string]string{
			"#v": attrVersion,
		},
	})
	if err != nil {
		var cond *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return fmt.Errorf("%w: %s version %d", blobstore.ErrConflict, key, p.Version)
		}
		return fmt.Errorf("ddb catalog: commit %q: %w", key, err)
	}
	return nil
}

func decodePointer(item map[string]ddbtypes.AttributeValue) (blobstore.Pointer, error) {
	v, ok := item[attrVersion].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return blobstore.Pointer{}, errors.New("ddb catalog: item has no numeric version")
	}
	b, ok := item[attrBlob].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return blobstore.Pointer{}, errors.New("ddb catalog: item has no blob name")
	}
	version, err := strconv.ParseUint(v.Value, 10, 64)
	if err != nil {
		return blobstore.Pointer{}, fmt.Errorf("ddb catalog: version %q: %w", v.Value, err)
	}
	return blobstore.Pointer{Version: version, Blob: b.Value}, nil
}
