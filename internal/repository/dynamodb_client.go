package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dinner-agent/internal/domain"
)

const skValue = "VALUE#"

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps settings in a single DynamoDB table keyed by PK/SK.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoStore creates a new DynamoDB-backed settings store.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

// settingPK returns the DynamoDB partition key for a setting.
func settingPK(key string) string {
	return "SETTING#" + key
}

func settingKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: settingPK(key)},
		"SK": &types.AttributeValueMemberS{Value: skValue},
	}
}

// Get returns the stored value for key and whether it exists.
func (s *DynamoStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            settingKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("repository: Get get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}
	setting, err := itemToSetting(out.Item)
	if err != nil {
		return "", false, fmt.Errorf("repository: Get decode: %w", err)
	}
	return setting.Value, true, nil
}

// Put writes or replaces the value for key.
func (s *DynamoStore) Put(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      settingItem(NewSetting(key, value)),
	})
	if err != nil {
		return fmt.Errorf("repository: Put: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *DynamoStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       settingKey(key),
	})
	if err != nil {
		return fmt.Errorf("repository: Delete: %w", err)
	}
	return nil
}

// NewSetting constructs a Setting with PK/SK set from key and the current time.
func NewSetting(key, value string) domain.Setting {
	return domain.Setting{
		PK:        settingPK(key),
		SK:        skValue,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func settingItem(setting domain.Setting) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: setting.PK},
		"SK":        &types.AttributeValueMemberS{Value: setting.SK},
		"key":       &types.AttributeValueMemberS{Value: setting.Key},
		"value":     &types.AttributeValueMemberS{Value: setting.Value},
		"updatedAt": &types.AttributeValueMemberS{Value: setting.UpdatedAt},
	}
}

// itemToSetting converts a DynamoDB attribute map to a Setting.
func itemToSetting(item map[string]types.AttributeValue) (domain.Setting, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Setting{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Setting{}, err
	}
	value, err := strAttr(item, "value")
	if err != nil {
		return domain.Setting{}, err
	}
	key, _ := strAttr(item, "key")             // allow empty
	updatedAt, _ := strAttr(item, "updatedAt") // allow empty

	return domain.Setting{
		PK:        pk,
		SK:        sk,
		Key:       key,
		Value:     value,
		UpdatedAt: updatedAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
