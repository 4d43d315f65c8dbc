package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"pdf-form-filler/internal/domain"
)

const (
	pkPrefixOwner   = "OWNER#"
	skPrefixSession = "SESSION#"
	ttlDuration     = 7 * 24 * time.Hour // sessions are not expected to outlive a week on the service
	defaultListSize = 20
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client wraps a DynamoDB table of session bookmarks.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func ownerPK(owner string) string {
	return pkPrefixOwner + owner
}

func sessionSK(sessionID string) string {
	return skPrefixSession + sessionID
}

func (c *Client) key(owner, sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: ownerPK(owner)},
		"SK": &types.AttributeValueMemberS{Value: sessionSK(sessionID)},
	}
}

// SaveBookmark writes or replaces the bookmark for b.SessionID. UpdatedAt and
// TTL are filled in when empty.
func (c *Client) SaveBookmark(ctx context.Context, b domain.Bookmark) error {
	if strings.TrimSpace(b.Owner) == "" || strings.TrimSpace(b.SessionID) == "" {
		return errors.New("repository: SaveBookmark: owner and session id are required")
	}
	now := c.now().UTC()
	if b.UpdatedAt == "" {
		b.UpdatedAt = now.Format(time.RFC3339)
	}
	if b.TTL == 0 {
		b.TTL = now.Add(ttlDuration).Unix()
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      bookmarkItem(b),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveBookmark: %w", err)
	}
	return nil
}

// GetBookmark returns the bookmark for one session and whether it exists.
func (c *Client) GetBookmark(ctx context.Context, owner, sessionID string) (domain.Bookmark, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.key(owner, sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("repository: GetBookmark get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Bookmark{}, false, nil
	}
	b, err := itemToBookmark(out.Item)
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("repository: GetBookmark unmarshal: %w", err)
	}
	return b, true, nil
}

// ListBookmarks returns up to limit bookmarks for owner, most recently
// updated first. Session ids carry no ordering, so every bookmark of the
// owner is read and sorted by UpdatedAt.
func (c *Client) ListBookmarks(ctx context.Context, owner string, limit int) ([]domain.Bookmark, error) {
	if limit <= 0 {
		limit = defaultListSize
	}

	var bookmarks []domain.Bookmark
	var startKey map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: ownerPK(owner)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixSession},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListBookmarks query: %w", err)
		}
		if out == nil {
			break
		}
		for _, item := range out.Items {
			b, err := itemToBookmark(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListBookmarks unmarshal: %w", err)
			}
			bookmarks = append(bookmarks, b)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	slices.SortStableFunc(bookmarks, func(a, b domain.Bookmark) int {
		return updatedAt(b).Compare(updatedAt(a))
	})
	if len(bookmarks) > limit {
		bookmarks = bookmarks[:limit]
	}
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}
	return bookmarks, nil
}

// updatedAt parses b.UpdatedAt; an unparseable value sorts last.
func updatedAt(b domain.Bookmark) time.Time {
	t, err := time.Parse(time.RFC3339, b.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DeleteBookmark removes a bookmark. Deleting a missing bookmark is not an
// error.
func (c *Client) DeleteBookmark(ctx context.Context, owner, sessionID string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       c.key(owner, sessionID),
	})
	if err != nil {
		return fmt.Errorf("repository: DeleteBookmark: %w", err)
	}
	return nil
}

func bookmarkItem(b domain.Bookmark) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: ownerPK(b.Owner)},
		"SK":           &types.AttributeValueMemberS{Value: sessionSK(b.SessionID)},
		"owner":        &types.AttributeValueMemberS{Value: b.Owner},
		"sessionId":    &types.AttributeValueMemberS{Value: b.SessionID},
		"filename":     &types.AttributeValueMemberS{Value: b.Filename},
		"phase":        &types.AttributeValueMemberS{Value: b.Phase},
		"filledFields": &types.AttributeValueMemberN{Value: strconv.Itoa(b.FilledFields)},
		"totalFields":  &types.AttributeValueMemberN{Value: strconv.Itoa(b.TotalFields)},
		"updatedAt":    &types.AttributeValueMemberS{Value: b.UpdatedAt},
		"ttl":          &types.AttributeValueMemberN{Value: strconv.FormatInt(b.TTL, 10)},
	}
}

// itemToBookmark converts a DynamoDB attribute map to a Bookmark.
func itemToBookmark(item map[string]types.AttributeValue) (domain.Bookmark, error) {
	owner, err := strAttr(item, "owner")
	if err != nil {
		return domain.Bookmark{}, err
	}
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return domain.Bookmark{}, err
	}
	filled, err := intAttr(item, "filledFields")
	if err != nil {
		return domain.Bookmark{}, err
	}
	total, err := intAttr(item, "totalFields")
	if err != nil {
		return domain.Bookmark{}, err
	}
	filename, _ := strAttr(item, "filename")   // allow empty
	phase, _ := strAttr(item, "phase")         // allow empty
	updatedAt, _ := strAttr(item, "updatedAt") // allow empty
	ttl, _ := intAttr(item, "ttl")

	return domain.Bookmark{
		Owner:        owner,
		SessionID:    sessionID,
		Filename:     filename,
		Phase:        phase,
		FilledFields: filled,
		TotalFields:  total,
		UpdatedAt:    updatedAt,
		TTL:          int64(ttl),
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

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
