package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rotisserie/eris"

	"followup-agent/internal/domain"
)

const (
	skPrefixMsg    = "MSG#"
	skMeta         = "META#"
	statusComplete = "complete"
	ttlDuration    = 30 * 24 * time.Hour
)

// dynamodbAPI is the slice of *dynamodb.Client used here.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores conversation turns and their follow-up questions in a single
// DynamoDB table keyed by CONV#<id>.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, eris.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, eris.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func convPK(conversationID string) string {
	return "CONV#" + conversationID
}

func msgSK(ts time.Time) string {
	return skPrefixMsg + ts.UTC().Format(time.RFC3339Nano)
}

func (c *Client) ttlValue() int64 {
	return c.now().Add(ttlDuration).Unix()
}

// GetHistory returns up to limit of the most recent turns, oldest first.
func (c *Client) GetHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: convPK(conversationID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		// Newest first so the limit keeps the most recent turns.
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, eris.Wrap(err, "repository: GetHistory query")
	}

	msgs := make([]domain.Message, 0, len(out.Items))
	for _, item := range out.Items {
		msg, err := itemToMessage(item)
		if err != nil {
			return nil, eris.Wrap(err, "repository: GetHistory unmarshal")
		}
		msgs = append(msgs, msg)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetConversationTurnCount returns the persisted turn count, zero for a new
// conversation.
func (c *Client) GetConversationTurnCount(ctx context.Context, conversationID string) (int, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(conversationID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, eris.Wrap(err, "repository: GetConversationTurnCount get item")
	}
	if out == nil || len(out.Item) == 0 {
		return 0, nil
	}

	turns, err := intAttr(out.Item, "turns")
	if err != nil {
		return 0, eris.Wrap(err, "repository: GetConversationTurnCount decode turns")
	}
	return turns, nil
}

// SaveTurn writes the message and the updated metadata in one transaction.
func (c *Client) SaveTurn(ctx context.Context, msg domain.Message, meta domain.ConversationMeta) error {
	if msg.PK == "" || msg.SK == "" {
		return eris.New("repository: SaveTurn: message PK and SK are required")
	}
	if meta.PK == "" || meta.SK == "" {
		return eris.New("repository: SaveTurn: meta PK and SK are required")
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                messageItem(msg),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item:      metaItem(meta),
				},
			},
		},
	})
	if err != nil {
		return eris.Wrap(err, "repository: SaveTurn")
	}
	return nil
}

// SaveCompletedTurn persists a finished turn together with the follow-ups it
// produced and bumps the conversation's turn counter to turns.
func (c *Client) SaveCompletedTurn(ctx context.Context, conversationID string, turn domain.CompletedTurn, turns int) error {
	msg := c.NewMessage(conversationID, turn)
	meta := c.NewConversationMeta(conversationID, turns)
	if err := c.SaveTurn(ctx, msg, meta); err != nil {
		return eris.Wrap(err, "repository: SaveCompletedTurn")
	}
	return nil
}

func (c *Client) NewMessage(conversationID string, turn domain.CompletedTurn) domain.Message {
	return domain.Message{
		PK:                convPK(conversationID),
		SK:                msgSK(c.now()),
		ConversationID:    conversationID,
		Text:              turn.Query,
		Answer:            turn.Answer,
		AgentType:         turn.AgentType,
		FollowUpQuestions: turn.FollowUpQuestions,
		Status:            statusComplete,
		TTL:               c.ttlValue(),
	}
}

func (c *Client) NewConversationMeta(conversationID string, turns int) domain.ConversationMeta {
	return domain.ConversationMeta{
		PK:             convPK(conversationID),
		SK:             skMeta,
		ConversationID: conversationID,
		LastActivity:   c.now().UTC().Format(time.RFC3339),
		Turns:          turns,
		TTL:            c.ttlValue(),
	}
}

func itemToMessage(item map[string]types.AttributeValue) (domain.Message, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Message{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Message{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.Message{}, err
	}
	// Optional attributes.
	convID, _ := strAttr(item, "conversationId")
	answer, _ := strAttr(item, "answer")
	agentType, _ := strAttr(item, "agentType")
	status, _ := strAttr(item, "status")
	followUps, err := strListAttr(item, "followUps")
	if err != nil {
		return domain.Message{}, err
	}

	return domain.Message{
		PK:                pk,
		SK:                sk,
		ConversationID:    convID,
		Text:              text,
		Answer:            answer,
		AgentType:         agentType,
		FollowUpQuestions: followUps,
		Status:            status,
	}, nil
}

func messageItem(msg domain.Message) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: msg.PK},
		"SK":             &types.AttributeValueMemberS{Value: msg.SK},
		"conversationId": &types.AttributeValueMemberS{Value: msg.ConversationID},
		"text":           &types.AttributeValueMemberS{Value: msg.Text},
		"answer":         &types.AttributeValueMemberS{Value: msg.Answer},
		"agentType":      &types.AttributeValueMemberS{Value: msg.AgentType},
		"status":         &types.AttributeValueMemberS{Value: msg.Status},
		"ttl":            &types.AttributeValueMemberN{Value: strconv.FormatInt(msg.TTL, 10)},
	}
	if len(msg.FollowUpQuestions) > 0 {
		list := make([]types.AttributeValue, len(msg.FollowUpQuestions))
		for i, q := range msg.FollowUpQuestions {
			list[i] = &types.AttributeValueMemberS{Value: q}
		}
		item["followUps"] = &types.AttributeValueMemberL{Value: list}
	}
	return item
}

func metaItem(meta domain.ConversationMeta) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: meta.PK},
		"SK":             &types.AttributeValueMemberS{Value: meta.SK},
		"conversationId": &types.AttributeValueMemberS{Value: meta.ConversationID},
		"lastActivity":   &types.AttributeValueMemberS{Value: meta.LastActivity},
		"turns":          &types.AttributeValueMemberN{Value: strconv.Itoa(meta.Turns)},
		"ttl":            &types.AttributeValueMemberN{Value: strconv.FormatInt(meta.TTL, 10)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", eris.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", eris.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// strListAttr reads an L-of-S attribute. A missing attribute is an empty list.
func strListAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return nil, nil
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, eris.Errorf("repository: attribute %q is not a list", key)
	}
	out := make([]string, 0, len(l.Value))
	for i, e := range l.Value {
		s, ok := e.(*types.AttributeValueMemberS)
		if !ok {
			return nil, eris.Errorf("repository: attribute %q element %d is not a string", key, i)
		}
		out = append(out, s.Value)
	}
	return out, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, eris.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, eris.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, eris.Wrapf(err, "repository: parse attribute %q", key)
	}
	return parsed, nil
}
