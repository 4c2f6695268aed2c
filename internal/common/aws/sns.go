// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the subset of the SNS client used here.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// RestockEvent announces that a product is purchasable again.
type RestockEvent struct {
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	ShopID      string    `json:"shopId"`
	ShopName    string    `json:"shopName"`
	StockStatus string    `json:"stockStatus"`
	Price       string    `json:"price"`
	At          time.Time `json:"at"`
}

// RestockNotifier publishes RestockEvents to an SNS topic.
type RestockNotifier struct {
	client   SNSService
	topicARN string
}

func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

func NewRestockNotifier(client SNSService, topicARN string) *RestockNotifier {
	return &RestockNotifier{client: client, topicARN: topicARN}
}

// NotifyRestock publishes ev and returns the SNS message id.
func (n *RestockNotifier) NotifyRestock(ctx context.Context, ev RestockEvent) (string, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal restock event: %w", err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(fmt.Sprintf("%s is back in stock at %s", ev.ProductName, ev.ShopName)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"shopId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(ev.ShopID),
			},
			"productId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(ev.ProductID),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
