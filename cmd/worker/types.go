package main

// snsNotification is the wrapper SQS delivers when the queue is subscribed to
// the order-events SNS topic. Message carries the serialized Envelope.
type snsNotification struct {
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	TopicARN  string `json:"TopicArn"`
	Message   string `json:"Message"`
	Timestamp string `json:"Timestamp"`
}
