package kafka

import (
	"github.com/IBM/sarama"
)

// InitKafkaConsumer creates the consumer group used to bridge platform events
// into the notification dispatcher.
func InitKafkaConsumer(brokers []string, group string) (sarama.ConsumerGroup, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_0_0_0
	config.ClientID = "notify-service"
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, group, config)
	if err != nil {
		return nil, err
	}

	return consumer, nil
}
