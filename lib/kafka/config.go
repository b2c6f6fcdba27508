package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/FacuPal/arq-microservicios/app"
)

type Config struct {
	Brokers []string
	GroupID string
}

var KafkaConfig *Config

func Setup() {
	KafkaConfig = &Config{
		Brokers: strings.Split(app.Config("KAFKA_BROKERS"), ","),
		GroupID: app.Config("KAFKA_GROUP_ID"),
	}

	// Startup probe with a throwaway topic.
	topic := "test_connection"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(ctx, "tcp", KafkaConfig.Brokers[0])
	if err != nil {
		logrus.WithError(err).Warn("kafka unreachable, broker features disabled")
		return
	}
	_ = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	conn.Close()
	logrus.Info("kafka connection established")
}
