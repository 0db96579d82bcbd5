package bootstrap

import (
	"homerent/pkg/config"
	"homerent/pkg/database"
	"homerent/pkg/logger"
	"homerent/pkg/notify"
)

// SetupNotify 创建通知服务，配置了 Kafka 时推送消息写入 Kafka，否则只保存站内通知
func SetupNotify() (*notify.Service, notify.Publisher) {
	var publisher notify.Publisher = notify.NopPublisher{}

	brokers := config.GetString("notify.brokers")
	if brokers != "" {
		kafka, err := notify.NewKafkaPublisher(brokers, config.GetString("notify.topic"))
		if err != nil {
			logger.ErrorString("Notify", "Kafka", err.Error())
		} else {
			publisher = kafka
			logger.InfoString("Notify", "Kafka", "推送消息写入 "+brokers)
		}
	}

	return notify.NewService(database.DB, publisher), publisher
}
