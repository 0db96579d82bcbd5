package config

import "homerent/pkg/config"

func init() {
	config.Add("notify", func() map[string]interface{} {
		return map[string]interface{}{
			// Kafka 集群地址，多个以逗号分隔；为空时仅写入站内通知
			"brokers": config.Env("KAFKA_BROKERS", ""),
			"topic":   config.Env("NOTIFY_TOPIC", "notification.push"),
		}
	})
}
