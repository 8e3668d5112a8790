package config

import (
	"github.com/spf13/viper"
)

// Config holds typed configuration for the facebook posting agent.
type Config struct {
	LogLevel        string
	MongoURI        string
	MongoDB         string
	RedisAddr       string
	HTTPPort        string
	MetricsAddr     string
	OTelEndpoint    string
	Peers           map[string]string
	GraphBaseURL    string
	MockGraphAPI    bool
	AnalyticsTarget string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:        v.GetString("log_level"),
		MongoURI:        v.GetString("mongo_uri"),
		MongoDB:         v.GetString("mongo_db"),
		RedisAddr:       v.GetString("redis_addr"),
		HTTPPort:        v.GetString("http_port"),
		MetricsAddr:     v.GetString("metrics_addr"),
		OTelEndpoint:    v.GetString("otel_endpoint"),
		Peers:           v.GetStringMapString("peers"),
		GraphBaseURL:    v.GetString("graph_base_url"),
		MockGraphAPI:    v.GetBool("mock_graph_api"),
		AnalyticsTarget: v.GetString("analytics_target"),
	}
}
