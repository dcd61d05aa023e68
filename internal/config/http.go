package config

type HttpConfig struct {
	Port        int
	ServiceName string
}

func NewHttpConfig() *HttpConfig {
	return &HttpConfig{
		Port:        intEnv("HTTP_PORT", 8082),
		ServiceName: getEnv("SERVICE_NAME", "workerDiscovery"),
	}
}
