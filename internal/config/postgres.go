package config

type PostgresConfig struct {
	Url    string
	Schema string
}

func NewPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Url:    getEnv("DATABASE_URL", ""),
		Schema: getEnv("DB_SCHEMA", "public"),
	}
}

func (c *PostgresConfig) Enabled() bool {
	return c.Url != ""
}
