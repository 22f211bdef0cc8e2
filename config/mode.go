package config

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// UsesRabbitMQ reports whether any component needs a broker connection.
func (c *Config) UsesRabbitMQ() bool {
	return c.Alert.Sink == "rabbitmq" || c.RabbitMQ.UserEventsQueue != ""
}
