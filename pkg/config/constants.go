package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "GHOSTCART_DB_DSN"
	EnvDBHost = "GHOSTCART_DB_HOST"
	EnvDBUser = "GHOSTCART_DB_USER"
	EnvDBName = "GHOSTCART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
