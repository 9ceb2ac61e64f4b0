package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyDBType      string = "COSTMETER_DB_TYPE"
	EnvKeyDbPath      string = "COSTMETER_DB_PATH"
	EnvKeyPostgresDSN string = "COSTMETER_POSTGRES_DSN"

	EnvKeyConfigPath string = "COSTMETER_CONFIG"

	EnvKeyHttpHostPort string = "COSTMETER_HTTP_HOST_PORT"
	EnvKeyGrpcHostPort string = "COSTMETER_GRPC_HOST_PORT"

	EnvKeyDefaultRate  string = "COSTMETER_DEFAULT_RATE"
	EnvKeyDefaultBurst string = "COSTMETER_DEFAULT_BURST"

	EnvKeyAdminToken string = "COSTMETER_ADMIN_TOKEN"
	EnvKeyAPIBase    string = "COSTMETER_API_BASE"

	LoggerNameMeterCore     string = "meter_core"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameSessionLog    string = "session_log"
	LoggerNameSender        string = "sender"
	LoggerFieldCategory     string = "category"
	LoggerCategoryEvent     string = "event"
	LoggerCategoryAlert     string = "alert"
	LoggerCategoryPricing   string = "pricing"
	LoggerCategoryDevice    string = "device"
	LoggerCategoryStats     string = "stats"
)
