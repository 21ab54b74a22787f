package config

const (
	defaultSqliteDsn = "file:chemviz.db?_foreign_keys=1"

	DriverSqlite   = "sqlite"
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
)

type DBConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxLifetime  int    `yaml:"maxLifetime"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	Region          string `yaml:"region"`
}

type NSQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	NSQDAddr string `yaml:"nsqdAddr"`
	Topic    string `yaml:"topic"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// seconds a rendered report stays cached
	TTL int `yaml:"ttl"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

type Config struct {
	Addr      string `yaml:"addr"`
	SSLCert   string `yaml:"sslCert"`
	SSLKey    string `yaml:"sslKey"`
	JwtSecret string `yaml:"jwtSecret"`
	// number of most recent datasets kept, older ones are evicted after each upload
	MaxDatasetHistory int `yaml:"maxDatasetHistory"`
	// bytes
	MaxUploadSize int64       `yaml:"maxUploadSize"`
	AutoMigrate   bool        `yaml:"autoMigrate"`
	CORS          CORSConfig  `yaml:"cors"`
	DB            DBConfig    `yaml:"db"`
	S3            S3Config    `yaml:"s3"`
	NSQ           NSQConfig   `yaml:"nsq"`
	Redis         RedisConfig `yaml:"redis"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:              "127.0.0.1:8000",
		JwtSecret:         "change-me",
		MaxDatasetHistory: 5,
		MaxUploadSize:     10 << 20,
		AutoMigrate:       true,
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
		},
		DB: DBConfig{
			Driver:       DriverSqlite,
			DSN:          defaultSqliteDsn,
			MaxIdleConns: 10,
			MaxOpenConns: 100,
			MaxLifetime:  60,
		},
		S3: S3Config{
			Bucket:   "chemviz",
			Endpoint: "127.0.0.1:9000",
			UseSSL:   false,
			Region:   "us-east-1",
		},
		NSQ: NSQConfig{
			NSQDAddr: "127.0.0.1:4150",
			Topic:    "chemviz_datasets",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
			TTL:  3600,
		},
	}
}
