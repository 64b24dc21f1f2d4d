package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Values come from flag defaults, then
// the YAML file named by -config.file, then flags given on the command line.
type Config struct {
	ConfigFile string `yaml:"-"`

	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Index   IndexConfig   `yaml:"index"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
	// RefreshInterval polls for new generations. 0 disables polling.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type StorageConfig struct {
	// Backend is local, s3 or minio.
	Backend string `yaml:"backend"`
	// CacheBytes caches whole blobs in memory in front of remote backends.
	CacheBytes int64 `yaml:"cache_bytes"`

	Local LocalConfig `yaml:"local"`
	S3    S3Config    `yaml:"s3"`
	MinIO MinIOConfig `yaml:"minio"`
}

type LocalConfig struct {
	Directory string `yaml:"directory"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
	// UploadPartSize and UploadConcurrency tune multipart uploads.
	UploadPartSize    int64 `yaml:"upload_part_size"`
	UploadConcurrency int   `yaml:"upload_concurrency"`
	// DynamoDBTable commits the CURRENT pointer through a conditional write.
	DynamoDBTable string `yaml:"dynamodb_table"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

type IndexConfig struct {
	IDField          string        `yaml:"id_field"`
	IDMapCapacity    int           `yaml:"idmap_capacity"`
	RetryInterval    time.Duration `yaml:"retry_interval"`
	BuildConcurrency int           `yaml:"build_concurrency"`
	ColumnCacheBytes int64         `yaml:"column_cache_bytes"`
	MaxBitsetBytes   int64         `yaml:"max_bitset_bytes"`
	// MaxConcurrentSelects and SelectMemoryBytes bound in-flight selects.
	MaxConcurrentSelects int64 `yaml:"max_concurrent_selects"`
	SelectMemoryBytes    int64 `yaml:"select_memory_bytes"`
	// Codec encodes wt=json responses: go-json or json.
	Codec string `yaml:"codec"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RegisterFlags registers every option with its default.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.ConfigFile, "config.file", "", "YAML configuration file.")

	f.StringVar(&c.Server.ListenAddress, "server.listen-address", ":8983", "HTTP listen address.")
	f.DurationVar(&c.Server.ReadTimeout, "server.read-timeout", 30*time.Second, "HTTP read timeout.")
	f.DurationVar(&c.Server.WriteTimeout, "server.write-timeout", 60*time.Second, "HTTP write timeout.")
	f.DurationVar(&c.Server.ShutdownTimeout, "server.shutdown-timeout", 10*time.Second, "Graceful shutdown timeout.")
	f.Int64Var(&c.Server.MaxRequestBytes, "server.max-request-bytes", 64<<20, "Maximum /select body size.")
	f.DurationVar(&c.Server.RefreshInterval, "server.refresh-interval", 0, "Interval between generation refreshes. 0 disables polling.")

	f.StringVar(&c.Storage.Backend, "storage.backend", "local", "Blob storage backend: local, s3 or minio.")
	f.Int64Var(&c.Storage.CacheBytes, "storage.cache-bytes", 0, "In-memory blob cache in front of remote backends. 0 disables it.")
	f.StringVar(&c.Storage.Local.Directory, "storage.local.directory", "./data", "Index directory of the local backend.")
	f.StringVar(&c.Storage.S3.Bucket, "storage.s3.bucket", "", "S3 bucket.")
	f.StringVar(&c.Storage.S3.Prefix, "storage.s3.prefix", "", "S3 key prefix.")
	f.StringVar(&c.Storage.S3.Region, "storage.s3.region", "", "S3 region. Empty uses the AWS default chain.")
	f.StringVar(&c.Storage.S3.Endpoint, "storage.s3.endpoint", "", "Custom S3 endpoint.")
	f.BoolVar(&c.Storage.S3.UsePathStyle, "storage.s3.use-path-style", false, "Use path-style S3 addressing.")
	f.Int64Var(&c.Storage.S3.UploadPartSize, "storage.s3.upload-part-size", 8<<20, "Multipart upload part size.")
	f.IntVar(&c.Storage.S3.UploadConcurrency, "storage.s3.upload-concurrency", 5, "Concurrent multipart upload parts.")
	f.StringVar(&c.Storage.S3.DynamoDBTable, "storage.s3.dynamodb-table", "", "DynamoDB table committing the CURRENT pointer.")
	f.StringVar(&c.Storage.MinIO.Endpoint, "storage.minio.endpoint", "", "MinIO endpoint host:port.")
	f.StringVar(&c.Storage.MinIO.Bucket, "storage.minio.bucket", "", "MinIO bucket.")
	f.StringVar(&c.Storage.MinIO.Prefix, "storage.minio.prefix", "", "MinIO object prefix.")
	f.StringVar(&c.Storage.MinIO.AccessKey, "storage.minio.access-key", "", "MinIO access key.")
	f.StringVar(&c.Storage.MinIO.SecretKey, "storage.minio.secret-key", "", "MinIO secret key.")
	f.BoolVar(&c.Storage.MinIO.Secure, "storage.minio.secure", false, "Use TLS for MinIO.")

	f.StringVar(&c.Index.IDField, "index.id-field", "id", "Integer field holding external ids.")
	f.IntVar(&c.Index.IDMapCapacity, "index.idmap-capacity", 4, "Generations with a cached id map.")
	f.DurationVar(&c.Index.RetryInterval, "index.retry-interval", 30*time.Second, "Minimum time between rebuilds of a failed id map.")
	f.IntVar(&c.Index.BuildConcurrency, "index.build-concurrency", 0, "Segments scanned in parallel per id map build. 0 uses GOMAXPROCS.")
	f.Int64Var(&c.Index.ColumnCacheBytes, "index.column-cache-bytes", 256<<20, "Decoded column cache size.")
	f.Int64Var(&c.Index.MaxBitsetBytes, "index.max-bitset-bytes", 256<<20, "Maximum decompressed request bitset size.")
	f.Int64Var(&c.Index.MaxConcurrentSelects, "index.max-concurrent-selects", 0, "Selects executing at once. 0 is unlimited.")
	f.Int64Var(&c.Index.SelectMemoryBytes, "index.select-memory-bytes", 0, "Decoded bitset bytes held by in-flight selects. 0 is unlimited.")
	f.StringVar(&c.Index.Codec, "index.codec", "go-json", "Codec of JSON responses: go-json or json.")

	f.StringVar(&c.Log.Level, "log.level", "info", "Log level: debug, info, warn or error.")
	f.StringVar(&c.Log.Format, "log.format", "text", "Log format: text or json.")
}

// Validate checks option combinations.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Local.Directory == "" {
			return errors.New("storage.local.directory is required")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required")
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return errors.New("storage.minio.endpoint and storage.minio.bucket are required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Index.Codec != "go-json" && c.Index.Codec != "json" {
		return fmt.Errorf("unknown codec %q", c.Index.Codec)
	}
	return nil
}

// LoadConfig parses args into a Config.
func LoadConfig(args []string, stderr io.Writer) (*Config, error) {
	var c Config
	fs := flag.NewFlagSet("bitsieved", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.RegisterFlags(fs)

	// The first pass only finds -config.file.
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if c.ConfigFile != "" {
		data, err := os.ReadFile(c.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %s: %w", c.ConfigFile, err)
		}
		// Command line flags win over the file.
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
