package jobstore

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"oss.nandlabs.io/ecscheduler/config"
	"oss.nandlabs.io/ecscheduler/jobstore/dynamostore"
	"oss.nandlabs.io/ecscheduler/jobstore/esstore"
	"oss.nandlabs.io/ecscheduler/jobstore/filestore"
	"oss.nandlabs.io/ecscheduler/jobstore/memstore"
	"oss.nandlabs.io/ecscheduler/jobstore/s3store"
	"oss.nandlabs.io/ecscheduler/jobstore/sqlitestore"
)

const envPrefix = "ECSS_"

// fileConfig is the shape of the YAML file named by ECSS_CONFIG_FILE,
// the last-resort fallback ahead of the null in-memory store (§6).
type fileConfig struct {
	Elasticsearch struct {
		Index string   `yaml:"index"`
		Hosts []string `yaml:"hosts"`
	} `yaml:"elasticsearch"`
}

// Resolve picks a Store from the environment, following the precedence
// order named in §6: SQLITE_FILE, then S3_BUCKET(+S3_PREFIX), then
// DYNAMODB_TABLE, then ELASTICSEARCH_INDEX(+ELASTICSEARCH_HOSTS), then
// the CONFIG_FILE YAML fallback (Elasticsearch only, matching the
// original resolver), and finally a null in-memory store with a
// warning.
func Resolve() (Store, error) {
	if file := config.GetEnvAsString(envPrefix+"SQLITE_FILE", ""); file != "" {
		return sqlitestore.New(file)
	}

	if bucket := config.GetEnvAsString(envPrefix+"S3_BUCKET", ""); bucket != "" {
		prefix := config.GetEnvAsString(envPrefix+"S3_PREFIX", "")
		return s3store.New(bucket, prefix)
	}

	if table := config.GetEnvAsString(envPrefix+"DYNAMODB_TABLE", ""); table != "" {
		return dynamostore.New(table)
	}

	if index := config.GetEnvAsString(envPrefix+"ELASTICSEARCH_INDEX", ""); index != "" {
		hosts := splitCSV(config.GetEnvAsString(envPrefix+"ELASTICSEARCH_HOSTS", ""))
		return esstore.New(index, hosts)
	}

	if cfgPath := config.GetEnvAsString(envPrefix+"CONFIG_FILE", ""); cfgPath != "" {
		cfg, err := readFileConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		if cfg.Elasticsearch.Index != "" && len(cfg.Elasticsearch.Hosts) > 0 {
			return esstore.New(cfg.Elasticsearch.Index, cfg.Elasticsearch.Hosts)
		}
	}

	return memstore.New(), nil
}

func readFileConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
