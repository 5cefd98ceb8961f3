package logger

import (
	"os"
	"runtime"
)

type Config struct {
	Level      Level             `json:"level"       yaml:"level"`
	Format     string            `json:"format"      yaml:"format"` // json, console, text
	Output     string            `json:"output"      yaml:"output"` // stdout, stderr, file
	FilePath   string            `json:"file_path"   yaml:"file_path"`
	MaxSize    int               `json:"max_size"    yaml:"max_size"` // MB
	MaxBackups int               `json:"max_backups" yaml:"max_backups"`
	MaxAge     int               `json:"max_age"     yaml:"max_age"` // days
	Compress   bool              `json:"compress"    yaml:"compress"`
	Fields     map[string]string `json:"fields"      yaml:"fields"` // static fields for k8s/docker
}

// GetDefaultFields collects process and deployment metadata attached to every entry.
func GetDefaultFields() Fields {
	hostname, _ := os.Hostname()

	fields := Fields{
		"hostname":   hostname,
		"pid":        os.Getpid(),
		"go_version": runtime.Version(),
		"service":    "newsletter-sse",
	}

	envFields := map[string]string{
		"KUBERNETES_NAMESPACE":    "k8s_namespace",
		"KUBERNETES_POD_NAME":     "k8s_pod",
		"KUBERNETES_NODE_NAME":    "k8s_node",
		"KUBERNETES_SERVICE_NAME": "k8s_service",
		"DOCKER_IMAGE":            "docker_image",
		"APP_VERSION":             "app_version",
		"APP_ENV":                 "environment",
	}
	for env, field := range envFields {
		if v := os.Getenv(env); v != "" {
			fields[field] = v
		}
	}

	return fields
}

func NewDefaultConfig() *Config {
	config := &Config{
		Level:      LevelInfo,
		Format:     "console", // Default to console for development
		Output:     "stdout",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Fields:     make(map[string]string),
	}

	for k, v := range GetDefaultFields() {
		if str, ok := v.(string); ok {
			config.Fields[k] = str
		}
	}

	return config
}
