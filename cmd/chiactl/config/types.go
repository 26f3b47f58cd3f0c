package config

// ChiaConfig is the operator-editable description of every service this
// CLI manages. It lives in the operator's home directory; per-service
// runtime settings stay in each service's own env file.
type ChiaConfig struct {
	// Compose configures the container engine invocation shared by all
	// services.
	Compose ComposeConfig `yaml:"compose"`

	// Services lists the managed deployments.
	Services []ServiceSpec `yaml:"services" validate:"required,min=1,dive"`
}

// ComposeConfig selects the compose implementation.
type ComposeConfig struct {
	// Command is the engine invocation, e.g. ["docker","compose"] or
	// ["podman-compose"].
	Command []string `yaml:"command" validate:"required,min=1"`

	// ProjectPrefix namespaces compose projects so several services can
	// share one engine.
	ProjectPrefix string `yaml:"project_prefix"`
}

// ServiceSpec describes one managed service deployment.
type ServiceSpec struct {
	// Name is the subcommand name operators use, e.g. "ollama".
	Name string `yaml:"name" validate:"required,hostname_rfc1123"`

	// Dir is the directory holding the service's compose and env files.
	Dir string `yaml:"dir" validate:"required"`

	// ComposeFile is the base compose file, relative to Dir.
	ComposeFile string `yaml:"compose_file" validate:"required"`

	// GPUOverlayFile is the GPU overlay compose file, relative to Dir.
	// Empty means the service only supports the cpu profile.
	GPUOverlayFile string `yaml:"gpu_overlay_file"`

	// EnvFile is the service's env file, relative to Dir. It is owned by
	// the operator and never created by this tool.
	EnvFile string `yaml:"env_file" validate:"required"`

	// AcceleratorKey is the env file key holding the accelerator count
	// the service reads at startup, e.g. OLLAMA_GPU_COUNT. Required when
	// GPUOverlayFile is set.
	AcceleratorKey string `yaml:"accelerator_key" validate:"required_with=GPUOverlayFile"`

	// ContainerService is the primary compose service name, used for
	// exec-style operations. Defaults to Name.
	ContainerService string `yaml:"container_service"`

	// Health is the readiness check run after start.
	Health HealthSpec `yaml:"health"`

	// Models enables the model management subcommands, which exec into
	// the container. Only meaningful for inference services.
	Models bool `yaml:"models"`
}

// HealthSpec configures a service's readiness check.
type HealthSpec struct {
	// Type is "http" or "exec". Empty disables the check.
	Type string `yaml:"type" validate:"omitempty,oneof=http exec"`

	// URL is the endpoint for http checks.
	URL string `yaml:"url" validate:"required_if=Type http,omitempty,url"`

	// Command is the in-container command for exec checks.
	Command []string `yaml:"command" validate:"required_if=Type exec"`

	// TimeoutSeconds bounds the post-start readiness wait.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1"`

	// IntervalSeconds is the poll interval.
	IntervalSeconds int `yaml:"interval_seconds" validate:"omitempty,min=1"`
}

// Primary returns the compose service name exec-style operations target.
func (s ServiceSpec) Primary() string {
	if s.ContainerService != "" {
		return s.ContainerService
	}
	return s.Name
}

// SupportsGPU reports whether the service has a gpu profile at all.
func (s ServiceSpec) SupportsGPU() bool {
	return s.GPUOverlayFile != ""
}

// DefaultConfig returns the configuration written on first run: the three
// platform services with docker compose as the engine.
func DefaultConfig() ChiaConfig {
	return ChiaConfig{
		Compose: ComposeConfig{
			Command:       []string{"docker", "compose"},
			ProjectPrefix: "chia",
		},
		Services: []ServiceSpec{
			{
				Name:             "ollama",
				Dir:              "services/ollama",
				ComposeFile:      "compose.yaml",
				GPUOverlayFile:   "compose.gpu.yaml",
				EnvFile:          ".env",
				AcceleratorKey:   "OLLAMA_GPU_COUNT",
				ContainerService: "ollama",
				Models:           true,
				Health: HealthSpec{
					Type:            "http",
					URL:             "http://localhost:11434/api/version",
					TimeoutSeconds:  120,
					IntervalSeconds: 3,
				},
			},
			{
				Name:             "impactu",
				Dir:              "services/impactu",
				ComposeFile:      "compose.yaml",
				EnvFile:          ".env",
				ContainerService: "opensearch",
				Health: HealthSpec{
					Type:            "http",
					URL:             "http://localhost:9200/_cluster/health",
					TimeoutSeconds:  180,
					IntervalSeconds: 5,
				},
			},
			{
				Name:             "airflow",
				Dir:              "services/airflow",
				ComposeFile:      "compose.yaml",
				EnvFile:          ".env",
				ContainerService: "airflow-webserver",
				Health: HealthSpec{
					Type:            "exec",
					Command:         []string{"airflow", "jobs", "check", "--local"},
					TimeoutSeconds:  180,
					IntervalSeconds: 5,
				},
			},
		},
	}
}
