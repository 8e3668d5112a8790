package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultSchedulerYAML = `# SocialSpark — Content Scheduler config
# Priority: CLI flag > this file > default.

mongo_uri:  "mongodb://localhost:27017"
mongo_db:   "socialspark"
redis_addr: "localhost:6379"
log_level:  "info"

http_port:    "8001"
metrics_addr: ":9091"

# Peer agents, one per platform.
peers:
  facebook-posting-agent: "http://localhost:8002"

tick_interval:  "1s"   # how often due jobs are polled
drain_interval: "30s"  # how often the publish queue is drained

# analytics_schedule: "@every 15m"  # uncomment to poll post analytics
# otel_endpoint: "localhost:4318"   # uncomment to enable OpenTelemetry tracing
`

func newInitCmd(serviceName, defaultYAML string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: fmt.Sprintf(`Write default configuration for %s.

If --config is given the file is written to that path.
Otherwise it is written to ~/.socialspark/%s.yaml.
Fails if the file already exists unless --force is passed.`, serviceName, serviceName),
		RunE: func(_ *cobra.Command, _ []string) error {
			dest := cfgFile
			if dest == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("home dir: %w", err)
				}
				dest = filepath.Join(home, ".socialspark", serviceName+".yaml")
			}

			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("mkdir: %w", err)
			}

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", dest, err)
				}
			}

			if err := os.WriteFile(dest, []byte(defaultYAML), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("config written to %s\n", dest)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}
