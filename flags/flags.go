package flags

import (
	"strings"
	"time"

	"github.com/samber/lo"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	LogFormat = "log-format"
	LogLevel  = "log-level"
	LogSource = "log-source"

	AgentDataURL        = "agent-data-url"
	AgentLimit          = "agent-limit"
	CommandTimeout      = "command-timeout"
	CompletionThreshold = "completion-threshold"
	DistroSeries        = "distro-series"
	GracePeriod         = "grace-period"
	OutputDir           = "output-dir"
	Template            = "template"
	TestflingerBinary   = "testflinger-binary"
)

// Register adds the tool's persistent flags to the given flag set and binds
// them into viper, so every flag can also be set through the environment
// (VCLUSTER_LOG_LEVEL, VCLUSTER_AGENT_DATA_URL, ...).
func Register(flags *flag.FlagSet) {
	flags.String(LogFormat, "text", "log format (json, text)")
	flags.String(LogLevel, "INFO", "minimum log level")
	flags.Bool(LogSource, false, "add source code location to logs")

	flags.String(AgentDataURL, "", "HTTP endpoint serving the agent inventory")
	flags.Int(AgentLimit, 15, "maximum number of agents to use")
	flags.Duration(CommandTimeout, time.Hour, "upper bound for a single testflinger-cli invocation")
	flags.Int(CompletionThreshold, 11, "minimum number of successful completions required")
	flags.String(DistroSeries, "noble", "distro series to provision")
	flags.Duration(GracePeriod, 2*time.Second, "how long to wait for in-flight cancellations after the run is decided")
	flags.String(OutputDir, "output", "directory for job files and per-job output captures")
	flags.String(Template, "testflinger_template_noble.yaml", "job description template")
	flags.String(TestflingerBinary, "testflinger-cli", "testflinger client binary")

	viper.SetEnvPrefix("vcluster")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	lo.Must0(viper.BindPFlags(flags))
}
