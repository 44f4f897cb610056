// Package rules holds the stack detection rule table.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/example/stackscan/internal/model"
)

func rule(category, name string, importMarkers []string, codeMarkers ...string) model.Rule {
	return model.Rule{
		Category:      category,
		Name:          name,
		ImportMarkers: importMarkers,
		CodeMarkers:   codeMarkers,
	}
}

func markers(m ...string) []string {
	return m
}

var builtin = []model.Rule{
	rule("ai_orchestration", "eino", markers("github.com/cloudwego/eino"),
		"adk.NewChatModelAgent(",
		"adk.NewSequentialAgent(",
		"adk.NewRunner(",
		"compose.ToolsNodeConfig",
		"callbacks.AppendGlobalHandlers(",
	),
	rule("ai_llm", "openai(eino-ext)", markers("github.com/cloudwego/eino-ext/components/model/openai"),
		"openai.NewChatModel(", "openai.ChatModelConfig{"),
	rule("ai_llm", "openai-compatible(chat-completions)", nil,
		"/chat/completions",
		`json:"tool_choice,omitempty"`,
		`json:"tool_calls,omitempty"`,
		`Role:       "tool"`,
	),
	rule("web_framework", "gin", markers("github.com/gin-gonic/gin"), "gin.Default(", "gin.New("),
	rule("web_framework", "echo", markers("github.com/labstack/echo/v4"), "echo.New("),
	rule("web_framework", "fiber", markers("github.com/gofiber/fiber/v2"), "fiber.New(", "app.Listen("),
	rule("web_framework", "chi", markers("github.com/go-chi/chi/v5"), "chi.NewRouter("),
	rule("api_style", "grpc", markers("google.golang.org/grpc"), "grpc.NewServer(", "grpc.Dial(", "grpc.DialContext("),
	rule("api_style", "grpc-gateway", markers("github.com/grpc-ecosystem/grpc-gateway"), "runtime.NewServeMux(", "HandlerFromEndpoint("),
	rule("api_style", "graphql(gqlgen)", markers("github.com/99designs/gqlgen"), "NewExecutableSchema(", "NewDefaultServer("),
	rule("database", "gorm", markers("gorm.io/gorm"), "gorm.Open(", "AutoMigrate("),
	rule("database", "sqlx", markers("github.com/jmoiron/sqlx"), "sqlx.Connect(", "sqlx.Open("),
	rule("database", "mongodb", markers("go.mongodb.org/mongo-driver/mongo"), "mongo.Connect("),
	rule("cache_kv", "redis(go-redis)", markers("github.com/redis/go-redis/v9", "github.com/go-redis/redis/v8"),
		"redis.NewClient(", "redis.NewClusterClient(", "redis.ParseURL("),
	rule("task_job", "cron(robfig)", markers("github.com/robfig/cron/v3"), "cron.New(", "AddFunc("),
	rule("task_job", "asynq", markers("github.com/hibiken/asynq"), "asynq.NewServer(", "asynq.NewClient(", "asynq.NewScheduler("),
	rule("task_job", "temporal", markers("go.temporal.io/sdk"), "worker.New(", "ExecuteActivity("),
	rule("message_queue", "kafka(segmentio)", markers("github.com/segmentio/kafka-go"), "kafka.NewReader(", "kafka.Writer"),
	rule("message_queue", "nats", markers("github.com/nats-io/nats.go"), "nats.Connect(", "Subscribe("),
	rule("message_queue", "rabbitmq(amqp)", markers("github.com/rabbitmq/amqp091-go", "github.com/streadway/amqp"), "amqp.Dial(", "Consume("),
	rule("config", "viper", markers("github.com/spf13/viper"), "viper.ReadInConfig(", "viper.Unmarshal(", "viper.SetConfigFile("),
	rule("auth_security", "jwt", markers("github.com/golang-jwt/jwt/v5"), "jwt.Parse(", "NewWithClaims("),
	rule("auth_security", "casbin", markers("github.com/casbin/casbin/v2"), "casbin.NewEnforcer("),
	rule("observability", "opentelemetry", markers("go.opentelemetry.io/otel"), "otel.Tracer(", "SpanFromContext("),
	rule("observability", "prometheus", markers("github.com/prometheus/client_golang/prometheus"), "promhttp.Handler(", "prometheus.NewRegistry("),
	rule("observability", "klog", markers("k8s.io/klog/v2"), "klog.V(", "klog.Info", "klog.Error"),
	rule("observability", "zap", markers("go.uber.org/zap"), "zap.New(", "zap.L(", ".With("),
	rule("observability", "logrus", markers("github.com/sirupsen/logrus"), "logrus.New(", "logrus.WithField(", "logrus.WithFields("),
}

// Default returns a copy of the built-in rule set.
func Default() []model.Rule {
	out := make([]model.Rule, len(builtin))
	for i, r := range builtin {
		out[i] = model.Rule{
			Category:      r.Category,
			Name:          r.Name,
			ImportMarkers: append([]string(nil), r.ImportMarkers...),
			CodeMarkers:   append([]string(nil), r.CodeMarkers...),
		}
	}
	return out
}

// Validate rejects duplicate (category, name) pairs and rules that cannot match anything.
func Validate(rules []model.Rule) error {
	seen := map[string]struct{}{}
	var errs []error
	for _, r := range rules {
		if r.Category == "" || r.Name == "" {
			errs = append(errs, fmt.Errorf("rule %q: category and name are required", r.Key()))
			continue
		}
		if len(r.ImportMarkers) == 0 && len(r.CodeMarkers) == 0 {
			errs = append(errs, fmt.Errorf("rule %s: at least one marker is required", r.Key()))
		}
		if _, dup := seen[r.Key()]; dup {
			errs = append(errs, fmt.Errorf("duplicate rule %s", r.Key()))
		}
		seen[r.Key()] = struct{}{}
	}
	return errors.Join(errs...)
}

type ruleFile struct {
	Rules []model.Rule `yaml:"rules"`
}

// Load reads additional rules from a YAML file.
func Load(path string) ([]model.Rule, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var raw ruleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	return raw.Rules, nil
}

// Merge appends extra to base and validates the combined set.
func Merge(base, extra []model.Rule) ([]model.Rule, error) {
	out := make([]model.Rule, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Effective returns the built-in rules plus those in rulesFile, if set.
func Effective(rulesFile string) ([]model.Rule, error) {
	base := Default()
	if rulesFile == "" {
		return base, nil
	}

	extra, err := Load(rulesFile)
	if err != nil {
		return nil, err
	}
	return Merge(base, extra)
}
