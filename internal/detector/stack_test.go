package detector

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/stretchr/testify/require"

	"github.com/example/stackscan/internal/model"
	"github.com/example/stackscan/internal/rules"
)

var ginGoMod = heredoc.Doc(`
	module example.com/app

	go 1.21

	require (
		github.com/gin-gonic/gin v1.9.0
	)
`)

func detectStacks(t *testing.T, files map[string]string, opts Options, rs ...model.Rule) []model.Finding {
	t.Helper()
	if len(rs) == 0 {
		rs = rules.Default()
	}
	if opts.MaxEvidence == 0 {
		opts.MaxEvidence = DefaultMaxEvidence
	}

	scan := newTestScan(t, files, opts)
	findings, err := NewStackDetector(rs).Detect(context.Background(), scan)
	require.NoError(t, err)
	return findings
}

func findingNamed(findings []model.Finding, name string) *model.Finding {
	for i := range findings {
		if findings[i].Name == name {
			return &findings[i]
		}
	}
	return nil
}

func TestGinManifestAndCodeScenario(t *testing.T) {
	findings := detectStacks(t, map[string]string{
		"go.mod":  ginGoMod,
		"main.go": "package main\n\nfunc main() {\n\tr := gin.Default()\n\t_ = r\n}\n",
	}, Options{})

	gin := findingNamed(findings, "gin")
	require.NotNil(t, gin)
	require.Equal(t, "web_framework", gin.Category)
	require.Equal(t, 0.8, gin.Confidence)
	require.Equal(t, []string{ReasonManifest, ReasonCode}, gin.Reasons)

	require.Len(t, gin.Evidence, 2)
	require.Equal(t, "main.go", gin.Evidence[0].File)
	require.Equal(t, 4, gin.Evidence[0].LineStart)
	require.Equal(t, "r := gin.Default()", gin.Evidence[0].Match)
	require.Equal(t, "go.mod", gin.Evidence[1].File)
	require.Equal(t, 6, gin.Evidence[1].LineStart)
	require.Equal(t, "github.com/gin-gonic/gin v1.9.0", gin.Evidence[1].Match)
}

func TestAllSignalsClampToCeiling(t *testing.T) {
	findings := detectStacks(t, map[string]string{
		"go.mod":  ginGoMod,
		"main.go": "package main\n\nimport \"github.com/gin-gonic/gin\"\n\nfunc main() {\n\tgin.Default()\n}\n",
	}, Options{})

	gin := findingNamed(findings, "gin")
	require.NotNil(t, gin)
	require.Equal(t, 0.95, gin.Confidence)
	require.Equal(t, []string{ReasonManifest, ReasonImport, ReasonCode}, gin.Reasons)
}

func TestNoSignalNoFinding(t *testing.T) {
	findings := detectStacks(t, map[string]string{
		"go.mod":  "module example.com/empty\n\ngo 1.22\n",
		"main.go": "package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println(\"hi\") }\n",
	}, Options{})

	require.Empty(t, findings)
}

func TestFindingIffSignal(t *testing.T) {
	rule := model.Rule{
		Category:      "database",
		Name:          "widgetdb",
		ImportMarkers: []string{"example.com/widgetdb"},
		CodeMarkers:   []string{"widgetdb.Open("},
	}

	tests := []struct {
		name     string
		files    map[string]string
		want     bool
		expected float64
	}{
		{
			name:  "nothing",
			files: map[string]string{"main.go": "package main\n"},
		},
		{
			name:     "manifest only",
			files:    map[string]string{"go.mod": "module x\nrequire example.com/widgetdb v1.0.0\n"},
			want:     true,
			expected: 0.45,
		},
		{
			name:     "import only",
			files:    map[string]string{"main.go": "package main\nimport _ \"example.com/widgetdb/driver\"\n"},
			want:     true,
			expected: 0.45,
		},
		{
			name:     "code only",
			files:    map[string]string{"main.go": "package main\nvar db = widgetdb.Open(\"x\")\n"},
			want:     true,
			expected: 0.55,
		},
		{
			name:  "import prefix without path boundary",
			files: map[string]string{"main.go": "package main\nimport \"example.com/widgetdbx\"\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := detectStacks(t, tt.files, Options{}, rule)
			if !tt.want {
				require.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			require.Equal(t, tt.expected, findings[0].Confidence)
		})
	}
}

func TestConfidenceMonotoneAndBounded(t *testing.T) {
	bools := []bool{false, true}
	for _, m := range bools {
		for _, i := range bools {
			for _, c := range bools {
				got := Confidence(m, i, c)
				require.LessOrEqual(t, got, 0.95)
				require.GreaterOrEqual(t, got, 0.0)

				if !m {
					require.GreaterOrEqual(t, Confidence(true, i, c), got)
				}
				if !i {
					require.GreaterOrEqual(t, Confidence(m, true, c), got)
				}
				if !c {
					require.GreaterOrEqual(t, Confidence(m, i, true), got)
				}
			}
		}
	}

	require.Equal(t, 0.2, Confidence(false, false, false))
	require.Equal(t, 0.7, Confidence(true, true, false))
	require.Equal(t, 0.8, Confidence(true, false, true))
	require.Equal(t, 0.95, Confidence(true, true, true))
}

func TestEvidenceNeverExceedsCap(t *testing.T) {
	files := map[string]string{
		"go.mod": "module x\nrequire (\n\tgithub.com/redis/go-redis/v9 v9.0.0\n\tgithub.com/go-redis/redis/v8 v8.0.0\n)\n",
	}
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("pkg%d/cache.go", i)] = heredoc.Doc(`
			package cache

			import "github.com/redis/go-redis/v9"

			var a = redis.NewClient(nil)
			var b = redis.NewClusterClient(nil)
			var c, _ = redis.ParseURL("redis://")
		`)
	}

	for _, limit := range []int{1, 2, 3, 7} {
		t.Run(fmt.Sprintf("max=%d", limit), func(t *testing.T) {
			findings := detectStacks(t, files, Options{MaxEvidence: limit})
			redis := findingNamed(findings, "redis(go-redis)")
			require.NotNil(t, redis)
			require.LessOrEqual(t, len(redis.Evidence), limit)
			require.NotEmpty(t, redis.Evidence)
			for _, e := range redis.Evidence {
				require.NotEqual(t, "go.mod", e.File, "code evidence should take priority")
			}
		})
	}
}

func TestEvidencePriorityOrder(t *testing.T) {
	files := map[string]string{
		"go.mod":  "module x\nrequire github.com/go-chi/chi/v5 v5.0.0\n",
		"main.go": "package main\n\nimport \"github.com/go-chi/chi/v5\"\n\nvar r = chi.NewRouter()\n",
	}

	findings := detectStacks(t, files, Options{MaxEvidence: 10})
	chi := findingNamed(findings, "chi")
	require.NotNil(t, chi)
	require.Len(t, chi.Evidence, 3)

	require.Equal(t, "main.go", chi.Evidence[0].File)
	require.Equal(t, 5, chi.Evidence[0].LineStart)
	require.Equal(t, "go.mod", chi.Evidence[1].File)
	require.Equal(t, "main.go", chi.Evidence[2].File)
	require.Equal(t, 3, chi.Evidence[2].LineStart)
	require.Equal(t, whyImport, chi.Evidence[2].Why)
}

func TestVendoredManifestIsIgnored(t *testing.T) {
	findings := detectStacks(t, map[string]string{
		"go.mod":                              "module example.com/app\n",
		"vendor/github.com/nats-io/x/go.mod":  "module x\nrequire github.com/nats-io/nats.go v1.31.0\n",
		"vendor/github.com/nats-io/x/nats.go": "package x\nimport \"github.com/nats-io/nats.go\"\nvar c, _ = nats.Connect(\"\")\n",
		"node_modules/nats/go.mod":            "module y\nrequire github.com/nats-io/nats.go v1.31.0\n",
	}, Options{})

	require.Nil(t, findingNamed(findings, "nats"))
	for _, f := range findings {
		for _, e := range f.Evidence {
			require.False(t, strings.HasPrefix(e.File, "vendor/"), "evidence from vendor: %s", e.File)
		}
	}
}

func TestTestFileExclusion(t *testing.T) {
	files := map[string]string{
		"go.mod":              "module example.com/app\n",
		"server/echo_test.go": "package server\n\nimport \"github.com/labstack/echo/v4\"\n\nvar e = echo.New()\n",
		"main.go":             "package main\n",
	}

	excluded := detectStacks(t, files, Options{})
	require.Nil(t, findingNamed(excluded, "echo"))

	included := detectStacks(t, files, Options{IncludeTests: true})
	echo := findingNamed(included, "echo")
	require.NotNil(t, echo)
	require.Equal(t, []string{ReasonImport, ReasonCode}, echo.Reasons)
	require.Equal(t, "server/echo_test.go", echo.Evidence[0].File)
}

func TestTestOnlyDependencyKeepsManifestSignal(t *testing.T) {
	files := map[string]string{
		"go.mod":           "module example.com/app\n\nrequire github.com/labstack/echo/v4 v4.11.0\n",
		"tests/helpers.go": "package tests\n\nimport \"github.com/labstack/echo/v4\"\n\nvar e = echo.New()\n",
	}

	echo := findingNamed(detectStacks(t, files, Options{}), "echo")
	require.NotNil(t, echo)
	require.Equal(t, 0.45, echo.Confidence)
	require.Equal(t, []string{ReasonManifest}, echo.Reasons)
	require.Len(t, echo.Evidence, 1)
	require.Equal(t, "go.mod", echo.Evidence[0].File)
}

func TestManifestEvidenceFallsBackToDeclaringLine(t *testing.T) {
	rule := model.Rule{
		Category:      "internal",
		Name:          "pinned-lib",
		ImportMarkers: []string{"example.com/lib@v1"},
	}
	files := map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.22\n\nrequire (\n\texample.com/lib v1.4.0\n)\n",
	}

	findings := detectStacks(t, files, Options{}, rule)
	require.Len(t, findings, 1)
	require.Equal(t, []string{ReasonManifest}, findings[0].Reasons)
	require.Len(t, findings[0].Evidence, 1)
	require.Equal(t, 6, findings[0].Evidence[0].LineStart)
	require.Equal(t, "example.com/lib v1.4.0", findings[0].Evidence[0].Match)
}

func TestDetectSortsFindings(t *testing.T) {
	files := map[string]string{
		"go.mod": heredoc.Doc(`
			module example.com/app

			require (
				go.uber.org/zap v1.27.0
				gorm.io/gorm v1.25.0
				github.com/spf13/viper v1.18.0
			)
		`),
		"main.go": "package main\n\nvar db, _ = gorm.Open(nil)\n",
	}

	findings := detectStacks(t, files, Options{})
	require.Len(t, findings, 3)
	require.Equal(t, "gorm", findings[0].Name)
	require.Equal(t, "viper", findings[1].Name)
	require.Equal(t, "zap", findings[2].Name)
}
