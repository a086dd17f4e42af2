package command

import (
	"github.com/codeplane/analyzer-orchestrator/internal/config"
	"github.com/codeplane/analyzer-orchestrator/internal/domain"
	"github.com/codeplane/analyzer-orchestrator/internal/executor"
)

// Builder translates requests into analyzer tool invocations. It implements
// executor.Translator; the executor itself never constructs command lines.
type Builder struct {
	cfg *config.Config
}

// NewBuilder creates a builder for the given configuration
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Command builds the command line for a request.
//
// Version probes and analysis runs invoke the analyzer binary; parse runs
// invoke the report converter. The converter only reads the raw report and
// writes its rendered output under a separate directory.
func (b *Builder) Command(req domain.Request) executor.CommandSpec {
	switch req.Kind {
	case domain.KindVersionCheck:
		return executor.CommandSpec{
			Path: b.cfg.Tool.AnalyzerPath,
			Args: []string{"--version"},
		}
	case domain.KindParse:
		return executor.CommandSpec{
			Path: b.cfg.Tool.ConverterPath,
			Args: []string{
				"-t", b.cfg.Tool.ReportFormat,
				"-o", b.cfg.RenderedPath(),
				req.Target,
			},
		}
	default:
		return b.analyzeCommand(req)
	}
}

func (b *Builder) analyzeCommand(req domain.Request) executor.CommandSpec {
	args := []string{"analyze", "--output", b.cfg.ReportPath()}
	if req.Target != domain.ProjectTarget {
		args = append(args, "--file", req.Target)
	}
	args = append(args, b.cfg.Tool.ExtraArgs...)

	return executor.CommandSpec{
		Path: b.cfg.Tool.AnalyzerPath,
		Args: args,
		Dir:  b.cfg.General.ProjectRoot,
	}
}
