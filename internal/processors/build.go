package processors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reportwatch/internal/orchestrator"
)

// Kinds accepted by Build.
const (
	KindLog       = "log"
	KindValidate  = "validate"
	KindCommand   = "command"
	KindCopy      = "copy"
	KindReport    = "report"
	KindComposite = "composite"
)

// Spec describes a processor. Steps lists kinds for composite processors;
// every step shares the remaining fields.
type Spec struct {
	Kind              string
	Command           string
	Args              []string
	Destination       string
	PreserveStructure bool
	VerifyCopies      bool
	ReportDir         string
	BatchSize         int
	Steps             []string
}

// Build returns the ProcessFunc described by spec. A positive BatchSize wraps
// the result in Batch.
func Build(spec Spec, logger *slog.Logger) (orchestrator.ProcessFunc, error) {
	fn, err := build(spec, spec.Kind, logger, true)
	if err != nil {
		return nil, err
	}
	if spec.BatchSize > 0 {
		fn = Batch(spec.BatchSize, fn)
	}
	return fn, nil
}

func build(spec Spec, kind string, logger *slog.Logger, allowComposite bool) (orchestrator.ProcessFunc, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindLog:
		return Log(logger), nil
	case KindValidate:
		return Validate(), nil
	case KindCommand:
		if strings.TrimSpace(spec.Command) == "" {
			return nil, errors.New("processor.command is required for command processors")
		}
		return Command(spec.Command, spec.Args...), nil
	case KindCopy:
		if strings.TrimSpace(spec.Destination) == "" {
			return nil, errors.New("processor.destination is required for copy processors")
		}
		return Copy(spec.Destination, CopyOptions{PreserveStructure: spec.PreserveStructure, Verify: spec.VerifyCopies}), nil
	case KindReport:
		if strings.TrimSpace(spec.ReportDir) == "" {
			return nil, errors.New("processor.report_dir is required for report processors")
		}
		return WriteReport(spec.ReportDir), nil
	case KindComposite:
		if !allowComposite {
			return nil, errors.New("processor.steps cannot nest composite processors")
		}
		if len(spec.Steps) == 0 {
			return nil, errors.New("processor.steps must list at least one step")
		}
		steps := make([]orchestrator.ProcessFunc, 0, len(spec.Steps))
		for _, step := range spec.Steps {
			fn, err := build(spec, step, logger, false)
			if err != nil {
				return nil, err
			}
			steps = append(steps, fn)
		}
		return Composite(steps...), nil
	default:
		return nil, fmt.Errorf("processor.kind %q is not supported", kind)
	}
}
