package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/audit"
	"github.com/raaihank/data-sentinel/internal/detect"
	"github.com/raaihank/data-sentinel/internal/logger"
	"github.com/raaihank/data-sentinel/internal/pipeline"
	"github.com/raaihank/data-sentinel/internal/policy"
)

func main() {
	var (
		policyRef  = flag.String("policy", "gdpr", "Builtin policy name or path to a policy file")
		inputFile  = flag.String("input", "", "Input file (default: stdin)")
		outputFile = flag.String("output", "", "Output file (default: stdout)")
		auditFile  = flag.String("audit", "", "Audit trail file (JSONL); empty disables the trail")
		dataset    = flag.String("dataset", "", "Dataset name for policy resolution")
		role       = flag.String("role", "", "Role for policy resolution")
		records    = flag.Bool("records", false, "Treat each input line as a JSON record instead of text")
		logLevel   = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --policy pci --input logs.txt --audit audit.jsonl\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat export.jsonl | %s --policy policy.yaml --records --dataset customers\n", os.Args[0])
	}
	flag.Parse()

	log, err := logger.New(logger.Config{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	model, err := loadPolicy(*policyRef)
	if err != nil {
		log.Fatal("Failed to load policy", zap.String("policy", *policyRef), zap.Error(err))
	}

	var sink audit.Sink
	if *auditFile != "" {
		jsonl, err := audit.NewJSONLSink(*auditFile, log)
		if err != nil {
			log.Fatal("Failed to open audit file", zap.Error(err))
		}
		defer jsonl.Close()
		sink = jsonl
	}

	orch := pipeline.New(
		detect.DefaultRegistry(log),
		policy.NewStore(model, log),
		sink,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received, stopping")
		cancel()
	}()

	in, out, err := openStreams(*inputFile, *outputFile)
	if err != nil {
		log.Fatal("Failed to open streams", zap.Error(err))
	}
	defer in.Close()
	defer out.Close()

	rctx := policy.Context{Dataset: *dataset, Role: *role}
	lines, findings, err := run(ctx, orch, in, out, rctx, *records)
	if err != nil {
		log.Fatal("Scrub failed", zap.Error(err))
	}
	log.Info("Scrub complete",
		zap.Int("lines", lines),
		zap.Int("findings", findings),
		zap.String("policy", model.Fingerprint()))
}

func loadPolicy(ref string) (*policy.Model, error) {
	if policy.IsBuiltin(ref) {
		return policy.Builtin(ref)
	}
	return policy.Load(ref)
}

func openStreams(inputFile, outputFile string) (io.ReadCloser, io.WriteCloser, error) {
	in := io.NopCloser(os.Stdin)
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		in = f
	}

	var out io.WriteCloser = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			in.Close()
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		out = f
	}
	return in, out, nil
}

func run(ctx context.Context, orch *pipeline.Orchestrator, in io.Reader, out io.Writer, rctx policy.Context, asRecords bool) (lines, findings int, err error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return lines, findings, err
		}
		line := scanner.Text()
		lines++

		if asRecords {
			if strings.TrimSpace(line) == "" {
				fmt.Fprintln(writer)
				continue
			}
			var record map[string]string
			if err := json.Unmarshal([]byte(line), &record); err != nil {
				return lines, findings, fmt.Errorf("line %d: bad record: %w", lines, err)
			}
			result, err := orch.ProcessRecord(ctx, record, rctx)
			if err != nil {
				return lines, findings, fmt.Errorf("line %d: %w", lines, err)
			}
			findings += len(result.Entries)
			encoded, err := json.Marshal(result.Record)
			if err != nil {
				return lines, findings, err
			}
			fmt.Fprintln(writer, string(encoded))
			continue
		}

		result, err := orch.ProcessText(ctx, line, rctx)
		if err != nil {
			return lines, findings, fmt.Errorf("line %d: %w", lines, err)
		}
		findings += len(result.Entries)
		fmt.Fprintln(writer, result.Output)
	}
	return lines, findings, scanner.Err()
}
