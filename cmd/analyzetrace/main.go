// analyzetrace distills a Chrome-Trace-Event-Format trace from a
// type-checking compiler's profiling mode into a tree of compilation
// hot spots.
//
// usage:
//
//	$ analyzetrace trace.json [types.json] [flags]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"trace-hotspots/internal/position"
	"trace-hotspots/internal/render"
	"trace-hotspots/internal/span"
	"trace-hotspots/internal/spantree"
	"trace-hotspots/internal/traceevent"
	"trace-hotspots/internal/types"
	"trace-hotspots/internal/typetree"
)

const (
	exitSuccess     = 0
	exitUsage       = 1
	exitTraceMissing = 2
	exitTypesMissing = 3
)

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("analyzetrace", flag.ContinueOnError)
	jsonPath := fs.String("json", "", "write the final printable tree as JSON to this path")
	thresholdDuration := fs.Int64("thresholdDuration", 500000, "absolute duration (microseconds) that alone promotes a span")
	minDuration := fs.Int64("minDuration", 100000, "minimum duration (microseconds) for a span to be retained at all")
	minPercentage := fs.Float64("minPercentage", 0.6, "fraction of a parent's duration that promotes a span")
	stats := fs.Bool("stats", false, "print summary statistics instead of the hot-spot tree")
	fs.SetOutput(stdout)

	// flag stops at the first positional argument, so parse again after
	// each one to accept flags before, between and after the paths.
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return exitUsage
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}
	if len(positional) < 1 {
		fmt.Fprintln(stdout, "usage: analyzetrace trace_path [types_path] [flags]")
		return exitUsage
	}
	if *minPercentage <= 0 || *minPercentage > 1 {
		fmt.Fprintln(stdout, "--minPercentage must be in (0, 1]")
		return exitUsage
	}

	tracePath := positional[0]
	typesPath := ""
	if len(positional) >= 2 {
		typesPath = positional[1]
	}

	runID := uuid.New().String()
	runLogger := log.With(logger, "run", runID)

	traceFile, err := os.Open(tracePath)
	if err != nil {
		level.Error(runLogger).Log("msg", "trace file missing", "path", tracePath, "err", err)
		return exitTraceMissing
	}
	defer traceFile.Close()

	result, err := traceevent.Ingest(traceFile, span.Micros(*minDuration), runLogger)
	if err != nil {
		level.Error(runLogger).Log("msg", "malformed trace", "err", err)
		return 10
	}
	if result.Warnings != nil {
		level.Warn(runLogger).Log("msg", "ingestion warnings", "warnings", result.Warnings.Error())
	}

	root := spantree.Build(result, spantree.Params{
		ThresholdDuration: span.Micros(*thresholdDuration),
		MinPercentage:     *minPercentage,
	})

	if typesPath != "" {
		typesFile, err := os.Open(typesPath)
		if err != nil {
			level.Error(runLogger).Log("msg", "types file missing", "path", typesPath, "err", err)
			return exitTypesMissing
		}
		table, err := types.Load(typesFile)
		typesFile.Close()
		if err != nil {
			level.Warn(runLogger).Log("msg", "malformed types file, continuing without it", "err", err)
		}
		typetree.Attach(root, table)
	}

	reqs := position.Collect(root)
	positions, posWarnings := position.Normalize(reqs, openFile, runLogger)
	if posWarnings != nil {
		level.Warn(runLogger).Log("msg", "position normalization warnings", "warnings", posWarnings.Error())
	}

	nodes := render.Build(root, positions)

	if *stats {
		printStats(stdout, runID, result, nodes)
		return exitSuccess
	}

	if *jsonPath != "" {
		if err := writeJSON(*jsonPath, runID, nodes); err != nil {
			level.Error(runLogger).Log("msg", "writing json output", "err", err)
			return 11
		}
	}

	thresholdMs := *thresholdDuration / 1000
	warnMs := *minDuration / 1000
	if err := render.WriteASCII(stdout, nodes, thresholdMs, warnMs); err != nil {
		level.Error(runLogger).Log("msg", "writing tree", "err", err)
		return 12
	}
	return exitSuccess
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type jsonNode struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	TerseMessage string      `json:"terseMessage"`
	Time         string      `json:"time"`
	Start        *jsonPoint  `json:"start,omitempty"`
	End          *jsonPoint  `json:"end,omitempty"`
	Children     []*jsonNode `json:"children"`
}

type jsonPoint struct {
	File   string `json:"file"`
	Offset int64  `json:"offset"`
}

func toJSONNode(n *render.Node) *jsonNode {
	out := &jsonNode{
		Type:         n.Kind,
		Message:      n.Message,
		TerseMessage: n.TerseMessage,
		Time:         fmt.Sprintf("%dms", n.Milliseconds),
	}
	if n.Start != nil {
		out.Start = &jsonPoint{File: n.Start.File, Offset: n.Start.Offset}
	}
	if n.End != nil {
		out.End = &jsonPoint{File: n.End.File, Offset: n.End.Offset}
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, toJSONNode(child))
	}
	return out
}

func writeJSON(path, runID string, nodes []*render.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating json output %q: %w", path, err)
	}
	defer f.Close()

	out := make([]*jsonNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toJSONNode(n))
	}
	payload := struct {
		Run  string      `json:"run"`
		Tree []*jsonNode `json:"tree"`
	}{Run: runID, Tree: out}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func printStats(w io.Writer, runID string, result *traceevent.ParseResult, nodes []*render.Node) {
	var countNodes func(n []*render.Node) int
	countNodes = func(n []*render.Node) int {
		total := len(n)
		for _, c := range n {
			total += countNodes(c.Children)
		}
		return total
	}

	fmt.Fprintf(w, "run: %s\n", runID)
	fmt.Fprintf(w, "trace range: [%d, %d] microseconds\n", result.MinTime, result.MaxTime)
	fmt.Fprintf(w, "spans retained at minDuration: %d\n", len(result.Spans))
	fmt.Fprintf(w, "unclosed begin-events: %d\n", len(result.UnclosedStack))
	fmt.Fprintf(w, "hot spots: %d\n", countNodes(nodes))
}
