// tracehotspots-mcp exposes the trace hot-spot analysis pipeline as a
// set of MCP tools for loading and inspecting compilation traces.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	gokitlog "github.com/go-kit/log"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"trace-hotspots/internal/position"
	"trace-hotspots/internal/render"
	"trace-hotspots/internal/span"
	"trace-hotspots/internal/spantree"
	"trace-hotspots/internal/traceevent"
	"trace-hotspots/internal/types"
	"trace-hotspots/internal/typetree"
)

// loadedTrace is everything one load_trace call produces, cached
// under its run id so later tool calls can refer back to it.
type loadedTrace struct {
	tracePath string
	parse     *traceevent.ParseResult
	root      *span.Span
	positions position.Map
	nodes     []*render.Node
}

// traceCache holds every trace loaded this server's lifetime, keyed
// by run id so later tool calls can refer back to a load.
var traceCache = make(map[string]*loadedTrace)

var logger = gokitlog.NewLogfmtLogger(os.Stderr)

func main() {
	s := server.NewMCPServer(
		"trace-hotspots",
		"1.0.0",
		server.WithLogging(),
	)

	s.AddTool(loadTraceTool(), loadTraceHandler)
	s.AddTool(findHotspotsTool(), findHotspotsHandler)
	s.AddTool(getStatisticsTool(), getStatisticsHandler)
	s.AddTool(viewSpanTool(), viewSpanHandler)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func loadTraceTool() mcp.Tool {
	return mcp.NewTool("load_trace",
		mcp.WithDescription("Load a Chrome-Trace-Event-Format trace from a type-checking compiler's profiling mode and distill it into hot spots"),
		mcp.WithString("trace_path", mcp.Required(), mcp.Description("Absolute path to the trace JSON file")),
		mcp.WithString("types_path", mcp.Description("Absolute path to an optional types JSON file, for type-comparison context")),
		mcp.WithNumber("threshold_duration", mcp.Description("Absolute duration in microseconds that alone promotes a span (default 500000)")),
		mcp.WithNumber("min_duration", mcp.Description("Minimum duration in microseconds for a span to be retained at all (default 100000)")),
		mcp.WithNumber("min_percentage", mcp.Description("Fraction of a parent's duration that promotes a span (default 0.6)")),
	)
}

func loadTraceHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tracePath, err := request.RequireString("trace_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typesPath := request.GetString("types_path", "")
	thresholdDuration := span.Micros(request.GetFloat("threshold_duration", 500000))
	minDuration := span.Micros(request.GetFloat("min_duration", 100000))
	minPercentage := request.GetFloat("min_percentage", 0.6)

	traceFile, err := os.Open(tracePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening trace file: %v", err)), nil
	}
	defer traceFile.Close()

	result, err := traceevent.Ingest(traceFile, minDuration, logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parsing trace: %v", err)), nil
	}

	root := spantree.Build(result, spantree.Params{
		ThresholdDuration: thresholdDuration,
		MinPercentage:     minPercentage,
	})

	if typesPath != "" {
		typesFile, err := os.Open(typesPath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("opening types file: %v", err)), nil
		}
		table, loadErr := types.Load(typesFile)
		typesFile.Close()
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "warning: malformed types file %s: %v\n", typesPath, loadErr)
		}
		typetree.Attach(root, table)
	}

	reqs := position.Collect(root)
	positions, _ := position.Normalize(reqs, openFile, logger)
	nodes := render.Build(root, positions)

	runID := uuid.New().String()
	traceCache[runID] = &loadedTrace{
		tracePath: tracePath,
		parse:     result,
		root:      root,
		positions: positions,
		nodes:     nodes,
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Trace loaded.\n\nrun: %s\nfile: %s\nspans retained: %d\nunclosed begin-events: %d\nhot spots: %d\n\nUse find_hotspots, get_statistics or view_span with this run id.\n",
		runID, tracePath, len(result.Spans), len(result.UnclosedStack), countNodes(nodes))
	return mcp.NewToolResultText(sb.String()), nil
}

func findHotspotsTool() mcp.Tool {
	return mcp.NewTool("find_hotspots",
		mcp.WithDescription("Render the hot-spot tree for a previously loaded trace as ASCII"),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run id returned by load_trace")),
	)
}

func findHotspotsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	loaded, ok := traceCache[runID]
	if !ok {
		return mcp.NewToolResultError("unknown run id. Use load_trace first"), nil
	}

	var sb strings.Builder
	if err := render.WriteASCII(&sb, loaded.nodes, 500, 100); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func getStatisticsTool() mcp.Tool {
	return mcp.NewTool("get_statistics",
		mcp.WithDescription("Summary statistics for a previously loaded trace: time range, retained spans, unclosed begin-events, hot-spot count"),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run id returned by load_trace")),
	)
}

func getStatisticsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	loaded, ok := traceCache[runID]
	if !ok {
		return mcp.NewToolResultError("unknown run id. Use load_trace first"), nil
	}

	var sb strings.Builder
	sb.WriteString("TRACE STATISTICS\n")
	sb.WriteString("================\n\n")
	fmt.Fprintf(&sb, "file: %s\n", loaded.tracePath)
	fmt.Fprintf(&sb, "trace range: [%d, %d] microseconds\n", loaded.parse.MinTime, loaded.parse.MaxTime)
	fmt.Fprintf(&sb, "spans retained at minDuration: %d\n", len(loaded.parse.Spans))
	fmt.Fprintf(&sb, "unclosed begin-events: %d\n", len(loaded.parse.UnclosedStack))
	fmt.Fprintf(&sb, "hot spots: %d\n", countNodes(loaded.nodes))
	if loaded.parse.Warnings != nil {
		fmt.Fprintf(&sb, "\nwarnings:\n%s\n", loaded.parse.Warnings.Error())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func viewSpanTool() mcp.Tool {
	return mcp.NewTool("view_span",
		mcp.WithDescription("View one hot-spot node and its immediate children by path of child indices from the root"),
		mcp.WithString("run", mcp.Required(), mcp.Description("Run id returned by load_trace")),
		mcp.WithString("path", mcp.Description("Comma-separated child indices from the root, e.g. \"0,2\"; empty means the root's children")),
	)
}

func viewSpanHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	loaded, ok := traceCache[runID]
	if !ok {
		return mcp.NewToolResultError("unknown run id. Use load_trace first"), nil
	}

	nodes := loaded.nodes
	pathArg := request.GetString("path", "")
	var node *render.Node
	if pathArg != "" {
		for _, part := range strings.Split(pathArg, ",") {
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid path segment %q", part)), nil
			}
			if idx < 0 || idx >= len(nodes) {
				return mcp.NewToolResultError(fmt.Sprintf("index %d out of range (%d siblings)", idx, len(nodes))), nil
			}
			node = nodes[idx]
			nodes = node.Children
		}
	}

	var sb strings.Builder
	if node == nil {
		fmt.Fprintf(&sb, "root has %d children:\n", len(nodes))
	} else {
		fmt.Fprintf(&sb, "%s: %s (%dms)\n\n", node.Kind, node.Message, node.Milliseconds)
		fmt.Fprintf(&sb, "%d children:\n", len(node.Children))
	}
	for i, c := range nodes {
		fmt.Fprintf(&sb, "  [%d] %s (%dms)\n", i, c.TerseMessage, c.Milliseconds)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func countNodes(nodes []*render.Node) int {
	total := len(nodes)
	for _, n := range nodes {
		total += countNodes(n.Children)
	}
	return total
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
