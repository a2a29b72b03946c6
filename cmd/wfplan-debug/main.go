// Command wfplan-debug reads a MongoDB aggregation pipeline as JSON,
// compiles it, and prints the resulting task tree. It exists for
// inspecting what a pipeline lowers to without wiring up a runtime.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	wf "github.com/arrowdb/wfplan"
	"github.com/arrowdb/wfplan/planio"
)

func main() {
	pipelineFlag := flag.String("pipeline", "", "aggregation pipeline JSON array to compile")
	collFlag := flag.String("collection", "docs", "name of the collection the pipeline reads from")
	debugFlag := flag.Bool("debug", false, "print the op graph's debug tree instead of the compiled task")
	noPruneFlag := flag.Bool("no-prune", false, "disable unused-field pruning before compiling")
	flag.Parse()

	var jsonStr string
	if *pipelineFlag != "" {
		jsonStr = *pipelineFlag
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error reading stdin: %v\n", err)
				os.Exit(1)
			}
			jsonStr = string(raw)
		} else {
			fmt.Fprintln(os.Stderr, `Usage: wfplan-debug -pipeline '[{"$match": {"age": {"$gte": 18}}}]' OR echo '[...]' | wfplan-debug`)
			os.Exit(1)
		}
	}

	jsonStr = strings.TrimSpace(jsonStr)
	if jsonStr == "" {
		fmt.Fprintln(os.Stderr, "no pipeline provided")
		os.Exit(1)
	}

	op, err := planio.DecodePipeline(wf.NewCollection(*collFlag), []byte(jsonStr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode error: %v\n", err)
		os.Exit(1)
	}

	if *debugFlag {
		out, err := planio.EncodeOpDebug(op)
		if err != nil {
			fmt.Fprintf(os.Stderr, "render error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	task, err := wf.Compile(op, wf.WithFieldPruning(!*noPruneFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "compile error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(planio.EncodeTask(task))
}
