// Command ccbench drives a synthetic account-transfer workload
// against either concurrency-control protocol and reports throughput,
// abort rate, latency percentiles, and balance reconciliation.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/olekukonko/tablewriter"
	"github.com/pingcap/log"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/cc-bench/kv/harness"
)

func main() {
	cfg, help := parseFlags()
	if help {
		pflag.Usage()
		return
	}

	logger, props, err := log.InitLogger(&log.Config{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	log.ReplaceGlobals(logger, props)
	defer log.Sync()

	log.Info("starting run",
		zap.Int("threads", cfg.Threads),
		zap.Int("txns-per-thread", cfg.TxnsPerThread),
		zap.String("protocol", cfg.Protocol))

	report, err := harness.Run(cfg)
	if err != nil {
		log.Error("run failed", zap.Error(errors.Cause(err)))
		os.Exit(1)
	}

	printReport(report)
}

func parseFlags() (harness.Config, bool) {
	var cfg harness.Config
	pflag.IntVar(&cfg.Threads, "threads", 4, "number of concurrent worker threads")
	pflag.IntVar(&cfg.TxnsPerThread, "txns-per-thread", 1000, "transactions executed per thread")
	pflag.IntVar(&cfg.TotalKeys, "total-keys", 1000, "number of account keys to seed")
	pflag.IntVar(&cfg.HotsetSize, "hotset-size", 100, "size of the hot key subrange")
	pflag.Float64Var(&cfg.HotsetProb, "hotset-prob", 0.8, "probability of sampling from the hot subrange")
	pflag.StringVar(&cfg.Protocol, "protocol", harness.ProtocolOCC, "concurrency control protocol: occ or 2pl")
	pflag.StringVar(&cfg.DBPath, "db-path", "/tmp/ccbench-db", "path to the badger data directory")
	help := pflag.BoolP("help", "h", false, "print usage and exit")
	pflag.Parse()
	return cfg, *help
}

func printReport(report *harness.Report) {
	fmt.Printf("protocol: %s   elapsed: %s\n", report.Protocol, report.Elapsed)
	fmt.Printf("balance reconciliation: initial=%d final=%d net_change=%d\n",
		report.InitialTotal, report.FinalTotal, report.NetChange)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"type", "commits", "aborts", "abort %", "throughput/s", "avg us", "p50 us", "p90 us", "p99 us"})
	for _, name := range report.Metrics.TypeNames() {
		table.Append([]string{
			name,
			fmt.Sprintf("%d", report.Metrics.Commits(name)),
			fmt.Sprintf("%d", report.Metrics.Aborts(name)),
			fmt.Sprintf("%.2f", report.Metrics.AbortPercentage(name)),
			fmt.Sprintf("%.1f", report.Metrics.Throughput(name)),
			fmt.Sprintf("%.1f", report.Metrics.AvgResponseTime(name)),
			fmt.Sprintf("%.1f", report.Metrics.Percentile(name, 50)),
			fmt.Sprintf("%.1f", report.Metrics.Percentile(name, 90)),
			fmt.Sprintf("%.1f", report.Metrics.Percentile(name, 99)),
		})
	}
	table.Render()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "overall throughput\t%.1f txn/s\n", report.Metrics.OverallThroughput())
	fmt.Fprintf(w, "overall commits\t%d\n", report.Metrics.TotalCommits())
	fmt.Fprintf(w, "overall aborts\t%d\n", report.Metrics.TotalAborts())
	w.Flush()
}
