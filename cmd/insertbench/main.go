// Command insertbench drives a synthetic relation through one of the three
// insert-destination policies (chosen with --policy) from concurrent
// workers, printing a seal trace and a final summary. It exists to exercise insertdest end to end
// the way a real query-execution worker pool would, without depending on a
// query optimizer or a real storage engine.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"insertdest/bus"
	"insertdest/insertdest"
	"insertdest/metrics"
	"insertdest/relation"
	"insertdest/storagemgr"
)

var (
	policyFlag   string
	workers      int
	tuplesEach   int
	partitions   int
	foremanTrace bool
)

var rootCmd = &cobra.Command{
	Use:   "insertbench",
	Short: "drive a synthetic relation through the insert-destination policies",
	Long:  ``,
	RunE:  runBench,
}

func main() {
	rootCmd.Flags().StringVarP(&policyFlag, "policy", "p", "always-create",
		"policy to exercise: always-create, block-pool, or partition-aware")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of concurrent inserting workers")
	rootCmd.Flags().IntVarP(&tuplesEach, "tuples", "t", 2000, "tuples inserted by each worker")
	rootCmd.Flags().IntVar(&partitions, "partitions", 4, "partition count, for partition-aware only")
	rootCmd.Flags().BoolVar(&foremanTrace, "trace", true, "print a colored trace of each sealed block")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBench(cmd *cobra.Command, args []string) error {
	const relationID = 1
	schema := syntheticSchema(relationID, partitions)

	mgr := storagemgr.NewMemManager(relationID)
	transport := bus.NewChannelBus(256)
	clients := bus.NewClientMap()

	const foremanClient bus.ClientID = 0
	notifier := bus.NewNotifier(transport, clients, foremanClient, relationID, 0)

	collectors := metrics.NewCollectors(nil, "insertbench")

	dest, err := buildDestination(policyFlag, schema, mgr, notifier, collectors)
	if err != nil {
		return err
	}

	if foremanTrace {
		traceForeman(transport, foremanClient, workers)
	}

	g := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		w := w
		threadID := bus.ThreadID(w + 1)
		clients.Register(threadID, bus.ClientID(w+1))

		g.Go(func() error {
			defer clients.Unregister(threadID)
			return runWorker(dest, threadID, w, schema)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	touched := dest.GetTouchedBlocks()
	color.Green("done: %d blocks sealed across %d workers (%d tuples each)",
		len(touched), workers, tuplesEach)
	return nil
}

func buildDestination(policy string, schema *relation.Schema, mgr storagemgr.StorageManager, notifier *bus.Notifier, collectors *metrics.Collectors) (*insertdest.Destination, error) {
	opts := []insertdest.Option{insertdest.WithRecorder(collectors)}
	switch policy {
	case "always-create":
		return insertdest.NewAlwaysCreate(schema, nil, mgr, notifier, 0, opts...), nil
	case "block-pool":
		return insertdest.NewBlockPool(schema, nil, mgr, notifier, 0, opts...), nil
	case "partition-aware":
		return insertdest.NewPartitionAware(schema, nil, mgr, notifier, 0, opts...)
	default:
		return nil, fmt.Errorf("unknown policy %q", policy)
	}
}

func runWorker(dest *insertdest.Destination, threadID bus.ThreadID, workerIdx int, schema *relation.Schema) error {
	for i := 0; i < tuplesEach; i++ {
		t := relation.Tuple{Values: []any{int64(workerIdx*tuplesEach + i), fmt.Sprintf("row-%d-%d", workerIdx, i)}}
		if err := dest.InsertTuple(threadID, t); err != nil {
			return fmt.Errorf("worker %d: %w", workerIdx, err)
		}
	}
	return nil
}

func traceForeman(transport *bus.ChannelBus, foremanClient bus.ClientID, numWorkers int) {
	for w := 0; w < numWorkers; w++ {
		lane := transport.Receive(bus.ClientID(w+1), foremanClient)
		go func(lane <-chan bus.TaggedMessage) {
			for msg := range lane {
				color.Cyan("sealed block %d (relation %d, operator %d)",
					msg.Payload.BlockID, msg.Payload.RelationID, msg.Payload.OperatorIndex)
			}
		}(lane)
	}
}

func syntheticSchema(relationID uint32, numPartitions int) *relation.Schema {
	attrs := []relation.Attribute{
		{Name: "id", Type: relation.AttributeTypeLong},
		{Name: "payload", Type: relation.AttributeTypeVarChar},
	}
	return &relation.Schema{
		RelationID:    relationID,
		Name:          "bench_relation",
		Attributes:    attrs,
		DefaultLayout: relation.Layout{Name: "default", MaxTuples: 400},
		PartitionInfo: &relation.PartitionInfo{
			Attribute: "id",
			Count:     numPartitions,
			Scheme:    relation.NewHashPartitionScheme(numPartitions),
		},
	}
}
