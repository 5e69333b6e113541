package commands

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marmos91/coopfs/internal/cli/output"
	"github.com/marmos91/coopfs/internal/cli/prompt"
	"github.com/marmos91/coopfs/internal/cli/timeutil"
	"github.com/marmos91/coopfs/pkg/cooplock/fsck"
	"github.com/marmos91/coopfs/pkg/metrics/prometheus"
)

var (
	fsckRollForward bool
	fsckRollBack    bool
	fsckPrefix      string
	fsckOperationID string
	fsckTimeout     time.Duration
	fsckCheck       bool
	fsckYes         bool
	fsckOutput      string
)

var fsckCmd = &cobra.Command{
	Use:   "fsck <bucket-uri>",
	Short: "Repair abandoned directory operations",
	Long: `Scan a bucket's lock directory for journals whose lease has expired and
repair the operations they describe.

Exactly one repair direction is required. --rollForward completes
interrupted operations: remaining deletes are finished, and renames have
their missing copies completed before the sources are removed.
--rollBack undoes interrupted operations where that is still safe: a
rename that has not finished copying has its destination items removed.
Deletes and renames that already passed their copy checkpoint cannot
roll back; such journals are reported and skipped, and the run exits
non-zero so the conflict is not silently dropped.

Journals whose lease is still fresh belong to operations that may simply
be slow. They are never touched. The staleness threshold comes from the
lock.expiration_timeout configuration key; --expirationTimeout overrides
it, and an explicit --expirationTimeout=0 treats every lease as expired.

Repair deletes objects. Interactive runs ask for confirmation first;
non-interactive runs must pass --yes. Use --check to see what a run
would do without touching anything.

Examples:
  # Report what a roll-forward would repair, without mutating
  coopfs fsck s3://backups --rollForward --check

  # Complete every abandoned operation under photos/
  coopfs fsck s3://backups --rollForward --prefixFilter photos/ --yes

  # Undo one specific interrupted rename
  coopfs fsck gs://media --rollBack --operationId 1f2e3a4b-... --yes

  # A machine-failover cleanup: everything is known dead, repair it all
  coopfs fsck s3://backups --rollForward --expirationTimeout 0 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runFsck,
}

func init() {
	fsckCmd.Flags().BoolVar(&fsckRollForward, "rollForward", false, "Complete interrupted operations")
	fsckCmd.Flags().BoolVar(&fsckRollBack, "rollBack", false, "Undo interrupted operations where safe")
	fsckCmd.Flags().StringVar(&fsckPrefix, "prefixFilter", "", "Only repair operations whose paths fall under this prefix")
	fsckCmd.Flags().StringVar(&fsckOperationID, "operationId", "", "Only repair the operation with this id")
	fsckCmd.Flags().DurationVar(&fsckTimeout, "expirationTimeout", 0, "Override the configured lease staleness threshold (0 treats every lease as expired)")
	fsckCmd.Flags().BoolVar(&fsckCheck, "check", false, "Report what would be repaired without mutating anything")
	fsckCmd.Flags().BoolVarP(&fsckYes, "yes", "y", false, "Skip the confirmation prompt")
	fsckCmd.Flags().StringVarP(&fsckOutput, "output", "o", "table", "Output format (table|json|yaml)")

	fsckCmd.MarkFlagsMutuallyExclusive("rollForward", "rollBack")
}

func runFsck(cmd *cobra.Command, args []string) error {
	if !fsckRollForward && !fsckRollBack {
		return fmt.Errorf("a repair direction is required: pass --rollForward or --rollBack")
	}
	direction := fsck.RollForward
	if fsckRollBack {
		direction = fsck.RollBack
	}

	format, err := output.ParseFormat(fsckOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	st, uri, err := openBucket(ctx, args[0], cfg)
	if err != nil {
		return err
	}

	if !fsckCheck && !fsckYes {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("repair deletes objects and needs confirmation: re-run with --yes")
		}
		confirmed, err := prompt.Confirm(fmt.Sprintf("Repair abandoned operations in %s (%s)?", uri, direction), false)
		if err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("\nAborted.")
				return nil
			}
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	stopMetrics := startMetrics(ctx, cfg)
	defer stopMetrics()

	timeout := cfg.Lock.ExpirationTimeout
	if cmd.Flags().Changed("expirationTimeout") {
		timeout = fsckTimeout
	}

	engine, err := fsck.New(fsck.Config{
		Store:             st,
		LockDir:           cfg.Lock.Dir,
		ExpirationTimeout: timeout,
		PrefixFilter:      fsckPrefix,
		OperationID:       fsckOperationID,
		Check:             fsckCheck,
		Metrics:           prometheus.NewRepairMetrics(),
	})
	if err != nil {
		return err
	}

	report, err := engine.Run(ctx, direction)
	if err != nil {
		return err
	}

	if err := printReport(format, report); err != nil {
		return err
	}

	if !report.Ok() {
		unresolved := report.Count(fsck.StatusSkippedUnsafe) +
			report.Count(fsck.StatusMalformed) +
			report.Count(fsck.StatusFailed)
		return fmt.Errorf("repair incomplete: %d of %d journal entries unresolved", unresolved, len(report.Entries))
	}
	return nil
}

// reportEntries renders the per-journal outcomes as a table.
type reportEntries []fsck.Entry

// Headers implements TableRenderer.
func (e reportEntries) Headers() []string {
	return []string{"OPERATION", "KIND", "RESOURCE", "STATUS", "AGE", "ITEMS", "DETAIL"}
}

// Rows implements TableRenderer.
func (e reportEntries) Rows() [][]string {
	rows := make([][]string, 0, len(e))
	for _, entry := range e {
		id := entry.OperationID
		age := "-"
		if id == "" {
			// Foreign objects have no parsed name: show the offending key.
			id = entry.Key
		} else {
			age = timeutil.FormatDuration(entry.Age)
		}
		rows = append(rows, []string{
			id,
			dashIfEmpty(string(entry.Kind)),
			dashIfEmpty(entry.Resource),
			string(entry.Status),
			age,
			strconv.Itoa(entry.Items),
			dashIfEmpty(entry.Detail),
		})
	}
	return rows
}

func printReport(format output.Format, report *fsck.Report) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, report)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, report)
	}

	if len(report.Entries) == 0 {
		fmt.Printf("No journal entries found in %s.\n", report.Bucket)
		return nil
	}

	if err := output.PrintTable(os.Stdout, reportEntries(report.Entries)); err != nil {
		return err
	}
	fmt.Println()

	repairedLabel := "Repaired"
	if report.Check {
		repairedLabel = "Would repair"
	}
	repaired := report.Count(fsck.StatusRepaired) + report.Count(fsck.StatusWouldRepair)

	pairs := [][2]string{
		{"Bucket", report.Bucket},
		{"Direction", string(report.Direction)},
		{"Scanned", strconv.Itoa(len(report.Entries))},
		{repairedLabel, strconv.Itoa(repaired)},
	}
	pairs = appendCount(pairs, "Fresh leases", report.Count(fsck.StatusSkippedFresh))
	pairs = appendCount(pairs, "Unsafe direction", report.Count(fsck.StatusSkippedUnsafe))
	pairs = appendCount(pairs, "Malformed", report.Count(fsck.StatusMalformed))
	pairs = appendCount(pairs, "Lost races", report.Count(fsck.StatusLostRace))
	pairs = appendCount(pairs, "Foreign objects", report.Count(fsck.StatusForeign))
	pairs = appendCount(pairs, "Failed", report.Count(fsck.StatusFailed))
	pairs = append(pairs, [2]string{"Duration", report.Duration.Round(time.Millisecond).String()})

	return output.SimpleTable(os.Stdout, pairs)
}

// appendCount adds a summary row only when there is something to count.
func appendCount(pairs [][2]string, label string, n int) [][2]string {
	if n == 0 {
		return pairs
	}
	return append(pairs, [2]string{label, strconv.Itoa(n)})
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
