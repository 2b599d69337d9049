// Package cli holds the epwtool command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"epw-platform/internal/calendar"
	"epw-platform/internal/epw"
	"epw-platform/internal/models"
	"epw-platform/internal/services"
	"epw-platform/internal/timeseries"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// Version is reported by the version command.
const Version = "1.0.0"

type app struct {
	strict   bool
	logLevel string

	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func (a *app) load(path string) (*epw.File, error) {
	opts := []epw.Option{epw.WithStoreData(), epw.WithLogger(a.logger.Zap())}
	if a.strict {
		opts = append(opts, epw.WithStrictActualYear())
	}
	return epw.Load(path, opts...)
}

// NewRoot builds the command tree. Every call returns fresh flag state.
func NewRoot() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "epwtool",
		Short: "Inspect and convert EnergyPlus weather files.",
		Long: `epwtool reads EnergyPlus weather (EPW) files and reports their header,
design conditions and ground temperatures. It extracts data or computed
time series as CSV or PNG, converts files to the WTH format and downloads
new files from remote sources.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = logging.NewStructuredLogger("epwtool", Version, logging.ParseLevel(a.logLevel))
			a.logger.SetOutput(cmd.ErrOrStderr())
			zap.ReplaceGlobals(a.logger.Zap())
			a.metrics = metrics.NewCollector("epwtool")
			return nil
		},
		DisableAutoGenTag: true,
	}
	root.PersistentFlags().BoolVar(&a.strict, "strict-actual-year", false, "reject actual-year files whose records do not cover the header period")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		versionCmd(),
		inspectCmd(a),
		seriesCmd(a),
		fieldsCmd(),
		wthCmd(a),
		designCmd(a),
		groundCmd(a),
		idfCmd(a),
		statsCmd(a),
		fetchCmd(a),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "epwtool v%s\n", Version)
		},
		DisableAutoGenTag: true,
	}
}

func inspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the header of a weather file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			data, err := f.Data()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			row := func(k string, v interface{}) { fmt.Fprintf(tw, "%s\t%v\n", k, v) }
			row("Location", strings.Join(nonEmpty(f.City(), f.StateProvinceRegion(), f.Country()), ", "))
			row("Source", f.DataSource())
			row("WMO", f.WMONumber())
			row("Latitude", f.Latitude())
			row("Longitude", f.Longitude())
			row("Time Zone", f.TimeZone())
			row("Elevation", f.Elevation())
			row("Records/Hour", f.RecordsPerHour())
			row("Start", f.StartDate().MonthDay()+" ("+f.StartDayOfWeek().String()+")")
			row("End", f.EndDate().MonthDay())
			row("Actual Year", f.IsActual())
			row("Leap Year", f.LeapYearObserved())
			if d, ok := f.DaylightSavingStartDate(); ok {
				row("DST Start", d.MonthDay())
			}
			if d, ok := f.DaylightSavingEndDate(); ok {
				row("DST End", d.MonthDay())
			}
			row("Holidays", len(f.Holidays()))
			row("Periods", len(f.TypicalExtremePeriods()))
			row("Records", len(data))
			row("Checksum", f.Checksum())
			return tw.Flush()
		},
		DisableAutoGenTag: true,
	}
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List data and computed field names",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Data fields:")
			for _, n := range epw.DataFieldNames() {
				fmt.Fprintf(out, "  %s\n", n)
			}
			fmt.Fprintln(out, "Computed fields:")
			for _, n := range epw.ComputedFieldNames() {
				fmt.Fprintf(out, "  %s\n", n)
			}
		},
		DisableAutoGenTag: true,
	}
}

func seriesCmd(a *app) *cobra.Command {
	var (
		field    string
		computed bool
		format   string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "series FILE",
		Short: "Extract one field as a time series",
		Long: `series extracts a data field, or a computed field with --computed, and
writes it as CSV, as a PNG chart or as a summary table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			get := f.GetTimeSeries
			if computed {
				get = f.GetComputedTimeSeries
			}
			ts, err := get(field)
			if err != nil {
				return err
			}

			w, done, err := outputWriter(cmd, output)
			if err != nil {
				return err
			}
			switch format {
			case "csv":
				err = ts.WriteCSV(w)
			case "png":
				err = ts.WritePNG(w, fmt.Sprintf("%s, %s", field, f.City()))
			case "summary":
				err = writeSummary(w, ts)
			default:
				err = fmt.Errorf("unknown format %q: use csv, png or summary", format)
			}
			if err == nil {
				a.metrics.RecordExport(format)
			}
			return errors.Join(err, done())
		},
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringVarP(&field, "field", "f", "Dry Bulb Temperature", "field name, see the fields command")
	cmd.Flags().BoolVar(&computed, "computed", false, "read a computed field instead of a data field")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv, png or summary")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	return cmd
}

func outputWriter(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	out, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return out, out.Close, nil
}

func writeSummary(w io.Writer, ts timeseries.TimeSeries) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Month\tCount\tMean\tMin\tMax\tStdDev\t\n")
	monthly := ts.MonthlySummaries()
	for m := calendar.Jan; m <= calendar.Dec; m++ {
		s, ok := monthly[m]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t\n", m, s.Count, s.Mean, s.Min, s.Max, s.StdDev)
	}
	s := ts.Summary()
	fmt.Fprintf(tw, "Year\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t\n", s.Count, s.Mean, s.Min, s.Max, s.StdDev)
	return tw.Flush()
}

func wthCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "wth FILE OUTPUT",
		Short: "Convert a weather file to WTH",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			if description == "" {
				description = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if err := f.TranslateToWthFile(args[1], description); err != nil {
				return err
			}
			a.metrics.RecordExport("wth")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
			return nil
		},
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringVar(&description, "description", "", "description line (defaults to the file name)")
	return cmd
}

func designCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "design FILE",
		Short: "Print the design conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			designs, err := f.DesignConditions()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(designs) == 0 {
				fmt.Fprintln(out, "no design conditions")
				return nil
			}
			for _, dc := range designs {
				fmt.Fprintln(out, dc.TitleOfDesignCondition())
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, name := range epw.DesignFieldNames() {
					v, ok, err := dc.GetFieldByName(name)
					if err != nil || !ok {
						continue
					}
					units, _ := dc.GetUnitsByName(name)
					fmt.Fprintf(tw, "  %s\t%g\t%s\n", name, v, units)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
		DisableAutoGenTag: true,
	}
}

func groundCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ground FILE",
		Short: "Print the monthly ground temperatures by depth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			depths, err := f.GroundTemperatureDepths()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 1, ' ', tabwriter.AlignRight)
			fmt.Fprint(tw, "Depth\t")
			for m := calendar.Jan; m <= calendar.Dec; m++ {
				fmt.Fprintf(tw, "%s\t", m)
			}
			fmt.Fprintln(tw)
			for _, d := range depths {
				fmt.Fprintf(tw, "%g\t", d.Depth())
				for _, v := range d.MonthlyTemperatures() {
					fmt.Fprintf(tw, "%.2f\t", v)
				}
				fmt.Fprintln(tw)
			}
			return tw.Flush()
		},
		DisableAutoGenTag: true,
	}
}

func idfCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "idf FILE",
		Short: "Print the Site:WeatherFile record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			record := epw.ToIdfObject(f)
			fields := record.Fields()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "OS:WeatherFile,")
			for i, v := range fields {
				sep := ","
				if i == len(fields)-1 {
					sep = ";"
				}
				fmt.Fprintf(out, "  %-24s !- %s\n", v+sep, epw.WeatherFileFieldName(i))
			}
			return nil
		},
		DisableAutoGenTag: true,
	}
}

func statsCmd(a *app) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Print monthly statistics for data or computed fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			svc := services.NewStatisticsService(nil, a.logger, a.metrics)
			stationID := models.StationID(f.Checksum())

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Field\tMonth\tCount\tMean\tMin\tMax\tStdDev\n")
			for _, field := range fields {
				rows, err := svc.ComputeMonthly(stationID, f, field)
				if errors.Is(err, epw.ErrNoData) {
					continue
				}
				if err != nil {
					return err
				}
				for _, r := range rows {
					month := "Year"
					if r.Month > 0 {
						month = calendar.MonthOfYear(r.Month).String()
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n", r.Field, month, r.Count, r.Mean, r.Min, r.Max, r.StdDev)
				}
			}
			return tw.Flush()
		},
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringSliceVarP(&fields, "field", "f", services.DefaultStatisticsFields, "fields to summarize (repeatable)")
	return cmd
}

func fetchCmd(a *app) *cobra.Command {
	var (
		dataDir string
		timeout time.Duration
		retries uint64
	)
	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Download weather files into a directory",
		Long: `fetch downloads each URL, checks that it parses as a weather file and
saves it into the data directory. Transient failures are retried.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			catalog := services.NewCatalog(services.LoadOptions{StrictActualYear: a.strict}, a.logger, a.metrics)
			fetcher := services.NewFetcher("epwtool", services.FetcherConfig{
				Timeout:    timeout,
				MaxRetries: retries,
			}, dataDir, catalog, a.logger, a.metrics)

			var errs []error
			for _, u := range args {
				station, err := fetcher.Fetch(context.Background(), u)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", u, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s, %s\t%s\n", station.ID, station.City, station.Country, station.SourcePath)
			}
			return errors.Join(errs...)
		},
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "data", "directory the files are saved into")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "per-request timeout")
	cmd.Flags().Uint64Var(&retries, "retries", 3, "retries for transient failures")
	return cmd
}
