package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glucotrack/internal/core"
	"glucotrack/internal/ident"
	"glucotrack/pkg/domain"
)

// parseTime accepts RFC 3339 or a bare date. Empty input yields the zero
// timestamp so the repository default applies.
func parseTime(raw string) (ident.Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ident.Timestamp{}, nil
	}
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		return ident.TimestampOf(d), nil
	}
	return ident.ParseTimestamp(raw)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newSummaryCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "summary USER_ID",
		Short: "Summarise a user's recent readings, estimates and lab results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			summary, ok, err := svc.Summary(commandContext(cmd), args[0], days)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %s not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().IntVar(&days, "days", core.DefaultSummaryWindow, "Days of readings to include")
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	var name string
	add := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Register a user, or print the existing one for EMAIL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			user, _, err := svc.Users().Register(commandContext(cmd), core.User{Email: args[0], Name: name})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), user)
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")
	cmd.AddCommand(add)
	return cmd
}

type readingOptions struct {
	User  string
	Value float64
	Unit  string
	At    string
	Meal  string
	Notes string
}

func newReadingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "reading", Short: "Record and list glucose readings"}

	opts := &readingOptions{}
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a glucose reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			unit := core.GlucoseUnit(opts.Unit)
			if !unit.Valid() {
				return fmt.Errorf("unknown unit %q", opts.Unit)
			}
			value := opts.Value
			if unit == core.UnitMmolL {
				value = core.ToMgDL(value)
			}
			ts, err := parseTime(opts.At)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			reading, err := svc.Readings().Record(commandContext(cmd), core.GlucoseReading{
				UserID:      opts.User,
				Value:       value,
				Timestamp:   ts,
				MealContext: core.MealContext(opts.Meal),
				Notes:       optionalString(opts.Notes),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reading)
		},
	}
	add.Flags().StringVar(&opts.User, "user", "", "User id")
	add.Flags().Float64Var(&opts.Value, "value", 0, "Glucose value")
	add.Flags().StringVar(&opts.Unit, "unit", string(core.UnitMgDL), "Unit of --value (mg/dL|mmol/L)")
	add.Flags().StringVar(&opts.At, "at", "", "Time taken, RFC 3339 or YYYY-MM-DD (default now)")
	add.Flags().StringVar(&opts.Meal, "meal", "", "Meal context (fasting|before_meal|after_meal|bedtime|random)")
	add.Flags().StringVar(&opts.Notes, "notes", "", "Free-form notes")

	var from, to string
	var days int
	list := &cobra.Command{
		Use:   "list USER_ID",
		Short: "List a user's readings, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := core.DateRange{}
			if days > 0 {
				rng = core.LastDays(time.Now(), days)
			}
			start, err := parseTime(from)
			if err != nil {
				return err
			}
			end, err := parseTime(to)
			if err != nil {
				return err
			}
			if !start.IsZero() {
				rng.From = start.Time
			}
			if !end.IsZero() {
				rng.To = end.Time
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			readings, err := svc.Readings().FindByUser(commandContext(cmd), args[0], rng)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), readings)
		},
	}
	list.Flags().StringVar(&from, "from", "", "Earliest timestamp (inclusive)")
	list.Flags().StringVar(&to, "to", "", "Latest timestamp (inclusive)")
	list.Flags().IntVar(&days, "days", 0, "Only the last N days")

	cmd.AddCommand(add, list)
	return cmd
}

type runOptions struct {
	User     string
	Name     string
	Start    string
	End      string
	Notes    string
	Readings []string
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "run", Short: "Group readings into runs and estimate A1C"}

	opts := &runOptions{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a run and attach readings to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseTime(opts.Start)
			if err != nil {
				return err
			}
			end, err := parseTime(opts.End)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			run, missing, err := svc.Runs().CreateWithReadings(commandContext(cmd), core.GlucoseRun{
				UserID:    opts.User,
				Name:      opts.Name,
				StartDate: start,
				EndDate:   end,
				Notes:     optionalString(opts.Notes),
			}, opts.Readings)
			if err != nil {
				return err
			}
			for _, id := range missing {
				fmt.Fprintf(cmd.ErrOrStderr(), "reading %s not attached: missing or owned by another user\n", id)
			}
			return writeJSON(cmd.OutOrStdout(), run)
		},
	}
	create.Flags().StringVar(&opts.User, "user", "", "User id")
	create.Flags().StringVar(&opts.Name, "name", "", "Run name")
	create.Flags().StringVar(&opts.Start, "start", "", "Start date, RFC 3339 or YYYY-MM-DD")
	create.Flags().StringVar(&opts.End, "end", "", "End date, RFC 3339 or YYYY-MM-DD")
	create.Flags().StringVar(&opts.Notes, "notes", "", "Free-form notes")
	create.Flags().StringSliceVar(&opts.Readings, "reading", nil, "Reading ids to attach (repeatable or comma-separated)")

	summarize := &cobra.Command{
		Use:   "summarize RUN_ID",
		Short: "Average a run's readings and record an A1C estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			summary, ok, err := svc.Runs().Summarize(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run %s not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.AddCommand(create, summarize)
	return cmd
}

func newLabCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "lab", Short: "Record laboratory A1C results"}
	var (
		user, at, lab, notes string
		value                float64
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a lab A1C percentage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			measured, err := parseTime(at)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			result, err := svc.LabResults().Record(commandContext(cmd), core.LabResult{
				UserID:     user,
				Value:      value,
				MeasuredAt: measured,
				Laboratory: optionalString(lab),
				Notes:      optionalString(notes),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	add.Flags().StringVar(&user, "user", "", "User id")
	add.Flags().Float64Var(&value, "value", 0, "A1C percentage")
	add.Flags().StringVar(&at, "at", "", "Measurement time, RFC 3339 or YYYY-MM-DD (default now)")
	add.Flags().StringVar(&lab, "lab", "", "Laboratory name")
	add.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.AddCommand(add)
	return cmd
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "prefs", Short: "Show and change user preferences"}

	show := &cobra.Command{
		Use:   "show USER_ID",
		Short: "Print a user's preferences (defaults when unset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			prefs, err := svc.Preferences().ForUser(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), prefs)
		},
	}

	var (
		unit, tz  string
		low, high float64
		reminders bool
	)
	set := &cobra.Command{
		Use:   "set USER_ID",
		Short: "Change the flags given; other settings are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			prefs, err := svc.Preferences().Upsert(commandContext(cmd), args[0], func(p *core.UserPreferences) error {
				if flags.Changed("unit") {
					p.GlucoseUnit = domain.GlucoseUnit(unit)
				}
				if flags.Changed("low") {
					p.TargetLow = low
				}
				if flags.Changed("high") {
					p.TargetHigh = high
				}
				if flags.Changed("timezone") {
					p.Timezone = tz
				}
				if flags.Changed("reminders") {
					p.RemindersEnabled = reminders
				}
				return nil
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), prefs)
		},
	}
	set.Flags().StringVar(&unit, "unit", "", "Display unit (mg/dL|mmol/L)")
	set.Flags().Float64Var(&low, "low", 0, "Target range low, mg/dL")
	set.Flags().Float64Var(&high, "high", 0, "Target range high, mg/dL")
	set.Flags().StringVar(&tz, "timezone", "", "IANA timezone")
	set.Flags().BoolVar(&reminders, "reminders", false, "Enable reminders")

	cmd.AddCommand(show, set)
	return cmd
}
