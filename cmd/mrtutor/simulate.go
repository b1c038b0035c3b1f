package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavelanni/mrtutor/internal/activity"
	appI18n "github.com/pavelanni/mrtutor/internal/i18n"
	"github.com/pavelanni/mrtutor/internal/report"
	"github.com/pavelanni/mrtutor/internal/simulate"
	"github.com/pavelanni/mrtutor/internal/store"
)

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a scripted learner through the activity",
		Long: "Play a scripted learner through the activity and print the graded reports.\n" +
			"Built-in profiles: " + strings.Join(simulate.Builtin(), ", ") + ". Any other value is read as a YAML file.",
		RunE: runSimulate,
	}
	f := cmd.Flags()
	f.StringP("profile", "p", "ideal", "Built-in profile name or YAML profile file")
	f.Uint64("seed", 0, "Random seed for the resistors (0 picks one from the clock)")
	f.IntP("tries", "n", 1, "Number of consecutive tries")
	f.String("learner", "simulated", "Learner ID recorded in the log")
	f.Float64("five-band-ratio", activity.DefaultFiveBandRatio, "Share of tries using a five-band resistor")
	f.StringP("output", "o", "", "Write the session log JSON here (- for stdout, which suppresses the reports)")
	f.String("db", "", "SQLite database to store the graded attempts in (optional)")
	f.StringP("lang", "l", appI18n.DefaultLang, "Feedback language")
	addLogFlags(f)
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	p, err := simulate.Load(v.GetString("profile"))
	if err != nil {
		return err
	}

	seed := v.GetUint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	opts := simulate.Options{
		LearnerID:     v.GetString("learner"),
		Seed:          seed,
		Tries:         v.GetInt("tries"),
		FiveBandRatio: v.GetFloat64("five-band-ratio"),
	}
	if path := v.GetString("db"); path != "" {
		db, err := store.New(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		opts.Saver = db
	}

	slog.Info("simulating", "profile", p.Name, "seed", seed, "tries", opts.Tries)
	res, err := simulate.Run(ctx, p, opts)
	if err != nil {
		return fmt.Errorf("simulate %s: %w", p.Name, err)
	}

	outPath := v.GetString("output")
	if outPath != "-" {
		w := cmd.OutOrStdout()
		for i, fb := range res.Feedbacks {
			if err := report.Write(ctx, w, i+1, res.Log.Sessions[i], fb); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintln(w)
		}
	}
	if outPath == "" {
		return nil
	}

	w, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer w.Close()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Log); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
