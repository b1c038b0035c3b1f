package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavelanni/mrtutor/internal/activitylog"
	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/grader"
	appI18n "github.com/pavelanni/mrtutor/internal/i18n"
	"github.com/pavelanni/mrtutor/internal/model"
	"github.com/pavelanni/mrtutor/internal/report"
	"github.com/pavelanni/mrtutor/internal/store"
)

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade FILE...",
		Short: "Grade session logs and print the feedback",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.String("learner", "", "Learner ID to record (defaults to the one in the log)")
	f.String("db", "", "SQLite database to store the graded attempts in (optional)")
	f.String("format", "text", "Output format (text, json)")
	f.StringP("lang", "l", appI18n.DefaultLang, "Feedback language")
	addLogFlags(f)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import DIR|FILE...",
		Short: "Grade and store session logs, skipping files already imported",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "mrtutor.db", "SQLite database path")
	f.String("learner", "", "Learner ID for logs that carry none (defaults to the file name)")
	f.StringP("lang", "l", appI18n.DefaultLang, "Feedback language")
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored attempts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "mrtutor.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

// gradedTry is one graded session of a log file.
type gradedTry struct {
	Try      int                `json:"try"`
	Session  *model.Session     `json:"-"`
	Feedback *feedback.Feedback `json:"feedback"`
	Points   int                `json:"points"`
}

func runGrade(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	format := strings.ToLower(v.GetString("format"))
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	var db *store.Store
	if path := v.GetString("db"); path != "" {
		var err error
		if db, err = store.New(path); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	g := grader.New()
	out := cmd.OutOrStdout()
	stored := 0
	for _, path := range args {
		tries, err := gradeFile(ctx, g, path, v.GetString("learner"))
		if err != nil {
			return err
		}
		for _, t := range tries {
			if db != nil {
				if err := db.Save(ctx, t.Session.LearnerID, t.Session, t.Feedback); err != nil {
					return fmt.Errorf("store %s try %d: %w", path, t.Try, err)
				}
				stored++
			}
		}
		if err := printTries(ctx, out, format, path, tries); err != nil {
			return err
		}
	}
	if db != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), appI18n.Tp(ctx, "AttemptsStored", stored))
	}
	return nil
}

// gradeFile grades every session of a log file. learnerID overrides the
// learner recorded in the log when set.
func gradeFile(ctx context.Context, g *grader.Grader, path, learnerID string) ([]gradedTry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sessions, err := activitylog.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tries := make([]gradedTry, 0, len(sessions))
	for i, s := range sessions {
		if learnerID != "" {
			s.LearnerID = learnerID
		}
		fb, err := g.Grade(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("%s try %d: %w", path, i+1, err)
		}
		tries = append(tries, gradedTry{Try: i + 1, Session: s, Feedback: fb, Points: fb.Points()})
	}
	return tries, nil
}

func printTries(ctx context.Context, w io.Writer, format, path string, tries []gradedTry) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"file": path, "tries": tries})
	}
	for _, t := range tries {
		if err := report.Write(ctx, w, t.Try, t.Session, t.Feedback); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	paths, err := collectLogs(args)
	if err != nil {
		return err
	}

	g := grader.New()
	files, stored := 0, 0
	for _, path := range paths {
		n, err := importFile(ctx, db, g, path, v.GetString("learner"))
		if err != nil {
			return err
		}
		if n > 0 {
			files++
			stored += n
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), appI18n.Tp(ctx, "FilesImported", files))
	fmt.Fprintln(cmd.OutOrStdout(), appI18n.Tp(ctx, "AttemptsStored", stored))
	return nil
}

// collectLogs expands directories to the .json files below them.
func collectLogs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

// importFile grades and stores the sessions of one log file and returns
// how many were stored. Files whose content was imported before are
// skipped; malformed sessions are logged and skipped.
func importFile(ctx context.Context, db *store.Store, g *grader.Grader, path, learnerID string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return 0, fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("log unchanged, skipping", "path", path)
		return 0, nil
	}
	if storedHash != "" {
		slog.Warn("log changed since last import, skipping to avoid duplicate attempts", "path", path)
		return 0, nil
	}

	sessions, err := activitylog.Decode(data)
	if err != nil {
		slog.Warn("unreadable log, skipping", "path", path, "error", err)
		return 0, nil
	}

	stored := 0
	for i, s := range sessions {
		if s.LearnerID == "" {
			s.LearnerID = learnerID
		}
		if s.LearnerID == "" {
			s.LearnerID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		fb, err := g.Grade(ctx, s)
		if errors.Is(err, model.ErrMalformedSession) {
			slog.Warn("malformed session, skipping", "path", path, "try", i+1, "error", err)
			continue
		}
		if err != nil {
			return stored, fmt.Errorf("grade %s try %d: %w", path, i+1, err)
		}
		if err := db.Save(ctx, s.LearnerID, s, fb); err != nil {
			return stored, fmt.Errorf("store %s try %d: %w", path, i+1, err)
		}
		stored++
	}

	if err := db.SetImportedFileHash(path, hash); err != nil {
		return stored, fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported log", "path", path, "attempts", stored)
	return stored, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("export attempts: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	w, err := openOutput(v.GetString("output"))
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported attempts", "count", export.NumAttempts)
	return nil
}
