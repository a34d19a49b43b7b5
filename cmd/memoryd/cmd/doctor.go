package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/amanmcp-labs/memoryd/internal/embed"
	"github.com/amanmcp-labs/memoryd/internal/output"
	"github.com/amanmcp-labs/memoryd/internal/store"
)

var errDoctorFailed = errors.New("one or more checks failed")

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run diagnostics to ensure memoryd can operate correctly:

  - Configuration validity
  - Data directory write permissions
  - Storage engine connectivity
  - Configured embedding model

Checks against the storage engine and embedding model do not wait for a
full index or model download; use 'memoryd serve' and the get_status tool
for runtime diagnostics once the server is up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runDoctor(ctx context.Context, cmd *cobra.Command) error {
	w := output.New(cmd.OutOrStdout())
	failed := false

	cfg, err := loadConfig()
	if err != nil {
		w.Errorf("configuration invalid: %v", err)
		return err
	}
	w.Success("configuration valid")
	w.Statusf("", "%s", cfg.String())

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		w.Errorf("cannot create data directory %s: %v", cfg.DataDir, err)
		failed = true
	} else {
		probe := filepath.Join(cfg.DataDir, ".doctor-write-check")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			w.Errorf("data directory %s is not writable: %v", cfg.DataDir, err)
			failed = true
		} else {
			_ = os.Remove(probe)
			w.Successf("data directory %s is writable", cfg.DataDir)
		}
	}

	if _, err := embed.Lookup(cfg.Model); err != nil {
		w.Errorf("unknown embedding model %q: %v", cfg.Model, err)
		failed = true
	} else {
		w.Successf("embedding model %q is recognized", cfg.Model)
	}

	st, err := store.Open(ctx, store.Options{Path: cfg.StoreDir()})
	if err != nil {
		w.Errorf("cannot open storage engine: %v", err)
		failed = true
	} else {
		defer st.Close()
		if err := st.Ping(); err != nil {
			w.Errorf("storage engine ping failed: %v", err)
			failed = true
		} else {
			w.Successf("storage engine reachable at %s", cfg.StoreDir())
		}
	}

	w.Newline()
	if failed {
		w.Error("one or more checks failed")
		return errDoctorFailed
	}
	w.Success("all checks passed")
	return nil
}
