package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens"
)

var (
	analyzeFocus    []string
	analyzeName     string
	analyzeAppID    string
	analyzeAppName  string
	analyzeStore    bool
	analyzeOutput   string
	analyzeNoCache  bool
	analyzeInclude  []string
	analyzeExclude  []string
	analyzeMaxSize  int64
	analyzeMeta     []string
	analyzeSkipArch bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [dir]",
	Short: "Analyze a repository and produce a quality report",
	Long: `Collects the source files under a directory, runs one LLM pass per
focus area, maps the architecture, and writes a markdown report. The
report is stored for search unless --store=false.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringSliceVar(&analyzeFocus, "focus", nil, "focus areas (logging, availability, error_handling; default all)")
	f.StringVar(&analyzeName, "name", "", "project name (defaults to the directory name)")
	f.StringVar(&analyzeAppID, "app-id", "", "stable application id so re-runs replace stored reports")
	f.StringVar(&analyzeAppName, "app-name", "", "application display name")
	f.BoolVar(&analyzeStore, "store", true, "persist the report for search")
	f.StringVar(&analyzeOutput, "output", "", "report output directory (empty string disables the file)")
	f.BoolVar(&analyzeNoCache, "no-cache", false, "disable the LLM response cache")
	f.StringArrayVar(&analyzeInclude, "include", nil, "glob pattern to include (repeatable)")
	f.StringArrayVar(&analyzeExclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	f.Int64Var(&analyzeMaxSize, "max-size", 0, "per-file size limit in bytes")
	f.StringArrayVar(&analyzeMeta, "meta", nil, "metadata to attach as key=value (repeatable)")
	f.BoolVar(&analyzeSkipArch, "skip-arch", false, "skip the architecture map")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	meta, err := parseMeta(analyzeMeta)
	if err != nil {
		return err
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if analyzeNoCache {
		cfg.CacheSize = 0
	}
	if len(analyzeInclude) > 0 {
		cfg.Include = analyzeInclude
	}
	if len(analyzeExclude) > 0 {
		cfg.Exclude = analyzeExclude
	}
	if analyzeMaxSize > 0 {
		cfg.MaxFileSize = analyzeMaxSize
	}

	eng, err := repolens.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	opts := []repolens.AnalyzeOption{repolens.WithStore(analyzeStore)}
	if len(analyzeFocus) > 0 {
		opts = append(opts, repolens.WithFocusAreas(analyzeFocus...))
	}
	if analyzeName != "" {
		opts = append(opts, repolens.WithProjectName(analyzeName))
	}
	if analyzeAppID != "" {
		opts = append(opts, repolens.WithAppID(analyzeAppID))
	}
	if analyzeAppName != "" {
		opts = append(opts, repolens.WithAppName(analyzeAppName))
	}
	if cmd.Flags().Changed("output") {
		opts = append(opts, repolens.WithOutputDir(analyzeOutput))
	}
	if len(meta) > 0 {
		opts = append(opts, repolens.WithMetadata(meta))
	}
	if analyzeSkipArch {
		opts = append(opts, repolens.WithoutArchitectureMap())
	}

	rep, err := eng.Analyze(cmd.Context(), args[0], opts...)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	cmd.Printf("Analyzed %s\n\n", rep.AppName)
	cmd.Printf("  App ID:  %s\n", rep.AppID)
	cmd.Printf("  Areas:   %s\n", strings.Join(rep.FocusAreas, ", "))
	if rep.ReportPath != "" {
		cmd.Printf("  Report:  %s\n", rep.ReportPath)
	}
	if rep.Stored {
		cmd.Printf("  Stored:  %s (%d chunks)\n", rep.DocID, rep.Chunks)
	} else {
		cmd.Println("  Stored:  no")
	}
	return nil
}

func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --meta %q, want key=value", pair)
		}
		meta[k] = v
	}
	return meta, nil
}
