package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hsk3232/DevelopProject/pkg/app"
	"github.com/hsk3232/DevelopProject/pkg/internal/report"
	"github.com/hsk3232/DevelopProject/pkg/internal/service"
)

var (
	cliUser     string
	outputPath  string
	noProgress  bool
	analyzeFlag bool

	ingestCmd = &cobra.Command{
		Use:   "ingest <file.csv>",
		Short: "upload a scan log CSV, optionally analyzing it afterwards",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze <file-id>",
		Short: "run the analysis pipeline for an ingested file and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}

			return withCore(cmd.Context(), func(core *app.Core) error {
				ctx := service.WithRuntime(cmd.Context(), core.Runtime)

				s, err := service.NewAnalysisService(ctx).Run(ctx, id, cliUser)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export <file-id>",
		Short: "write the xlsx report of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFileID(args[0])
			if err != nil {
				return err
			}

			return withCore(cmd.Context(), func(core *app.Core) error {
				f, err := core.Runtime.Repo.FindFile(cmd.Context(), id)
				if err != nil {
					return err
				}

				path := outputPath
				if path == "" {
					path = report.FileName(f)
				}

				out, err := os.Create(path)
				if err != nil {
					return err
				}
				defer out.Close()

				if err := core.Runtime.Exporter.Export(cmd.Context(), id, out); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), path)

				return nil
			})
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bootstrap 已执行迁移
			return withCore(cmd.Context(), func(core *app.Core) error {
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", core.Config.DB.GetDBType())

				return nil
			})
		},
	}
)

func runIngest(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	var r io.ReadSeeker = f
	if !noProgress {
		r = newProgressReader(f, st.Size(), cmd.ErrOrStderr())
	}

	return withCore(cmd.Context(), func(core *app.Core) error {
		ctx := service.WithRuntime(cmd.Context(), core.Runtime)

		// 后台分析会随进程退出中断，命令行改为导入后同步执行
		analyze := analyzeFlag || core.Config.Ingest.AutoAnalyze
		core.Config.Ingest.AutoAnalyze = false

		resp, err := service.NewFileService(ctx).Upload(ctx, cliUser, filepath.Base(args[0]), r, st.Size())
		if err != nil {
			return err
		}

		if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}

		if !analyze {
			return nil
		}

		s, err := service.NewAnalysisService(ctx).Run(ctx, resp.FileID, cliUser)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), s)
	})
}

// progressReader 读取时推进进度条，Seek 回到开头时重置.
type progressReader struct {
	io.ReadSeeker

	bar *progressbar.ProgressBar
}

func newProgressReader(rs io.ReadSeeker, size int64, w io.Writer) *progressReader {
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetDescription("reading"),
		progressbar.OptionClearOnFinish(),
	)

	return &progressReader{ReadSeeker: rs, bar: bar}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.ReadSeeker.Read(b)
	_ = p.bar.Add(n)

	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.ReadSeeker.Seek(offset, whence)
	if err == nil && pos == 0 {
		p.bar.Reset()
		p.bar.Describe("ingesting")
	}

	return pos, err
}

func parseFileID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid file id %q", s)
	}

	return uint(id), nil
}

func registerFileCommands() {
	for _, c := range []*cobra.Command{ingestCmd, analyzeCmd, exportCmd} {
		c.Flags().StringVarP(&cliUser, "user", "u", "cli", "user recorded as uploader")
	}

	ingestCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	ingestCmd.Flags().BoolVar(&analyzeFlag, "analyze", false, "run the analysis after ingest")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path, defaults to the report name")

	rootCmd.AddCommand(ingestCmd, analyzeCmd, exportCmd, migrateCmd)
}
