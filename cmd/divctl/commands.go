package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"DividendRadar/pkg/config"
	"DividendRadar/pkg/logging"
	"DividendRadar/pkg/messaging"
	"DividendRadar/pkg/model"
)

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "divctl",
		Short:         "公司配息数据管理工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "配置文件路径，默认 configs/<APP_ENV>/app.yaml")
	rootCmd.PersistentFlags().StringVar(&flags.sqlitePath, "sqlite", "", "使用本地 SQLite 文件代替 Postgres 和 Redis")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(
		newIngestCmd(flags),
		newDeleteCmd(flags),
		newListCmd(flags),
		newDividendsCmd(flags),
		newSearchCmd(flags),
		newEventsCmd(flags),
	)
	return rootCmd
}

func newIngestCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "ingest <ticker>...",
		Short:   "抓取公司资料和配息历史并入库",
		Example: "  divctl ingest AAPL MSFT\n  divctl --sqlite ./dividend.db ingest KO",
		Args:    cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			failed := 0
			for _, ticker := range args {
				company, err := app.Ingestor.Ingest(ctx, ticker)
				if err != nil {
					color.Red("✗ %s: %v", ticker, err)
					failed++
					continue
				}
				color.Green("✓ %s 入库成功: %s (id=%d)", company.Ticker, company.Name, company.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d 个公司入库失败", failed)
			}
			return nil
		}),
	}
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ticker>",
		Short: "删除公司及其配息",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			name, err := app.Query.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			color.Green("✓ 已删除 %s", name)
			return nil
		}),
	}
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var page, size int
	var sort string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "分页列出公司",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *App, _ []string) error {
			result, err := app.Query.ListPage(ctx, model.Pageable{Page: page, Size: size, Sort: sort})
			if err != nil {
				return err
			}

			color.Cyan("公司列表 第 %d/%d 页，共 %d 家", result.Number+1, max(result.TotalPages, 1), result.TotalElements)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTICKER\tNAME")
			for _, c := range result.Content {
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Ticker, c.Name)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().IntVar(&page, "page", 0, "页码，从0开始")
	cmd.Flags().IntVar(&size, "size", model.DefaultPageSize, "每页数量")
	cmd.Flags().StringVar(&sort, "sort", "id", "排序，例如 name,desc")
	return cmd
}

func newDividendsCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dividends <company name>",
		Short: "按公司名查询配息历史",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			result, err := app.Query.GetByName(ctx, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			color.Cyan("%s (%s) 共 %d 条配息", result.Company.Name, result.Company.Ticker, len(result.Dividends))
			for _, d := range result.Dividends {
				fmt.Printf("  %s  %s\n", d.Date.Format("2006-01-02"), d.Amount)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "以JSON输出")
	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var fromStore bool

	cmd := &cobra.Command{
		Use:   "search <prefix>",
		Short: "按公司名前缀查询",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			var names []string
			if fromStore {
				var err error
				if names, err = app.Query.SearchNames(ctx, args[0]); err != nil {
					return err
				}
			} else {
				names = app.Query.Autocomplete(args[0])
			}

			if len(names) == 0 {
				color.Yellow("没有匹配的公司")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&fromStore, "db", false, "在数据库中忽略大小写查询，而不是使用内存索引")
	return cmd
}

func newEventsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "实时打印公司入库/删除事件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := flags.configPath
			if path == "" {
				path = config.GetDefaultConfigPath()
			}
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			cfg.Log.File = false
			logger := logging.NewLogger(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := messaging.NewNATSClient(ctx, cfg.NATS.URL, cfg.NATS.ClientID+"-divctl", logger)
			if err != nil {
				return err
			}
			defer client.Close()

			color.Cyan("监听 company.* ...")
			err = client.Subscribe(ctx, "company.*", func(data []byte) error {
				var event messaging.CompanyEvent
				if err := json.Unmarshal(data, &event); err != nil {
					return err
				}
				line := fmt.Sprintf("%s %-17s %-8s %s", event.OccurredAt.Format("15:04:05"), event.Type, event.Ticker, event.Name)
				if event.Type == messaging.SubjectCompanyDeleted {
					color.Yellow("%s", line)
				} else {
					color.Green("%s", line)
				}
				return nil
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}
